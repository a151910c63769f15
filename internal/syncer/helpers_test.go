package syncer_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/mocks"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/remote"
	"github.com/phrazzld/tasksync/internal/service"
	"github.com/phrazzld/tasksync/internal/syncer"
	"github.com/phrazzld/tasksync/internal/testdb"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fixture struct {
	db     *sql.DB
	tasks  *sqlstore.TaskStore
	outbox *sqlstore.OutboxStore
	svc    service.TaskService
	client *mocks.MockRemoteClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.OpenSQLite(t)

	f := &fixture{
		db:     db,
		tasks:  sqlstore.NewTaskStore(db, testLogger()),
		outbox: sqlstore.NewOutboxStore(db, testLogger()),
		client: &mocks.MockRemoteClient{Reachable: true},
	}
	var err error
	f.svc, err = service.NewTaskService(db, f.tasks, f.outbox, events.NewInMemoryEventEmitter(testLogger()), testLogger())
	require.NoError(t, err)
	return f
}

func (f *fixture) synchronizer(t *testing.T, batchSize int) *syncer.Synchronizer {
	t.Helper()

	s, err := syncer.New(syncer.Config{BatchSize: batchSize}, f.outbox, f.tasks, f.db, f.client, testLogger())
	require.NoError(t, err)
	return s
}

func (f *fixture) createTask(t *testing.T, title string) *domain.Task {
	t.Helper()

	task, err := f.svc.CreateTask(context.Background(), title, "")
	require.NoError(t, err)
	return task
}

func (f *fixture) queue(t *testing.T) []*domain.OutboxEntry {
	t.Helper()

	entries, err := f.outbox.DrainOrdered(context.Background())
	require.NoError(t, err)
	return entries
}

func (f *fixture) task(t *testing.T, id uuid.UUID) *domain.Task {
	t.Helper()

	task, err := f.tasks.GetByIDIncludingDeleted(context.Background(), id)
	require.NoError(t, err)
	return task
}

func entryIDs(entries []*domain.OutboxEntry) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}

// respond builds a successful response from per-entry statuses, in order.
func respond(entries []*domain.OutboxEntry, statuses ...remote.OutcomeStatus) *remote.BatchResponse {
	resp := &remote.BatchResponse{Success: true}
	for i, status := range statuses {
		resp.ProcessedItems = append(resp.ProcessedItems, remote.ProcessedItem{
			ClientID: entries[i].ID,
			Status:   status,
		})
	}
	return resp
}

// remoteVersion returns a copy of task as the remote would report it.
func remoteVersion(task *domain.Task, title string, updatedAt time.Time) *domain.Task {
	v := *task
	v.Title = title
	v.UpdatedAt = updatedAt
	v.SyncStatus = domain.SyncStatusSynced
	return &v
}
