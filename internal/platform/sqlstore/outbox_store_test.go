package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEnqueueAndDrainOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := sqlstore.NewOutboxStore(setupDB(t), testLogger())

	task := mustTask(t, "ordered")
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	// Two entries share a timestamp: insertion order must break the tie.
	first := mustEntry(t, task, domain.OperationCreate)
	first.CreatedAt = at
	second := mustEntry(t, task, domain.OperationUpdate)
	second.CreatedAt = at
	earliest := mustEntry(t, task, domain.OperationUpdate)
	earliest.CreatedAt = at.Add(-time.Second)

	require.NoError(t, outbox.Enqueue(ctx, first))
	require.NoError(t, outbox.Enqueue(ctx, second))
	require.NoError(t, outbox.Enqueue(ctx, earliest))

	entries, err := outbox.DrainOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, earliest.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.Equal(t, second.ID, entries[2].ID)
	assert.Less(t, entries[1].Seq, entries[2].Seq)

	assert.Equal(t, task.ID, entries[1].TaskID)
	assert.Equal(t, domain.OperationCreate, entries[1].Operation)
	decoded, err := entries[1].DecodeTask()
	require.NoError(t, err)
	assert.Equal(t, task.Title, decoded.Title)

	// Draining does not consume.
	n, err := outbox.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestOutboxEnqueueDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := sqlstore.NewOutboxStore(setupDB(t), testLogger())
	entry := mustEntry(t, mustTask(t, "dup"), domain.OperationCreate)

	require.NoError(t, outbox.Enqueue(ctx, entry))
	err := outbox.Enqueue(ctx, entry)
	assert.ErrorIs(t, err, store.ErrOutboxEntryExists)
}

func TestOutboxEnqueueRejectsInvalidEntry(t *testing.T) {
	t.Parallel()

	outbox := sqlstore.NewOutboxStore(setupDB(t), testLogger())
	entry := mustEntry(t, mustTask(t, "bad"), domain.OperationCreate)
	entry.Operation = "merge"

	assert.ErrorIs(t, outbox.Enqueue(context.Background(), entry), domain.ErrInvalidOperation)
}

func TestOutboxAcknowledgeMarksTaskSyncedWhenLastEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupDB(t)
	tasks := sqlstore.NewTaskStore(db, testLogger())
	outbox := sqlstore.NewOutboxStore(db, testLogger())

	task := mustTask(t, "two changes")
	require.NoError(t, tasks.Create(ctx, task))
	create := mustEntry(t, task, domain.OperationCreate)
	update := mustEntry(t, task, domain.OperationUpdate)
	require.NoError(t, outbox.Enqueue(ctx, create))
	require.NoError(t, outbox.Enqueue(ctx, update))

	require.NoError(t, outbox.Acknowledge(ctx, create.ID))
	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusPending, got.SyncStatus, "task still has a queued entry")

	require.NoError(t, outbox.Acknowledge(ctx, update.ID))
	got, err = tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSynced, got.SyncStatus)

	n, err := outbox.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxAcknowledgeAbsentIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	outbox := sqlstore.NewOutboxStore(setupDB(t), testLogger())
	entry := mustEntry(t, mustTask(t, "once"), domain.OperationCreate)
	require.NoError(t, outbox.Enqueue(ctx, entry))

	require.NoError(t, outbox.Acknowledge(ctx, uuid.New()))
	require.NoError(t, outbox.Acknowledge(ctx, entry.ID))
	require.NoError(t, outbox.Acknowledge(ctx, entry.ID), "second acknowledgment is a no-op")

	n, err := outbox.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxAcknowledgeJoinsCallerTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupDB(t)
	outbox := sqlstore.NewOutboxStore(db, testLogger())
	entry := mustEntry(t, mustTask(t, "tx"), domain.OperationCreate)
	require.NoError(t, outbox.Enqueue(ctx, entry))

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := outbox.WithTx(tx).Acknowledge(ctx, entry.ID); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := outbox.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rolled back acknowledgment must leave the entry queued")
}

func TestOutboxRecordAttempt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupDB(t)
	outbox := sqlstore.NewOutboxStore(db, testLogger())
	entry := mustEntry(t, mustTask(t, "flaky"), domain.OperationCreate)
	require.NoError(t, outbox.Enqueue(ctx, entry))

	require.NoError(t, outbox.RecordAttempt(ctx, entry.ID, "connection refused"))
	require.NoError(t, outbox.RecordAttempt(ctx, entry.ID, "timeout"))

	entries, err := outbox.DrainOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].RetryCount)
	assert.JSONEq(t, string(entry.Payload), string(entries[0].Payload), "the entry itself is unchanged")

	var lastError string
	err = db.QueryRowContext(ctx,
		`SELECT last_error FROM outbox_attempts WHERE entry_id = $1`, entry.ID).Scan(&lastError)
	require.NoError(t, err)
	assert.Equal(t, "timeout", lastError)

	err = outbox.RecordAttempt(ctx, uuid.New(), "gone")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, outbox.Acknowledge(ctx, entry.ID))
	var remaining int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_attempts`).Scan(&remaining))
	assert.Zero(t, remaining, "acknowledgment drops attempt bookkeeping")
}
