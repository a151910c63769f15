package sqlstore_test

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/testdb"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// setupDB returns a migrated SQLite database private to the test.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	return testdb.OpenSQLite(t)
}

func mustTask(t *testing.T, title string) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(title, "")
	require.NoError(t, err)
	return task
}

func mustEntry(t *testing.T, task *domain.Task, op domain.Operation) *domain.OutboxEntry {
	t.Helper()

	entry, err := domain.NewTaskSnapshotEntry(task, op)
	require.NoError(t, err)
	return entry
}
