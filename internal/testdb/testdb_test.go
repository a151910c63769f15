package testdb_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/phrazzld/tasksync/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteIsMigrated(t *testing.T) {
	t.Parallel()

	db := testdb.OpenSQLite(t)

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM outbox`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxRollsBack(t *testing.T) {
	testdb.ForEachDriver(t, func(t *testing.T, db *sql.DB) {
		ctx := context.Background()

		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tasks (id, title, description, completed, is_deleted, created_at, updated_at, sync_status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				"3f1d6a0e-4a8c-4b7e-9d55-0f4f1a2b3c4d", "Rolled back", "", false, false,
				"2026-01-01T00:00:00.000000000Z", "2026-01-01T00:00:00.000000000Z", "pending")
			require.NoError(t, err)
		})

		var n int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tasks WHERE id = $1`, "3f1d6a0e-4a8c-4b7e-9d55-0f4f1a2b3c4d").Scan(&n))
		assert.Zero(t, n)
	})
}
