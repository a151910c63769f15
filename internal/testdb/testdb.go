package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/database"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds opening and migrating a test database.
const TestTimeout = 30 * time.Second

// DatabaseURLEnv names the variable holding the PostgreSQL URL for tests.
const DatabaseURLEnv = "TASKSYNC_TEST_DATABASE_URL"

// PostgresURL returns the PostgreSQL URL for tests, or "" if none is configured.
func PostgresURL() string {
	if url := os.Getenv(DatabaseURLEnv); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}

// ShouldSkipPostgres reports whether PostgreSQL tests must be skipped.
func ShouldSkipPostgres() bool {
	return PostgresURL() == ""
}

// OpenSQLite returns a migrated SQLite database private to the test.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	return open(t, config.DatabaseConfig{
		Driver: database.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "test.db"),
	})
}

// OpenPostgres returns the migrated test PostgreSQL database, skipping the
// test if none is configured. The database is shared: isolate with WithTx.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipPostgres() {
		t.Skipf("%s not set - skipping PostgreSQL test", DatabaseURLEnv)
	}
	return open(t, config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		URL:          PostgresURL(),
		MaxOpenConns: 4,
	})
}

// ForEachDriver runs fn as a subtest against every available driver.
func ForEachDriver(t *testing.T, fn func(t *testing.T, db *sql.DB)) {
	t.Helper()

	t.Run(database.DriverSQLite, func(t *testing.T) {
		fn(t, OpenSQLite(t))
	})
	t.Run(database.DriverPostgres, func(t *testing.T) {
		fn(t, OpenPostgres(t))
	})
}

// WithTx runs fn in a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

func open(t *testing.T, cfg config.DatabaseConfig) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(ctx, cfg, logger)
	require.NoError(t, err, "failed to open %s test database", cfg.Driver)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, cfg.Driver, database.MigrateUp, logger),
		"failed to migrate %s test database", cfg.Driver)
	return db
}
