package authority_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tasksync/internal/authority"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/testdb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type authorityFixture struct {
	tasks *sqlstore.TaskStore
	srv   *httptest.Server
}

func newAuthority(t *testing.T) *authorityFixture {
	t.Helper()

	db := testdb.OpenSQLite(t)
	tasks := sqlstore.NewTaskStore(db, testLogger())
	srv := httptest.NewServer(authority.NewHandler(db, tasks, testLogger()).Routes())
	t.Cleanup(srv.Close)
	return &authorityFixture{tasks: tasks, srv: srv}
}
