package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tasksync/internal/api"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/mocks"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/service"
	"github.com/phrazzld/tasksync/internal/syncer"
	"github.com/phrazzld/tasksync/internal/testdb"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	handler http.Handler
	outbox  *sqlstore.OutboxStore
	client  *mocks.MockRemoteClient
}

// newTestServer wires the router to a real SQLite store and a mock remote.
// A non-nil runner replaces the real synchronizer.
func newTestServer(t *testing.T, runner syncer.Runner) *testServer {
	t.Helper()

	logger := testLogger()
	db := testdb.OpenSQLite(t)

	tasks := sqlstore.NewTaskStore(db, logger)
	outbox := sqlstore.NewOutboxStore(db, logger)
	svc, err := service.NewTaskService(db, tasks, outbox, events.NewInMemoryEventEmitter(logger), logger)
	require.NoError(t, err)

	client := &mocks.MockRemoteClient{Reachable: true}
	if runner == nil {
		s, err := syncer.New(syncer.Config{BatchSize: 10}, outbox, tasks, db, client, logger)
		require.NoError(t, err)
		runner = syncer.NewCoordinator(s, logger)
	}

	return &testServer{
		handler: api.NewRouter(
			api.NewTaskHandler(svc, logger),
			api.NewSyncHandler(runner, client, outbox, logger),
			logger,
		),
		outbox: outbox,
		client: client,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
