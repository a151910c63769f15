package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/tasksync/internal/authority"
	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/platform/sqlstore"
	"github.com/phrazzld/tasksync/internal/syncer"
	"github.com/phrazzld/tasksync/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config file whose databases and log file live in a
// temporary directory and whose remote is remoteURL.
func writeConfig(t *testing.T, remoteURL string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`
server:
  port: 3000
  log_level: debug
log:
  format: json
  file: %q
database:
  driver: sqlite
  url: %q
remote:
  base_url: %q
  timeout: 5s
  strict_probe: true
sync:
  batch_size: 2
authority:
  port: 4000
  database:
    driver: sqlite
    url: %q
`,
		filepath.Join(dir, "tasksync.log"),
		filepath.Join(dir, "local.db"),
		remoteURL,
		filepath.Join(dir, "authority.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// startAuthority serves an authority backed by a fresh SQLite database.
func startAuthority(t *testing.T) *httptest.Server {
	t.Helper()

	log, _ := logger.NewTestLogger(t)
	db := testdb.OpenSQLite(t)

	srv := httptest.NewServer(authority.NewHandler(db, sqlstore.NewTaskStore(db, log), log).Routes())
	t.Cleanup(srv.Close)
	return srv
}

// seedTask creates a task through a wired application, queuing one create entry.
func seedTask(t *testing.T, configPath, title string) {
	t.Helper()

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	log, _ := logger.NewTestLogger(t)

	app, err := openApplication(context.Background(), cfg, log)
	require.NoError(t, err)
	defer app.cleanup()

	_, err = app.taskService.CreateTask(context.Background(), title, "")
	require.NoError(t, err)
}

func TestMigrateCommand(t *testing.T) {
	path := writeConfig(t, "http://localhost:4000/api")

	for _, args := range [][]string{
		{"migrate"},
		{"migrate", "status"},
		{"migrate", "version"},
		{"migrate", "up", "--authority"},
	} {
		_, err := execute(t, append([]string{"--config", path}, args...)...)
		assert.NoError(t, err, strings.Join(args, " "))
	}

	_, err := execute(t, "--config", path, "migrate", "sideways")
	assert.Error(t, err)
}

func TestSyncCommand(t *testing.T) {
	srv := startAuthority(t)
	path := writeConfig(t, srv.URL+"/api")
	seedTask(t, path, "Ship it")
	seedTask(t, path, "Ship it again")

	out, err := execute(t, "--config", path, "sync")
	require.NoError(t, err)

	var result syncer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SyncedItems)
	assert.Empty(t, result.Errors)

	// A second pass has nothing left to send.
	out, err = execute(t, "--config", path, "sync")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.SyncedItems)
}

func TestSyncCommandReportsIncompletePass(t *testing.T) {
	srv := startAuthority(t)
	url := srv.URL + "/api"
	srv.Close()

	path := writeConfig(t, url)
	seedTask(t, path, "Stuck offline")

	out, err := execute(t, "--config", path, "sync")
	require.ErrorIs(t, err, errSyncIncomplete)

	var result syncer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedItems)
}

func TestSyncCommandStopsWhenInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The authority never answers; the interruption arrives while the batch is in flight.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			cancel()
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	path := writeConfig(t, srv.URL+"/api")
	seedTask(t, path, "Interrupted")

	out, err := executeContext(t, ctx, "--config", path, "sync")

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "sync interrupted")

	var result syncer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.SyncedItems)
	assert.Zero(t, result.FailedItems, "an interrupted batch is not counted as failed")

	probe, err := execute(t, "--config", path, "probe")
	require.NoError(t, err)
	assert.Contains(t, probe, "pending_changes=1")
}

func TestProbeCommand(t *testing.T) {
	srv := startAuthority(t)

	out, err := execute(t, "--config", writeConfig(t, srv.URL+"/api"), "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "reachable=true")
	assert.Contains(t, out, "pending_changes=0")

	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	out, err = execute(t, "--config", writeConfig(t, down.URL), "probe")
	assert.ErrorIs(t, err, errUnreachable)
	assert.Contains(t, out, "reachable=false")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t, "not a url"), "probe")
	assert.ErrorContains(t, err, "failed to load configuration")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "sync")
	assert.Error(t, err)
}

func TestApplicationRouter(t *testing.T) {
	srv := startAuthority(t)
	cfg, err := config.Load(writeConfig(t, srv.URL+"/api"))
	require.NoError(t, err)
	log, _ := logger.NewTestLogger(t)

	app, err := openApplication(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(app.cleanup)

	api := httptest.NewServer(app.router())
	t.Cleanup(api.Close)

	resp, err := http.Post(api.URL+"/api/tasks", "application/json", strings.NewReader(`{"title":"Via API"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(api.URL+"/api/sync", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Message string        `json:"message"`
		Result  syncer.Result `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Sync successful", body.Message)
	assert.Equal(t, 1, body.Result.SyncedItems)
}
