package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/tasksync/internal/api/shared"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/syncer"
)

// PendingCounter reports how many changes await synchronization.
type PendingCounter interface {
	Count(ctx context.Context) (int, error)
}

// SyncResponse is the body of a successful POST /api/sync
type SyncResponse struct {
	Message string         `json:"message"`
	Result  *syncer.Result `json:"result"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	ServerOnline    bool      `json:"server_online"`
	RemoteReachable bool      `json:"remote_reachable"`
	PendingChanges  int       `json:"pending_changes"`
	Timestamp       time.Time `json:"timestamp"`
}

// SyncHandler exposes manual synchronization and health reporting
type SyncHandler struct {
	runner  syncer.Runner
	prober  syncer.Prober
	pending PendingCounter
	logger  *slog.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner syncer.Runner, prober syncer.Prober, pending PendingCounter, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		runner:  runner,
		prober:  prober,
		pending: pending,
		logger:  logger.With(slog.String("component", "sync_handler")),
	}
}

// TriggerSync handles POST /api/sync. Failed items are reported in the result
// with 200; only a pass that could not run returns 500.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Sync(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Sync failed", err)
		return
	}

	message := "Sync successful"
	if !result.Success {
		message = "Sync completed with errors"
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("manual sync finished",
		slog.Bool("success", result.Success),
		slog.Int("synced_items", result.SyncedItems),
		slog.Int("failed_items", result.FailedItems))

	shared.RespondWithJSON(w, r, http.StatusOK, SyncResponse{Message: message, Result: result})
}

// Health handles GET /api/health
func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	pending, err := h.pending.Count(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read sync status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		ServerOnline:    true,
		RemoteReachable: h.prober.ProbeConnectivity(r.Context()),
		PendingChanges:  pending,
		Timestamp:       time.Now().UTC(),
	})
}
