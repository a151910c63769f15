package authority

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/api/middleware"
	"github.com/phrazzld/tasksync/internal/api/shared"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/remote"
	"github.com/phrazzld/tasksync/internal/store"
)

// MaxBatchItems bounds the number of items accepted in one request.
const MaxBatchItems = 500

// errInvalidBatch marks a request rejected before any item is applied.
var errInvalidBatch = errors.New("invalid batch")

// Handler serves the authority's HTTP protocol.
type Handler struct {
	db     store.TxBeginner
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewHandler creates a Handler over the authority's own task store.
func NewHandler(db store.TxBeginner, tasks store.TaskStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:     db,
		tasks:  tasks,
		logger: logger.With(slog.String("component", "authority")),
	}
}

// Routes mounts the protocol under /api, the base URL clients are configured with.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Head("/", h.Ping)
		r.Get("/", h.Ping)
		r.Post("/tasks/batch", h.ProcessBatch)
		r.Get("/tasks", h.ListTasks)
	})
	return r
}

// Ping answers connectivity probes.
func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ListTasks handles GET /api/tasks, returning the live tasks the authority holds.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to fetch tasks", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// ProcessBatch handles POST /api/tasks/batch. A malformed batch is rejected
// whole with 400; otherwise every item gets exactly one outcome and all
// writes commit together. Items whose data cannot be applied are answered
// with a rejected outcome and leave the store untouched.
func (h *Handler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req remote.BatchRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := validateBatch(req.Items); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	resp := remote.BatchResponse{Success: true, ProcessedItems: make([]remote.ProcessedItem, 0, len(req.Items))}
	err := store.RunInTransaction(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		tasks := h.tasks.WithTx(tx)
		for _, item := range req.Items {
			outcome, err := apply(ctx, tasks, item)
			if err != nil {
				return err
			}
			outcome.ClientID = item.ClientID
			resp.ProcessedItems = append(resp.ProcessedItems, outcome)
		}
		return nil
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to process batch", err)
		return
	}

	counts := make(map[remote.OutcomeStatus]int, 3)
	for _, item := range resp.ProcessedItems {
		counts[item.Status]++
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("batch processed",
		slog.Int("items", len(resp.ProcessedItems)),
		slog.Int("conflicts", counts[remote.OutcomeConflict]),
		slog.Int("rejected", counts[remote.OutcomeRejected]))

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// change is the task state carried by one item. Absent fields keep the
// stored value, so both full snapshots and partial changes apply.
type change struct {
	ID          *uuid.UUID `json:"id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	IsDeleted   *bool      `json:"is_deleted"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// apply merges one item into the stored task unless the stored copy is
// strictly newer, in which case the stored copy is returned as a conflict.
// The item's version is the payload's updated_at, or the time the change was
// recorded when the payload has none.
func apply(ctx context.Context, tasks store.TaskStore, item remote.BatchItem) (remote.ProcessedItem, error) {
	var c change
	if err := json.Unmarshal(item.Data, &c); err != nil {
		return rejected(fmt.Errorf("data is not a task object: %w", err)), nil
	}
	if c.ID != nil && *c.ID != item.TaskID {
		return rejected(errors.New("data is for another task")), nil
	}

	version := item.CreatedAt.UTC()
	if c.UpdatedAt != nil && !c.UpdatedAt.IsZero() {
		version = c.UpdatedAt.UTC()
	}

	stored, err := tasks.GetByIDIncludingDeleted(ctx, item.TaskID)
	switch {
	case err == nil && stored.UpdatedAt.After(version):
		return remote.ProcessedItem{Status: remote.OutcomeConflict, ResolvedData: stored}, nil
	case errors.Is(err, store.ErrNotFound):
		if c.Title == nil && item.Operation == domain.OperationDelete {
			// Nothing to delete and not enough to keep a tombstone.
			return remote.ProcessedItem{Status: remote.OutcomeOK}, nil
		}
		if c.Title == nil {
			return rejected(errors.New("unknown task and no title to create it with")), nil
		}
		created := version
		if c.CreatedAt != nil && !c.CreatedAt.IsZero() {
			created = c.CreatedAt.UTC()
		}
		stored = &domain.Task{ID: item.TaskID, CreatedAt: created}
	case err != nil:
		return remote.ProcessedItem{}, fmt.Errorf("failed to load task %s: %w", item.TaskID, err)
	}

	task := merge(*stored, c)
	task.UpdatedAt = version
	if item.Operation == domain.OperationDelete {
		task.IsDeleted = true
	}
	task.SyncStatus = domain.SyncStatusSynced
	if err := task.Validate(); err != nil {
		return rejected(err), nil
	}

	if err := tasks.Upsert(ctx, &task); err != nil {
		return remote.ProcessedItem{}, fmt.Errorf("failed to store task %s: %w", task.ID, err)
	}
	return remote.ProcessedItem{Status: remote.OutcomeOK}, nil
}

func merge(task domain.Task, c change) domain.Task {
	if c.Title != nil {
		task.Title = *c.Title
	}
	if c.Description != nil {
		task.Description = *c.Description
	}
	if c.Completed != nil {
		task.Completed = *c.Completed
	}
	if c.IsDeleted != nil {
		task.IsDeleted = *c.IsDeleted
	}
	return task
}

func rejected(err error) remote.ProcessedItem {
	return remote.ProcessedItem{Status: remote.OutcomeRejected, Error: err.Error()}
}

// validateBatch checks what no well-behaved client can produce: an empty or
// oversized batch, missing or repeated client ids and invalid entry fields.
func validateBatch(items []remote.BatchItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", errInvalidBatch)
	}
	if len(items) > MaxBatchItems {
		return fmt.Errorf("%w: more than %d items", errInvalidBatch, MaxBatchItems)
	}

	seen := make(map[uuid.UUID]bool, len(items))
	for i, item := range items {
		if item.ClientID == uuid.Nil || seen[item.ClientID] {
			return fmt.Errorf("%w: item %d has a missing or repeated client_id", errInvalidBatch, i)
		}
		seen[item.ClientID] = true

		entry := domain.OutboxEntry{
			ID:        item.ClientID,
			TaskID:    item.TaskID,
			Operation: item.Operation,
			Payload:   item.Data,
			CreatedAt: item.CreatedAt,
		}
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("%w: item %d: %v", errInvalidBatch, i, err)
		}
	}
	return nil
}
