package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid
	// and ErrTaskExists if the ID is already taken.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a live task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist or is soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetByIDIncludingDeleted retrieves a task by ID whether or not it is soft-deleted.
	// Returns ErrTaskNotFound only if no row exists.
	GetByIDIncludingDeleted(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns all live tasks ordered by creation time.
	List(ctx context.Context) ([]*domain.Task, error)

	// Update saves changes to an existing task, including soft deletion.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Upsert inserts the task or overwrites every field of the existing row.
	Upsert(ctx context.Context, task *domain.Task) error

	// SetSyncStatus changes only the sync status of a task.
	// Returns ErrTaskNotFound if the task does not exist.
	SetSyncStatus(ctx context.Context, id uuid.UUID, status domain.SyncStatus) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
