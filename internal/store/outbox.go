package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
)

// OutboxStore defines the interface for the durable queue of pending task changes.
type OutboxStore interface {
	// Enqueue appends one entry. It must run in the same transaction as the
	// task mutation it records.
	Enqueue(ctx context.Context, entry *domain.OutboxEntry) error

	// DrainOrdered returns every queued entry ordered by creation time, ties
	// broken by insertion sequence. It removes nothing.
	DrainOrdered(ctx context.Context) ([]*domain.OutboxEntry, error)

	// Acknowledge removes exactly one entry and its attempt bookkeeping. When no
	// other entry remains for the same task, the task is marked synced in the
	// same transaction. Acknowledging an absent entry is a no-op.
	Acknowledge(ctx context.Context, entryID uuid.UUID) error

	// RecordAttempt notes a failed delivery attempt for an entry.
	// The entry itself is not modified.
	RecordAttempt(ctx context.Context, entryID uuid.UUID, cause string) error

	// Count returns the number of queued entries.
	Count(ctx context.Context) (int, error)

	// WithTx returns a new OutboxStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) OutboxStore
}
