package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
)

// ChangeEvent announces that a task mutation and its outbox entry were committed.
// It carries identifiers only; handlers read current state from the stores.
type ChangeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID is the task that changed
	TaskID uuid.UUID `json:"task_id"`

	// EntryID is the outbox entry recording the change
	EntryID uuid.UUID `json:"entry_id"`

	// Operation is the kind of change
	Operation domain.Operation `json:"operation"`

	// OccurredAt is the timestamp when the change was committed
	OccurredAt time.Time `json:"occurred_at"`
}

// NewChangeEvent creates a ChangeEvent for a committed outbox entry.
func NewChangeEvent(entry *domain.OutboxEntry) *ChangeEvent {
	return &ChangeEvent{
		ID:         uuid.New(),
		TaskID:     entry.TaskID,
		EntryID:    entry.ID,
		Operation:  entry.Operation,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ChangeEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ChangeEvent) error
}
