package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of task mutation an outbox entry records.
type Operation string

// Possible operation values
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Outbox entry validation errors
var (
	ErrEmptyEntryID     = fmt.Errorf("%w: outbox entry ID cannot be empty", ErrValidation)
	ErrEmptyEntryTaskID = fmt.Errorf("%w: outbox entry task ID cannot be empty", ErrValidation)
	ErrInvalidOperation = fmt.Errorf("%w: invalid outbox operation", ErrValidation)
	ErrInvalidPayload   = fmt.Errorf("%w: outbox payload must be valid JSON", ErrValidation)
	ErrMissingEntryTime = fmt.Errorf("%w: outbox entry creation time must be set", ErrValidation)
)

// OutboxEntry is one pending change intent awaiting transmission to the remote authority.
// Entries are immutable once enqueued: a sync pass either removes one or leaves it alone.
type OutboxEntry struct {
	ID        uuid.UUID       `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`

	// Seq is the store-assigned insertion sequence used to break CreatedAt ties.
	Seq int64 `json:"-"`

	// RetryCount is the number of passes in which this entry failed.
	// It is tracked beside the entry rather than on it.
	RetryCount int `json:"retry_count"`
}

// NewOutboxEntry creates an entry for a mutation of the given task.
func NewOutboxEntry(taskID uuid.UUID, op Operation, payload json.RawMessage) (*OutboxEntry, error) {
	entry := &OutboxEntry{
		ID:        uuid.New(),
		TaskID:    taskID,
		Operation: op,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// NewTaskSnapshotEntry creates an entry whose payload is the full serialized task.
func NewTaskSnapshotEntry(task *Task, op Operation) (*OutboxEntry, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return NewOutboxEntry(task.ID, op, payload)
}

// Validate checks if the OutboxEntry has valid data.
func (e *OutboxEntry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEntryID
	}

	if e.TaskID == uuid.Nil {
		return ErrEmptyEntryTaskID
	}

	if !IsValidOperation(e.Operation) {
		return ErrInvalidOperation
	}

	if len(e.Payload) == 0 || !json.Valid(e.Payload) {
		return ErrInvalidPayload
	}

	if e.CreatedAt.IsZero() {
		return ErrMissingEntryTime
	}

	return nil
}

// DecodeTask unmarshals the payload as a task snapshot.
func (e *OutboxEntry) DecodeTask() (*Task, error) {
	var task Task
	if err := json.Unmarshal(e.Payload, &task); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return &task, nil
}

// IsValidOperation reports whether op is a known operation.
func IsValidOperation(op Operation) bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}
