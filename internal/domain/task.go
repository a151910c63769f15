package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// SyncStatus records whether a task's local changes have reached the remote authority.
type SyncStatus string

// Possible sync status values
const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
)

// MaxTitleLength bounds the length of a task title, in characters.
const MaxTitleLength = 500

// Task validation errors
var (
	ErrEmptyTaskID       = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	ErrEmptyTaskTitle    = fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	ErrTaskTitleTooLong  = fmt.Errorf("%w: task title is too long", ErrValidation)
	ErrInvalidSyncStatus = fmt.Errorf("%w: invalid sync status", ErrValidation)
	ErrMissingTimestamp  = fmt.Errorf("%w: task timestamps must be set", ErrValidation)
)

// Task is a unit of work tracked locally and reconciled with the remote authority.
// Deleted tasks are kept with IsDeleted set so the deletion itself can be synchronized.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SyncStatus  SyncStatus `json:"sync_status"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// NewTask creates a pending task with a fresh ID and the current time.
// Returns an error if validation fails.
func NewTask(title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		SyncStatus:  SyncStatusPending,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTaskTitleTooLong
	}

	if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
		return ErrMissingTimestamp
	}

	if !isValidSyncStatus(t.SyncStatus) {
		return ErrInvalidSyncStatus
	}

	return nil
}

// Apply merges the patch into the task and marks it as a fresh local mutation.
// The task is left unchanged if the patched result would be invalid.
func (t *Task) Apply(patch TaskPatch) error {
	updated := *t
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Completed != nil {
		updated.Completed = *patch.Completed
	}
	updated.touch()

	if err := updated.Validate(); err != nil {
		return err
	}

	*t = updated
	return nil
}

// MarkDeleted soft-deletes the task.
func (t *Task) MarkDeleted() {
	t.IsDeleted = true
	t.touch()
}

// touch records a local mutation: refreshes UpdatedAt and flags the task for sync.
func (t *Task) touch() {
	now := time.Now().UTC()
	// Keep UpdatedAt strictly increasing even when the clock has coarse resolution.
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
	t.SyncStatus = SyncStatusPending
}

func isValidSyncStatus(status SyncStatus) bool {
	switch status {
	case SyncStatusPending, SyncStatusSynced:
		return true
	default:
		return false
	}
}
