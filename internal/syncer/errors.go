package syncer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrPassInProgress is returned when Sync is called while a pass is already
// running on the same Synchronizer.
var ErrPassInProgress = errors.New("sync pass already in progress")

// Causes carried by ConflictResolutionError
var (
	ErrLocalTaskMissing    = errors.New("local task no longer exists")
	ErrMissingResolvedData = errors.New("conflict outcome carries no resolved data")
	ErrMismatchedTask      = errors.New("resolved data is for a different task")
)

// ErrRejectedByRemote is the cause recorded for entries the remote refused to apply.
var ErrRejectedByRemote = errors.New("remote rejected entry")

// errOutcomeMissing is the cause recorded for submitted entries the remote did not answer for.
var errOutcomeMissing = errors.New("remote returned no outcome for entry")

// ConflictResolutionError reports that a conflict outcome could not be applied
// to the local store. The entry stays queued for the next pass.
type ConflictResolutionError struct {
	EntryID uuid.UUID
	TaskID  uuid.UUID
	Err     error
}

// Error implements the error interface for ConflictResolutionError.
func (e *ConflictResolutionError) Error() string {
	return fmt.Sprintf("conflict resolution failed for task %s (entry %s): %v", e.TaskID, e.EntryID, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ConflictResolutionError) Unwrap() error {
	return e.Err
}
