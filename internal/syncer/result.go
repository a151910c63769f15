package syncer

import (
	"time"

	"github.com/phrazzld/tasksync/internal/domain"
)

// ErrorKind classifies a failure recorded during a pass.
type ErrorKind string

// Possible error kinds
const (
	// KindTransport is one aggregated failure for a whole batch.
	KindTransport ErrorKind = "transport"

	// KindConflictResolution means a conflict outcome could not be applied locally.
	KindConflictResolution ErrorKind = "conflict_resolution"

	// KindMissingOutcome means the remote answered without an outcome for a submitted entry.
	KindMissingOutcome ErrorKind = "missing_outcome"

	// KindRejected means the remote refused to apply an entry's data.
	KindRejected ErrorKind = "rejected"
)

// SyncError describes one failure in a pass. Transport errors describe a batch
// and carry no task or entry id.
//
// Attempts counts the passes the entry has failed in, this one included. For
// a batch it is the count of the batch's most-failed entry.
type SyncError struct {
	Kind      ErrorKind        `json:"kind"`
	TaskID    string           `json:"task_id,omitempty"`
	EntryID   string           `json:"entry_id,omitempty"`
	Operation domain.Operation `json:"operation,omitempty"`
	Batch     int              `json:"batch,omitempty"`
	Items     int              `json:"items,omitempty"`
	Attempts  int              `json:"attempts,omitempty"`
	Message   string           `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
}

// Result summarizes one pass. It is never persisted.
type Result struct {
	Success     bool        `json:"success"`
	SyncedItems int         `json:"synced_items"`
	FailedItems int         `json:"failed_items"`
	Errors      []SyncError `json:"errors"`
}

func newResult() *Result {
	return &Result{Errors: make([]SyncError, 0)}
}

func (r *Result) synced() {
	r.SyncedItems++
}

func (r *Result) entryFailed(kind ErrorKind, entry *domain.OutboxEntry, err error) {
	r.FailedItems++
	r.Errors = append(r.Errors, SyncError{
		Kind:      kind,
		TaskID:    entry.TaskID.String(),
		EntryID:   entry.ID.String(),
		Operation: entry.Operation,
		Attempts:  entry.RetryCount + 1,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (r *Result) batchFailed(number int, batch []*domain.OutboxEntry, err error) {
	attempts := 0
	for _, entry := range batch {
		attempts = max(attempts, entry.RetryCount+1)
	}

	r.FailedItems += len(batch)
	r.Errors = append(r.Errors, SyncError{
		Kind:      KindTransport,
		Batch:     number,
		Items:     len(batch),
		Attempts:  attempts,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (r *Result) finish() *Result {
	r.Success = r.FailedItems == 0
	return r
}

// Retryable reports whether a prompt retry could succeed. Only transport
// failures clear without a change on either side.
func (r *Result) Retryable() bool {
	for _, e := range r.Errors {
		if e.Kind == KindTransport {
			return true
		}
	}
	return false
}

// MaxAttempts returns the highest Attempts among the recorded errors.
func (r *Result) MaxAttempts() int {
	n := 0
	for _, e := range r.Errors {
		n = max(n, e.Attempts)
	}
	return n
}
