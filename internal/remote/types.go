package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
)

// Client is the sync engine's view of the remote authority.
type Client interface {
	// SendBatch transmits entries in one request. Any failure to obtain a
	// usable response is returned as a *TransportError.
	SendBatch(ctx context.Context, entries []*domain.OutboxEntry) (*BatchResponse, error)

	// ProbeConnectivity reports whether the authority is reachable. It never errors.
	ProbeConnectivity(ctx context.Context) bool
}

// OutcomeStatus is the authority's verdict on one submitted item.
type OutcomeStatus string

// Possible outcome values
const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeConflict OutcomeStatus = "conflict"
	OutcomeRejected OutcomeStatus = "rejected"
)

// BatchItem is one outbox entry on the wire.
type BatchItem struct {
	ClientID   uuid.UUID        `json:"client_id"`
	TaskID     uuid.UUID        `json:"task_id"`
	Operation  domain.Operation `json:"operation"`
	Data       json.RawMessage  `json:"data"`
	CreatedAt  time.Time        `json:"created_at"`
	RetryCount int              `json:"retry_count"`
}

// BatchRequest is the body of POST /tasks/batch.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// ProcessedItem is the authority's outcome for one client_id.
// ResolvedData is set for conflicts only, Error for rejections only.
type ProcessedItem struct {
	ClientID     uuid.UUID     `json:"client_id"`
	Status       OutcomeStatus `json:"status"`
	ResolvedData *domain.Task  `json:"resolved_data,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// BatchResponse is the body answered to POST /tasks/batch.
type BatchResponse struct {
	Success        bool            `json:"success"`
	ProcessedItems []ProcessedItem `json:"processed_items"`
}

// NewBatchItem converts an outbox entry to its wire form.
func NewBatchItem(entry *domain.OutboxEntry) BatchItem {
	return BatchItem{
		ClientID:   entry.ID,
		TaskID:     entry.TaskID,
		Operation:  entry.Operation,
		Data:       entry.Payload,
		CreatedAt:  entry.CreatedAt,
		RetryCount: entry.RetryCount,
	}
}
