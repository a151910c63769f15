package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/phrazzld/tasksync/internal/remote"
)

// MockRemoteClient implements remote.Client for testing
type MockRemoteClient struct {
	SendBatchFn         func(ctx context.Context, entries []*domain.OutboxEntry) (*remote.BatchResponse, error)
	ProbeConnectivityFn func(ctx context.Context) bool

	// Reachable is returned by ProbeConnectivity when ProbeConnectivityFn is nil
	Reachable bool

	mu      sync.Mutex
	batches [][]uuid.UUID
	probes  int
}

// Ensure MockRemoteClient implements remote.Client interface
var _ remote.Client = (*MockRemoteClient)(nil)

// SendBatch implements remote.Client.SendBatch
// Without SendBatchFn every entry is acknowledged.
func (m *MockRemoteClient) SendBatch(ctx context.Context, entries []*domain.OutboxEntry) (*remote.BatchResponse, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	m.mu.Lock()
	m.batches = append(m.batches, ids)
	m.mu.Unlock()

	if m.SendBatchFn != nil {
		return m.SendBatchFn(ctx, entries)
	}
	return AcknowledgeAll(entries), nil
}

// ProbeConnectivity implements remote.Client.ProbeConnectivity
func (m *MockRemoteClient) ProbeConnectivity(ctx context.Context) bool {
	m.mu.Lock()
	m.probes++
	m.mu.Unlock()

	if m.ProbeConnectivityFn != nil {
		return m.ProbeConnectivityFn(ctx)
	}
	return m.Reachable
}

// Batches returns the entry IDs of every SendBatch call, in call order.
func (m *MockRemoteClient) Batches() [][]uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]uuid.UUID, len(m.batches))
	copy(out, m.batches)
	return out
}

// ProbeCount returns the number of ProbeConnectivity calls.
func (m *MockRemoteClient) ProbeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

// AcknowledgeAll builds a successful response with an ok outcome per entry.
func AcknowledgeAll(entries []*domain.OutboxEntry) *remote.BatchResponse {
	resp := &remote.BatchResponse{Success: true, ProcessedItems: make([]remote.ProcessedItem, 0, len(entries))}
	for _, entry := range entries {
		resp.ProcessedItems = append(resp.ProcessedItems, remote.ProcessedItem{
			ClientID: entry.ID,
			Status:   remote.OutcomeOK,
		})
	}
	return resp
}
