package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasksync/internal/syncer"
)

// MockSyncRunner implements syncer.Runner for testing
type MockSyncRunner struct {
	SyncFn func(ctx context.Context) (*syncer.Result, error)

	// Result and Err are returned when SyncFn is nil
	Result *syncer.Result
	Err    error

	mu    sync.Mutex
	calls int
}

// Ensure MockSyncRunner implements syncer.Runner interface
var _ syncer.Runner = (*MockSyncRunner)(nil)

// Sync implements syncer.Runner.Sync
func (m *MockSyncRunner) Sync(ctx context.Context) (*syncer.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.SyncFn != nil {
		return m.SyncFn(ctx)
	}
	return m.Result, m.Err
}

// Calls returns the number of Sync calls.
func (m *MockSyncRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
