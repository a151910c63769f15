// Package mocks provides shared mock implementations for testing.
//
// Each mock has a function field per interface method. When the field is nil
// the mock returns its default values. Calls are recorded so tests can verify
// what was sent:
//
//	client := &mocks.MockRemoteClient{
//	    SendBatchFn: func(ctx context.Context, entries []*domain.OutboxEntry) (*remote.BatchResponse, error) {
//	        return mocks.AcknowledgeAll(entries), nil
//	    },
//	}
//
// When adding a new mock, create a file named after the interface being mocked.
package mocks
