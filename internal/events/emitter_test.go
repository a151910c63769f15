package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/tasksync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *ChangeEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(_ context.Context, event *ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func newTestEvent(t *testing.T) *ChangeEvent {
	t.Helper()

	entry, err := domain.NewOutboxEntry(uuid.New(), domain.OperationCreate, []byte(`{}`))
	require.NoError(t, err)
	return NewChangeEvent(entry)
}

func TestNewChangeEvent(t *testing.T) {
	t.Parallel()

	entry, err := domain.NewOutboxEntry(uuid.New(), domain.OperationDelete, []byte(`{}`))
	require.NoError(t, err)

	event := NewChangeEvent(entry)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, entry.TaskID, event.TaskID)
	assert.Equal(t, entry.ID, event.EntryID)
	assert.Equal(t, domain.OperationDelete, event.Operation)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		err := emitter.EmitEvent(context.Background(), newTestEvent(t))
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := newTestEvent(t)
		err := emitter.EmitEvent(context.Background(), event)

		assert.NoError(t, err)
		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handlerErr := errors.New("handler error")
		failingHandler := &MockEventHandler{HandlerError: handlerErr}
		successHandler := &MockEventHandler{}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		err := emitter.EmitEvent(context.Background(), newTestEvent(t))

		assert.ErrorIs(t, err, handlerErr)
		assert.EqualError(t, err, "handler 0: handler error")
		assert.Equal(t, 1, failingHandler.HandledCount)
		assert.Equal(t, 1, successHandler.HandledCount, "later handlers still run")
	})

	t.Run("every failure is reported", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		first, second := errors.New("first"), errors.New("second")
		emitter.RegisterHandler(&MockEventHandler{HandlerError: first})
		emitter.RegisterHandler(&MockEventHandler{HandlerError: second})

		err := emitter.EmitEvent(context.Background(), newTestEvent(t))

		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_ = NewInMemoryEventEmitter(nil).EmitEvent(context.Background(), newTestEvent(t))
		})
	})
}
