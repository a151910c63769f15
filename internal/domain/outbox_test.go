package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewOutboxEntry(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	entry, err := NewOutboxEntry(taskID, OperationUpdate, json.RawMessage(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if entry.ID == uuid.Nil || entry.ID == taskID {
		t.Errorf("Expected a fresh entry ID, got %s", entry.ID)
	}
	if entry.TaskID != taskID {
		t.Errorf("Expected task ID %s, got %s", taskID, entry.TaskID)
	}
	if entry.RetryCount != 0 {
		t.Errorf("Expected retry count 0, got %d", entry.RetryCount)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt")
	}

	_, err = NewOutboxEntry(taskID, "upsert", json.RawMessage(`{}`))
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Expected error %v, got %v", ErrInvalidOperation, err)
	}

	_, err = NewOutboxEntry(taskID, OperationCreate, json.RawMessage(`{not json`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected error %v, got %v", ErrInvalidPayload, err)
	}

	_, err = NewOutboxEntry(uuid.Nil, OperationDelete, json.RawMessage(`{}`))
	if !errors.Is(err, ErrEmptyEntryTaskID) {
		t.Errorf("Expected error %v, got %v", ErrEmptyEntryTaskID, err)
	}
}

func TestTaskSnapshotEntryRoundTrip(t *testing.T) {
	t.Parallel()

	task, err := NewTask("Snapshot me", "body")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entry, err := NewTaskSnapshotEntry(task, OperationCreate)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	decoded, err := entry.DecodeTask()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if decoded.ID != task.ID || decoded.Title != task.Title {
		t.Errorf("Expected decoded task to match, got %+v", decoded)
	}
	if !decoded.UpdatedAt.Equal(task.UpdatedAt) {
		t.Errorf("Expected UpdatedAt %v, got %v", task.UpdatedAt, decoded.UpdatedAt)
	}
}
