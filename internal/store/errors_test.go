package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestEntityErrorsWrapGenericErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		generic error
		other   error
	}{
		{name: "task not found", err: ErrTaskNotFound, generic: ErrNotFound, other: ErrDuplicate},
		{name: "entry not found", err: ErrOutboxEntryNotFound, generic: ErrNotFound, other: ErrDuplicate},
		{name: "task exists", err: ErrTaskExists, generic: ErrDuplicate, other: ErrNotFound},
		{name: "entry exists", err: ErrOutboxEntryExists, generic: ErrDuplicate, other: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("acknowledge: %w", tt.err)
			if !errors.Is(wrapped, tt.generic) {
				t.Errorf("Expected %v to match %v", wrapped, tt.generic)
			}
			if errors.Is(wrapped, tt.other) {
				t.Errorf("Expected %v not to match %v", wrapped, tt.other)
			}
		})
	}
}

func TestEntityErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	if errors.Is(ErrTaskNotFound, ErrOutboxEntryNotFound) {
		t.Error("Expected task and outbox not-found errors to be distinct")
	}
	if errors.Is(ErrTaskExists, ErrOutboxEntryExists) {
		t.Error("Expected task and outbox duplicate errors to be distinct")
	}
}
