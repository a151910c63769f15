package store

import (
	"errors"
	"fmt"
)

// Generic store errors. Implementations wrap them with the entity-specific
// errors below so callers can match either level with errors.Is.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")
)

// Entity errors
var (
	// ErrTaskNotFound means no task row has the requested ID, or the row is
	// soft-deleted and the lookup hides deleted tasks.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	ErrTaskExists = fmt.Errorf("%w: task", ErrDuplicate)

	// ErrOutboxEntryNotFound is returned when attempt bookkeeping targets an
	// entry that has already been acknowledged.
	ErrOutboxEntryNotFound = fmt.Errorf("%w: outbox entry", ErrNotFound)

	ErrOutboxEntryExists = fmt.Errorf("%w: outbox entry", ErrDuplicate)
)
