package domain

import "errors"

// ErrValidation is wrapped by every task and outbox entry validation error.
var ErrValidation = errors.New("validation failed")
