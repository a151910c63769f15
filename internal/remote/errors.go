package remote

import (
	"errors"
	"fmt"
)

// ErrRejectedBatch is wrapped by TransportError when the authority answers
// with success=false.
var ErrRejectedBatch = errors.New("remote rejected batch")

// TransportError reports that a batch produced no usable response: a network
// failure, a timeout, a non-2xx status or an undecodable body.
type TransportError struct {
	// Op is the request that failed (e.g., "send_batch")
	Op string
	// StatusCode is the HTTP status, or 0 when no response was received
	StatusCode int
	// Err is the underlying error
	Err error
}

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
