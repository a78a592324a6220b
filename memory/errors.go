package memory

import (
	"errors"
	"fmt"
)

// ErrUnavailable signals that a backing store could not be reached within
// its timeout. It never crosses the engine's public boundary: the engine
// degrades to the other tier or returns an empty result instead.
var ErrUnavailable = errors.New("memory store unavailable")

// ErrNotFound signals that a record ID is unknown to a store. Forget
// matching nothing is a normal zero-count outcome, not this error.
var ErrNotFound = errors.New("memory record not found")

// EmbeddingError wraps a failure of the embedding dependency. Unlike store
// unavailability it is surfaced to callers, since no ranking is possible
// without the query vector. Retryable.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is (or wraps) store unavailability.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
