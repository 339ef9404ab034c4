package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedding wraps failures reported by an embedding backend.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCountMismatch is returned when an embedder returns a different
	// number of vectors than inputs.
	ErrCountMismatch = errors.New("embedding count mismatch")

	// ErrEmbedderRequired is returned when a nil embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrUnknownProvider is returned for an unrecognised provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// BackendError wraps err so that errors.Is matches ErrEmbedding.
func BackendError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrEmbedding, provider, err)
}
