package status

import "errors"

var (
	// ErrNotFound is returned for an unknown ingestion id.
	ErrNotFound = errors.New("ingestion not found")

	// ErrExists is returned when creating an id that is already tracked.
	ErrExists = errors.New("ingestion already exists")

	// ErrInvalidTransition is returned for a state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
