// Package status tracks the lifecycle of ingestions:
// pending, then running, then completed or failed. A finished ingestion may
// run again when it is reingested.
package status

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// State is an ingestion's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// States lists every lifecycle state.
func States() []State {
	return []State{StatePending, StateRunning, StateCompleted, StateFailed}
}

// Record is the tracked state of one ingestion.
type Record struct {
	IngestionID string
	// SourceType is the kind of input, such as "text" or "file".
	SourceType string
	SourceName string
	State      State
	// Error holds the failure reason when State is StateFailed.
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tracker persists ingestion lifecycle records.
// Implementations must be thread-safe.
type Tracker interface {
	// Create starts tracking rec in StatePending.
	Create(ctx context.Context, rec Record) error
	MarkRunning(ctx context.Context, ingestionID string) error
	// Claim moves an ingestion to StateRunning only when its current state
	// is one of from. The check and the update happen atomically, so of two
	// concurrent claims at most one succeeds.
	Claim(ctx context.Context, ingestionID string, from ...State) error
	MarkCompleted(ctx context.Context, ingestionID string) error
	MarkFailed(ctx context.Context, ingestionID string, reason string) error
	Get(ctx context.Context, ingestionID string) (*Record, error)
	// List returns every record, most recently created first.
	List(ctx context.Context) ([]*Record, error)
	Close() error
}

// CanTransition reports whether the lifecycle allows moving from one state to another.
func CanTransition(from, to State) bool {
	switch to {
	case StateRunning:
		return from == StatePending || from == StateCompleted || from == StateFailed
	case StateCompleted:
		return from == StateRunning
	case StateFailed:
		return from == StatePending || from == StateRunning
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when CanTransition is false.
func CheckTransition(id string, from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, id, from, to)
	}
	return nil
}

// CheckTransitionFrom is CheckTransition restricted to the states in allowed.
// An empty allowed list permits every state.
func CheckTransitionFrom(id string, from, to State, allowed ...State) error {
	if len(allowed) > 0 && !slices.Contains(allowed, from) {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, from)
	}
	return CheckTransition(id, from, to)
}
