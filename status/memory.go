package status

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Tracker.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

var _ Tracker = (*Memory)(nil)

// NewMemory creates an empty tracker.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record), now: time.Now}
}

func (m *Memory) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.IngestionID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.IngestionID)
	}
	now := m.now().UTC()
	rec.State = StatePending
	rec.Error = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.IngestionID] = &rec
	return nil
}

func (m *Memory) transition(id string, to State, reason string, allowed ...State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := CheckTransitionFrom(id, rec.State, to, allowed...); err != nil {
		return err
	}
	rec.State = to
	rec.Error = reason
	rec.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) MarkRunning(_ context.Context, id string) error {
	return m.transition(id, StateRunning, "")
}

func (m *Memory) Claim(_ context.Context, id string, from ...State) error {
	return m.transition(id, StateRunning, "", from...)
}

func (m *Memory) MarkCompleted(_ context.Context, id string) error {
	return m.transition(id, StateCompleted, "")
}

func (m *Memory) MarkFailed(_ context.Context, id string, reason string) error {
	return m.transition(id, StateFailed, reason)
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *rec
	return &out, nil
}

func (m *Memory) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		c := *rec
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.IngestionID, b.IngestionID)
	})
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
