package status_test

import (
	"testing"

	"github.com/poiesic/vectorize/status"
	"github.com/poiesic/vectorize/status/trackertest"
	"github.com/stretchr/testify/assert"
)

func TestMemory(t *testing.T) {
	trackertest.Run(t, func(t *testing.T) status.Tracker {
		return status.NewMemory()
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to status.State
		want     bool
	}{
		{status.StatePending, status.StateRunning, true},
		{status.StatePending, status.StateFailed, true},
		{status.StatePending, status.StateCompleted, false},
		{status.StateRunning, status.StateCompleted, true},
		{status.StateRunning, status.StateFailed, true},
		{status.StateRunning, status.StateRunning, false},
		{status.StateCompleted, status.StateRunning, true},
		{status.StateCompleted, status.StateFailed, false},
		{status.StateFailed, status.StateRunning, true},
		{status.StateRunning, status.StatePending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, status.CanTransition(tt.from, tt.to))
		})
	}
}
