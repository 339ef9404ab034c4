// Package trackertest holds behavior tests every status.Tracker must pass.
package trackertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vectorize/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the suite against trackers created by open.
func Run(t *testing.T, open func(t *testing.T) status.Tracker) {
	ctx := context.Background()

	t.Run("lifecycle to completed", func(t *testing.T) {
		tr := open(t)
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "a", SourceType: "file", SourceName: "doc.txt"}))

		rec, err := tr.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, status.StatePending, rec.State)
		assert.Equal(t, "file", rec.SourceType)
		assert.Equal(t, "doc.txt", rec.SourceName)
		assert.False(t, rec.CreatedAt.IsZero())

		require.NoError(t, tr.MarkRunning(ctx, "a"))
		require.NoError(t, tr.MarkCompleted(ctx, "a"))
		rec, err = tr.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, status.StateCompleted, rec.State)
		assert.Empty(t, rec.Error)
	})

	t.Run("failure records reason", func(t *testing.T) {
		tr := open(t)
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "b"}))
		require.NoError(t, tr.MarkRunning(ctx, "b"))
		require.NoError(t, tr.MarkFailed(ctx, "b", "embed: backend down"))

		rec, err := tr.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, status.StateFailed, rec.State)
		assert.Equal(t, "embed: backend down", rec.Error)

		// reingestion runs a finished ingestion again
		require.NoError(t, tr.MarkRunning(ctx, "b"))
		rec, err = tr.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, status.StateRunning, rec.State)
		assert.Empty(t, rec.Error)
	})

	t.Run("invalid transitions", func(t *testing.T) {
		tr := open(t)
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "c"}))
		assert.ErrorIs(t, tr.MarkCompleted(ctx, "c"), status.ErrInvalidTransition)
		require.NoError(t, tr.MarkRunning(ctx, "c"))
		assert.ErrorIs(t, tr.MarkRunning(ctx, "c"), status.ErrInvalidTransition)
	})

	t.Run("unknown and duplicate ids", func(t *testing.T) {
		tr := open(t)
		_, err := tr.Get(ctx, "missing")
		assert.ErrorIs(t, err, status.ErrNotFound)
		assert.ErrorIs(t, tr.MarkRunning(ctx, "missing"), status.ErrNotFound)

		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "d"}))
		assert.ErrorIs(t, tr.Create(ctx, status.Record{IngestionID: "d"}), status.ErrExists)
	})

	t.Run("claim checks the current state", func(t *testing.T) {
		tr := open(t)
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "e"}))

		assert.ErrorIs(t, tr.Claim(ctx, "e", status.StateFailed), status.ErrInvalidTransition)
		require.NoError(t, tr.Claim(ctx, "e", status.StatePending, status.StateFailed))
		assert.ErrorIs(t, tr.Claim(ctx, "e", status.StatePending, status.StateFailed), status.ErrInvalidTransition)

		require.NoError(t, tr.MarkCompleted(ctx, "e"))
		assert.ErrorIs(t, tr.Claim(ctx, "e", status.StatePending, status.StateFailed), status.ErrInvalidTransition)
		require.NoError(t, tr.Claim(ctx, "e", status.StateCompleted))

		rec, err := tr.Get(ctx, "e")
		require.NoError(t, err)
		assert.Equal(t, status.StateRunning, rec.State)

		assert.ErrorIs(t, tr.Claim(ctx, "missing", status.StatePending), status.ErrNotFound)
	})

	t.Run("concurrent claims admit one winner", func(t *testing.T) {
		tr := open(t)
		for i := range 3 {
			id := fmt.Sprintf("race-%d", i)
			require.NoError(t, tr.Create(ctx, status.Record{IngestionID: id}))
			require.NoError(t, tr.MarkRunning(ctx, id))
			require.NoError(t, tr.MarkFailed(ctx, id, "boom"))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if tr.Claim(ctx, id, status.StatePending, status.StateFailed) == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load(), id)
		}
	})

	t.Run("list", func(t *testing.T) {
		tr := open(t)
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "x"}))
		require.NoError(t, tr.Create(ctx, status.Record{IngestionID: "y"}))
		list, err := tr.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		ids := []string{list[0].IngestionID, list[1].IngestionID}
		assert.ElementsMatch(t, []string{"x", "y"}, ids)
	})
}
