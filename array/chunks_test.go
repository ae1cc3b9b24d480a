package array

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// countingLoader yields record r as [r*10, r*10+1, ...] and counts calls.
func countingLoader(recordSize int, calls *atomic.Int64) ChunkLoader {
	return func(_ context.Context, first, records int) ([]float64, error) {
		calls.Add(1)

		out := make([]float64, 0, records*recordSize)
		for r := first; r < first+records; r++ {
			for e := range recordSize {
				out = append(out, float64(r*10+e))
			}
		}

		return out, nil
	}
}

func TestChunks_Lazy(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing loads before first access", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(4, 1, 2, countingLoader(2, &calls))

		require.Equal(t, 4, c.NumChunks())
		require.Equal(t, int64(0), calls.Load())
		for i := range c.NumChunks() {
			require.False(t, c.Loaded(i))
		}
	})

	t.Run("accessing one chunk leaves the others unloaded", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(4, 1, 2, countingLoader(2, &calls))

		got, err := c.Chunk(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, []float64{20, 21}, got)

		require.Equal(t, int64(1), calls.Load())
		require.True(t, c.Loaded(2))
		require.False(t, c.Loaded(0))
		require.False(t, c.Loaded(1))
		require.False(t, c.Loaded(3))
	})

	t.Run("chunks load in any order", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(3, 1, 1, countingLoader(1, &calls))

		for _, i := range []int{2, 0, 1} {
			got, err := c.Chunk(ctx, i)
			require.NoError(t, err)
			require.Equal(t, []float64{float64(i * 10)}, got)
		}
	})

	t.Run("loads are memoized", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(2, 1, 1, countingLoader(1, &calls))

		first, err := c.Chunk(ctx, 0)
		require.NoError(t, err)
		second, err := c.Chunk(ctx, 0)
		require.NoError(t, err)

		require.Equal(t, int64(1), calls.Load())
		require.Equal(t, first, second)
	})
}

func TestChunks_Boundaries(t *testing.T) {
	ctx := context.Background()

	t.Run("last chunk may be short", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(5, 2, 3, countingLoader(3, &calls))

		require.Equal(t, 3, c.NumChunks())
		require.Equal(t, 2, c.ChunkRecords(0))
		require.Equal(t, 2, c.ChunkRecords(1))
		require.Equal(t, 1, c.ChunkRecords(2))

		got, err := c.Chunk(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 3, "one record of three elements")
	})

	t.Run("chunk size clamps to record count", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(2, 100, 1, countingLoader(1, &calls))
		require.Equal(t, 1, c.NumChunks())
	})

	t.Run("out of range chunk index fails", func(t *testing.T) {
		c := NewChunks(2, 1, 1, countingLoader(1, new(atomic.Int64)))

		_, err := c.Chunk(ctx, -1)
		require.Error(t, err)
		_, err = c.Chunk(ctx, 2)
		require.Error(t, err)
	})

	t.Run("short loader result is rejected", func(t *testing.T) {
		c := NewChunks(2, 1, 4, func(context.Context, int, int) ([]float64, error) {
			return []float64{1}, nil
		})

		_, err := c.Chunk(ctx, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "want 4")
		require.False(t, c.Loaded(0))
	})
}

func TestChunks_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("load errors are sticky", func(t *testing.T) {
		var calls atomic.Int64
		boom := errors.New("payload unreadable")
		c := NewChunks(2, 1, 1, func(context.Context, int, int) ([]float64, error) {
			calls.Add(1)
			return nil, boom
		})

		_, err := c.Chunk(ctx, 0)
		require.ErrorIs(t, err, boom)
		_, err = c.Chunk(ctx, 0)
		require.ErrorIs(t, err, boom)
		require.Equal(t, int64(1), calls.Load(), "failed load is not retried")
	})
}

func TestChunks_Materialize(t *testing.T) {
	ctx := context.Background()

	t.Run("loads every outstanding chunk", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(4, 1, 1, countingLoader(1, &calls))

		_, err := c.Chunk(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, c.Materialize(ctx))
		require.Equal(t, int64(4), calls.Load())
		for i := range c.NumChunks() {
			require.True(t, c.Loaded(i))
		}
	})

	t.Run("values concatenates in record order", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(3, 2, 2, countingLoader(2, &calls))

		got, err := c.Values(ctx)
		require.NoError(t, err)
		require.Equal(t, []float64{0, 1, 10, 11, 20, 21}, got)
	})

	t.Run("propagates the first failure", func(t *testing.T) {
		boom := errors.New("bad chunk")
		c := NewChunks(3, 1, 1, func(_ context.Context, first, _ int) ([]float64, error) {
			if first == 1 {
				return nil, boom
			}
			return []float64{0}, nil
		})

		require.ErrorIs(t, c.Materialize(ctx), boom)
	})
}

func TestChunks_At(t *testing.T) {
	ctx := context.Background()

	t.Run("touches only the owning chunk", func(t *testing.T) {
		var calls atomic.Int64
		c := NewChunks(4, 1, 3, countingLoader(3, &calls))

		v, err := c.At(ctx, 2*3+1)
		require.NoError(t, err)
		require.Equal(t, 21.0, v)
		require.Equal(t, int64(1), calls.Load())
	})

	t.Run("out of range offsets fail", func(t *testing.T) {
		c := NewChunks(2, 1, 2, countingLoader(2, new(atomic.Int64)))

		_, err := c.At(ctx, -1)
		require.Error(t, err)
		_, err = c.At(ctx, 4)
		require.Error(t, err)
	})
}

func TestChunks_Eager(t *testing.T) {
	ctx := context.Background()

	c := Eager([]float64{1, 2, 3, 4}, 2, 2)

	require.Equal(t, 1, c.NumChunks())
	require.True(t, c.Loaded(0))

	got, err := c.Values(ctx)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 4}, got)
}
