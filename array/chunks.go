package array

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ChunkLoader reads the samples of one chunk, leading-dimension records
// [first, first+records) flattened in row-major order. Loaders must be safe
// to call from multiple goroutines; loaders that share a set handle
// serialize around it internally.
type ChunkLoader func(ctx context.Context, first, records int) ([]float64, error)

// Chunks is the storage of a labeled array: the leading dimension is
// partitioned into fixed-size chunks that are materialized independently,
// on demand and at most once. Chunk boundaries never split a record.
type Chunks struct {
	records    int // leading-dimension length
	chunkSize  int // records per chunk (last chunk may be short)
	recordSize int // elements per record

	load   ChunkLoader
	once   []sync.Once
	loaded []atomic.Bool
	data   [][]float64
	errs   []error
}

// NewChunks creates lazy chunk storage. chunkSize is clamped to [1, records].
func NewChunks(records, chunkSize, recordSize int, load ChunkLoader) *Chunks {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if chunkSize > records {
		chunkSize = records
	}

	n := 0
	if records > 0 {
		n = (records + chunkSize - 1) / chunkSize
	}

	return &Chunks{
		records:    records,
		chunkSize:  chunkSize,
		recordSize: recordSize,
		load:       load,
		once:       make([]sync.Once, n),
		loaded:     make([]atomic.Bool, n),
		data:       make([][]float64, n),
		errs:       make([]error, n),
	}
}

// Eager wraps fully materialized data as a single preloaded chunk.
func Eager(data []float64, records, recordSize int) *Chunks {
	c := NewChunks(records, records, recordSize, nil)
	if len(c.data) == 1 {
		c.once[0].Do(func() {})
		c.data[0] = data
		c.loaded[0].Store(true)
	}

	return c
}

// NumChunks returns the number of chunks.
func (c *Chunks) NumChunks() int {
	return len(c.data)
}

// NumRecords returns the leading-dimension length.
func (c *Chunks) NumRecords() int {
	return c.records
}

// RecordSize returns the number of elements per leading-dimension record.
func (c *Chunks) RecordSize() int {
	return c.recordSize
}

// ChunkRecords returns the number of records held by chunk i.
func (c *Chunks) ChunkRecords(i int) int {
	first := i * c.chunkSize
	n := c.records - first
	if n > c.chunkSize {
		n = c.chunkSize
	}

	return n
}

// Loaded reports whether chunk i has been materialized successfully.
func (c *Chunks) Loaded(i int) bool {
	return c.loaded[i].Load()
}

// Chunk materializes and returns chunk i. The load happens once; later
// calls return the memoized samples (or the sticky load error). The
// returned slice is shared storage and must not be modified.
func (c *Chunks) Chunk(ctx context.Context, i int) ([]float64, error) {
	if i < 0 || i >= len(c.data) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", i, len(c.data))
	}

	c.once[i].Do(func() {
		first := i * c.chunkSize
		records := c.ChunkRecords(i)

		data, err := c.load(ctx, first, records)
		if err != nil {
			c.errs[i] = err
			return
		}
		if want := records * c.recordSize; len(data) != want {
			c.errs[i] = fmt.Errorf("chunk %d: loader returned %d samples, want %d", i, len(data), want)
			return
		}

		c.data[i] = data
		c.loaded[i].Store(true)
	})

	return c.data[i], c.errs[i]
}

// Materialize loads all outstanding chunks. Chunks are computed
// independently and in no particular order.
func (c *Chunks) Materialize(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range c.data {
		if c.Loaded(i) {
			continue
		}
		g.Go(func() error {
			_, err := c.Chunk(ctx, i)
			return err
		})
	}

	return g.Wait()
}

// Values materializes everything and returns the samples of all records
// concatenated in leading-dimension order.
func (c *Chunks) Values(ctx context.Context) ([]float64, error) {
	if err := c.Materialize(ctx); err != nil {
		return nil, err
	}

	if len(c.data) == 1 {
		return c.data[0], nil
	}

	out := make([]float64, 0, c.records*c.recordSize)
	for _, chunk := range c.data {
		out = append(out, chunk...)
	}

	return out, nil
}

// At returns the sample at a flat element offset, materializing only the
// chunk that holds it.
func (c *Chunks) At(ctx context.Context, flat int) (float64, error) {
	if flat < 0 || flat >= c.records*c.recordSize {
		return 0, fmt.Errorf("element offset %d out of range [0, %d)", flat, c.records*c.recordSize)
	}

	record := flat / c.recordSize
	chunk := record / c.chunkSize

	data, err := c.Chunk(ctx, chunk)
	if err != nil {
		return 0, err
	}

	return data[flat-chunk*c.chunkSize*c.recordSize], nil
}
