package array

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/davisgo/units"
	"golang.org/x/sync/errgroup"
)

// Coord is the coordinate vector of one dimension. Exactly one of Values or
// Times is populated: spatial axes carry numeric labels, the leading time
// axis may carry acquisition timestamps.
type Coord struct {
	Name   string
	Values []float64
	Times  []time.Time
	Unit   units.Unit
	Attrs  map[string]string
}

// IsTime reports whether the coordinate holds timestamps.
func (c *Coord) IsTime() bool {
	return c.Times != nil
}

// Len returns the number of coordinate labels.
func (c *Coord) Len() int {
	if c.IsTime() {
		return len(c.Times)
	}

	return len(c.Values)
}

// Array is a labeled multi-dimensional array: named dimensions, coordinate
// vectors, an attributes map and chunked sample storage. Values are stored
// row-major with the leading dimension first.
type Array struct {
	name   string
	dims   Dims
	coords map[string]*Coord
	attrs  map[string]string
	chunks *Chunks
}

// New assembles a labeled array from its parts. Coordinates must match
// their dimension's size; coordinates for inactive (squeezed) dimensions
// are rejected.
func New(name string, dims Dims, coords []*Coord, attrs map[string]string, chunks *Chunks) (*Array, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}

	cm := make(map[string]*Coord, len(coords))
	for _, c := range coords {
		size, ok := dims.Size(c.Name)
		if !ok {
			return nil, fmt.Errorf("coordinate %q has no matching dimension", c.Name)
		}
		if c.Len() != size {
			return nil, fmt.Errorf("coordinate %q has %d labels, dimension has size %d", c.Name, c.Len(), size)
		}
		cm[c.Name] = c
	}

	if want := dims.NumElements(); chunks.NumRecords()*chunks.RecordSize() != want {
		return nil, fmt.Errorf("storage holds %d elements, dimensions describe %d",
			chunks.NumRecords()*chunks.RecordSize(), want)
	}

	return &Array{name: name, dims: dims, coords: cm, attrs: attrs, chunks: chunks}, nil
}

// Name returns the array (component) name.
func (a *Array) Name() string { return a.name }

// Dims returns the dimension set.
func (a *Array) Dims() Dims { return a.dims }

// Shape returns the active shape.
func (a *Array) Shape() []int { return a.dims.Shape() }

// Attrs returns the attributes map. It is never nil; absence of vendor
// attributes yields an empty map.
func (a *Array) Attrs() map[string]string { return a.attrs }

// Coord returns the coordinate vector of a dimension, if present.
func (a *Array) Coord(name string) (*Coord, bool) {
	c, ok := a.coords[name]
	return c, ok
}

// NumChunks returns the number of chunks along the leading dimension.
func (a *Array) NumChunks() int { return a.chunks.NumChunks() }

// ChunkLoaded reports whether chunk i is materialized.
func (a *Array) ChunkLoaded(i int) bool { return a.chunks.Loaded(i) }

// Chunk materializes and returns one chunk's samples.
func (a *Array) Chunk(ctx context.Context, i int) ([]float64, error) {
	return a.chunks.Chunk(ctx, i)
}

// Values materializes the whole array and returns its samples row-major.
func (a *Array) Values(ctx context.Context) ([]float64, error) {
	return a.chunks.Values(ctx)
}

// Materialize loads every outstanding chunk.
func (a *Array) Materialize(ctx context.Context) error {
	return a.chunks.Materialize(ctx)
}

// At returns the sample at the given per-dimension indices, materializing
// only the chunk that holds it.
func (a *Array) At(ctx context.Context, indices ...int) (float64, error) {
	shape := a.dims.shape
	if len(indices) != len(shape) {
		return 0, fmt.Errorf("got %d indices for %d dimensions", len(indices), len(shape))
	}

	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %q (size %d)",
				idx, a.dims.names[i], shape[i])
		}
		flat = flat*shape[i] + idx
	}

	return a.chunks.At(ctx, flat)
}

// Dataset is a collection of labeled arrays sharing coordinates, plus
// set-level attributes. Closing the dataset releases the underlying set
// handle of lazily loaded datasets; for eager datasets it is a no-op.
type Dataset struct {
	title  string
	order  []string
	arrays map[string]*Array
	attrs  map[string]string
	closer func() error
	closed bool
}

// NewDataset assembles a dataset. closer may be nil.
func NewDataset(title string, arrays []*Array, attrs map[string]string, closer func() error) *Dataset {
	if attrs == nil {
		attrs = map[string]string{}
	}

	ds := &Dataset{
		title:  title,
		arrays: make(map[string]*Array, len(arrays)),
		attrs:  attrs,
		closer: closer,
	}
	for _, a := range arrays {
		ds.order = append(ds.order, a.Name())
		ds.arrays[a.Name()] = a
	}

	return ds
}

// Title returns the set title.
func (ds *Dataset) Title() string { return ds.title }

// Names returns the array names in assembly order.
func (ds *Dataset) Names() []string {
	return append([]string(nil), ds.order...)
}

// Get returns the named array.
func (ds *Dataset) Get(name string) (*Array, bool) {
	a, ok := ds.arrays[name]
	return a, ok
}

// Attrs returns the dataset attributes map, never nil.
func (ds *Dataset) Attrs() map[string]string { return ds.attrs }

// Materialize loads every chunk of every array. Arrays and chunks are
// loaded concurrently with no ordering guarantees.
func (ds *Dataset) Materialize(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range ds.order {
		g.Go(func() error {
			return ds.arrays[name].Materialize(ctx)
		})
	}

	return g.Wait()
}

// Close releases the underlying resources once. Later calls are no-ops.
func (ds *Dataset) Close() error {
	if ds.closed || ds.closer == nil {
		ds.closed = true
		return nil
	}
	ds.closed = true

	return ds.closer()
}
