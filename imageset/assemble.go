package imageset

import (
	"context"
	"fmt"

	"github.com/arloliu/davisgo/array"
	"github.com/arloliu/davisgo/set"
)

// Load assembles every component of the set into a fully materialized
// dataset. The returned dataset is independent of the accessor; closing it
// is a no-op and the accessor can be closed right after.
func (a *Accessor) Load(ctx context.Context) (*array.Dataset, error) {
	arrays := make([]*array.Array, 0, len(a.schema.components))

	for _, comp := range a.schema.components {
		recordSize := a.schema.recordSize(comp)

		data, err := a.readRecords(ctx, comp, 0, a.schema.buffers)
		if err != nil {
			return nil, err
		}

		arr, err := a.buildArray(comp, array.Eager(data, a.schema.buffers, recordSize))
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, arr)
	}

	return array.NewDataset(a.Title(), arrays, a.datasetAttrs(), nil), nil
}

// LoadChunked assembles every component as a lazily materialized array:
// the time dimension is partitioned into chunks of the configured size and
// a chunk's payloads are read only on its first access. Distinct chunks
// load independently, in any order, memoized per chunk.
//
// The dataset borrows the accessor's set handle; its Close closes the
// accessor.
func (a *Accessor) LoadChunked(ctx context.Context) (*array.Dataset, error) {
	_ = ctx // loading is deferred entirely to chunk access

	arrays := make([]*array.Array, 0, len(a.schema.components))

	for _, comp := range a.schema.components {
		recordSize := a.schema.recordSize(comp)

		chunks := array.NewChunks(a.schema.buffers, a.chunkSize, recordSize,
			func(ctx context.Context, first, records int) ([]float64, error) {
				return a.readRecords(ctx, comp, first, records)
			})

		arr, err := a.buildArray(comp, chunks)
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, arr)
	}

	return array.NewDataset(a.Title(), arrays, a.datasetAttrs(), a.Close), nil
}

// readRecords reads and scales the samples of records [first, first+n) for
// one component, flattened (frame, z, y, x) row-major per record. Access to
// the vendor handle is serialized.
func (a *Accessor) readRecords(ctx context.Context, comp componentSchema, first, n int) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, set.ErrClosed
	}

	out := make([]float64, 0, n*a.schema.recordSize(comp))

	for b := first; b < first+n; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		buf, err := a.src.Buffer(b)
		if err != nil {
			return nil, err
		}
		for f := range a.schema.frames {
			frame, err := buf.Frame(f)
			if err != nil {
				return nil, err
			}
			c, err := frame.Component(comp.name)
			if err != nil {
				return nil, err
			}
			for z := range comp.planes {
				plane, err := c.Plane(z)
				if err != nil {
					return nil, fmt.Errorf("reading record %d component %q: %w", b, comp.name, err)
				}
				out = append(out, comp.scale.ApplyAll(plane)...)
			}
		}
	}

	return out, nil
}

func (a *Accessor) buildArray(comp componentSchema, chunks *array.Chunks) (*array.Array, error) {
	dims := array.NewDims(a.squeeze,
		array.Dim{Name: DimTime, Size: a.schema.buffers},
		array.Dim{Name: DimFrame, Size: a.schema.frames},
		array.Dim{Name: DimZ, Size: comp.planes},
		array.Dim{Name: DimY, Size: a.schema.ny},
		array.Dim{Name: DimX, Size: a.schema.nx},
	)

	attrs := map[string]string{}
	if u := a.reg.Resolve(comp.scale.Unit); !u.IsUnitless() {
		attrs["units"] = u.Symbol
	}
	if comp.scale.Description != "" {
		attrs["description"] = comp.scale.Description
	}

	return array.New(comp.name, dims, a.coords(dims, comp), attrs, chunks)
}

// coords builds the coordinate vectors for the active dimensions.
func (a *Accessor) coords(dims array.Dims, comp componentSchema) []*array.Coord {
	coords := make([]*array.Coord, 0, dims.Len())

	if dims.Has(DimTime) {
		coords = append(coords, a.timeCoord())
	}
	if dims.Has(DimFrame) {
		coords = append(coords, indexCoord(DimFrame, a.schema.frames))
	}
	if dims.Has(DimZ) {
		coords = append(coords, indexCoord(DimZ, comp.planes))
	}
	if dims.Has(DimY) {
		coords = append(coords, a.axisCoord(DimY, a.schema.ny, a.schema.grid.Y, a.schema.scaleY))
	}
	if dims.Has(DimX) {
		coords = append(coords, a.axisCoord(DimX, a.schema.nx, a.schema.grid.X, a.schema.scaleX))
	}

	return coords
}

// timeCoord labels the leading dimension with acquisition timestamps when
// the set carries them, record indices otherwise. Order is acquisition
// order, never re-sorted.
func (a *Accessor) timeCoord() *array.Coord {
	if a.schema.timestamps != nil {
		return &array.Coord{Name: DimTime, Times: a.schema.Timestamps()}
	}

	return indexCoord(DimTime, a.schema.buffers)
}

// axisCoord maps grid indices to physical axis positions. DaVis grids are
// one-based with a per-axis pixel step, so position i maps through
// scale(grid * (i+1)).
func (a *Accessor) axisCoord(name string, size, grid int, scale set.Scale) *array.Coord {
	values := make([]float64, size)
	for i := range size {
		values[i] = scale.Apply(float64(grid * (i + 1)))
	}

	c := &array.Coord{Name: name, Values: values, Unit: a.reg.Resolve(scale.Unit)}
	if !c.Unit.IsUnitless() {
		c.Attrs = map[string]string{"units": c.Unit.Symbol}
	}

	return c
}

func indexCoord(name string, size int) *array.Coord {
	values := make([]float64, size)
	for i := range size {
		values[i] = float64(i)
	}

	return &array.Coord{Name: name, Values: values}
}

// datasetAttrs renders the collected record attributes plus the set title
// into the dataset attribute map.
func (a *Accessor) datasetAttrs() map[string]string {
	attrs := make(map[string]string, len(a.attrs)+1)
	for key, at := range a.attrs {
		attrs[key] = at.StringValue()
	}
	if title := a.Title(); title != "" {
		attrs["title"] = title
	}

	return attrs
}
