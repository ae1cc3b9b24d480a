// Package imageset assembles labeled arrays from vendor set records.
//
// The Accessor peeks at the first record of a set to derive the coordinate
// schema (dimension names and order, coordinate vectors, units per axis),
// validates every further record against it, and stacks sample payloads
// along the leading time dimension in acquisition order. Loading is either
// eager (Load) or chunked and lazy (LoadChunked), where a chunk's payload
// bytes are read only when that chunk is first accessed.
package imageset

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/davisgo/attr"
	"github.com/arloliu/davisgo/internal/hash"
	"github.com/arloliu/davisgo/internal/options"
	"github.com/arloliu/davisgo/set"
	"github.com/arloliu/davisgo/units"
)

// Dimension names of assembled arrays, leading to trailing.
const (
	DimTime  = "time"
	DimFrame = "frame"
	DimZ     = "z"
	DimY     = "y"
	DimX     = "x"
)

// timestampKey is the vendor attribute carrying the acquisition timestamp.
const timestampKey = "Timestamp"

type componentSchema struct {
	name   string
	planes int
	scale  set.Scale
}

// Schema is the coordinate schema derived from the first record and shared
// by every record of a set.
type Schema struct {
	buffers int
	frames  int
	ny      int
	nx      int

	grid   set.Grid
	scaleX set.Scale
	scaleY set.Scale

	components []componentSchema

	// timestamps holds one acquisition time per record when every record
	// carries a parseable Timestamp attribute; nil otherwise.
	timestamps []time.Time
}

// Components returns the component names in vendor order.
func (s *Schema) Components() []string {
	names := make([]string, len(s.components))
	for i, c := range s.components {
		names[i] = c.name
	}

	return names
}

// NumRecords returns the number of records along the time dimension.
func (s *Schema) NumRecords() int { return s.buffers }

// FrameShape returns the per-plane grid as (ny, nx).
func (s *Schema) FrameShape() (ny, nx int) { return s.ny, s.nx }

// Timestamps returns the per-record acquisition times, or nil when the set
// does not carry usable timestamps.
func (s *Schema) Timestamps() []time.Time {
	return append([]time.Time(nil), s.timestamps...)
}

// Fingerprint returns a stable hash of the dimension layout, useful for
// cheaply comparing schemas across loads.
func (s *Schema) Fingerprint() uint64 {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%d f=%d y=%d x=%d g=%d,%d", s.buffers, s.frames, s.ny, s.nx, s.grid.X, s.grid.Y)
	for _, c := range s.components {
		fmt.Fprintf(&b, " %s/%d", c.name, c.planes)
	}

	return hash.ID(b.String())
}

func (s *Schema) component(name string) (componentSchema, bool) {
	for _, c := range s.components {
		if c.name == name {
			return c, true
		}
	}

	return componentSchema{}, false
}

// recordSize returns the number of samples one record contributes to the
// named component's array.
func (s *Schema) recordSize(c componentSchema) int {
	return s.frames * c.planes * s.ny * s.nx
}

// Accessor wraps an open set handle and assembles labeled arrays from it.
//
// The accessor owns the handle: Close releases it, and constructing an
// accessor with New transfers ownership even on failure. Lazy arrays built
// by LoadChunked keep reading through the accessor, so it must stay open
// until they are materialized.
type Accessor struct {
	src    set.Set
	schema Schema
	attrs  map[string]attr.Attribute

	reg       *units.Registry
	logger    *slog.Logger
	squeeze   bool
	chunkSize int

	// mu serializes access to the vendor handle; chunk loaders may run
	// from multiple goroutines but the reader is not assumed reentrant.
	mu     sync.Mutex
	closed bool
}

// Option configures an Accessor.
type Option = options.Option[*Accessor]

// WithSqueeze controls dropping of singleton dimensions (default true).
// With squeezing on, a single-frame single-plane set yields (time, y, x).
func WithSqueeze(squeeze bool) Option {
	return options.NoError(func(a *Accessor) {
		a.squeeze = squeeze
	})
}

// WithUnits sets the registry used to resolve vendor unit strings.
func WithUnits(reg *units.Registry) Option {
	return options.NoError(func(a *Accessor) {
		a.reg = reg
	})
}

// WithLogger sets the logger for warning-level diagnostics (unit fallbacks,
// unparseable timestamps). The default discards them.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(a *Accessor) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		a.logger = logger
	})
}

// WithChunkSize sets the number of records per chunk for LoadChunked
// (default 1, matching one vendor buffer per chunk).
func WithChunkSize(n int) Option {
	return options.New(func(a *Accessor) error {
		if n < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", n)
		}
		a.chunkSize = n
		return nil
	})
}

// New derives the coordinate schema from the first record of s and
// validates every further record's metadata against it. Ownership of s
// passes to the accessor; on error the handle is closed before returning.
func New(s set.Set, opts ...Option) (*Accessor, error) {
	a := &Accessor{
		src:       s,
		logger:    slog.New(slog.DiscardHandler),
		squeeze:   true,
		chunkSize: 1,
	}
	if err := options.Apply(a, opts...); err != nil {
		s.Close()
		return nil, err
	}
	if a.reg == nil {
		a.reg = units.NewRegistry(units.WithLogger(a.logger))
	}

	if err := a.establishSchema(); err != nil {
		s.Close()
		return nil, err
	}

	return a, nil
}

// Schema returns the established coordinate schema.
func (a *Accessor) Schema() *Schema { return &a.schema }

// Title returns the set title.
func (a *Accessor) Title() string { return a.src.Title() }

// Attributes returns the typed attributes collected from the first record.
func (a *Accessor) Attributes() map[string]attr.Attribute { return a.attrs }

// Close releases the underlying set handle. Safe to call repeatedly.
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	return a.src.Close()
}

// establishSchema performs the single metadata pass: derive the schema
// from record 0, then check each later record against it and collect
// timestamps.
func (a *Accessor) establishSchema() error {
	if a.src.Len() == 0 {
		return fmt.Errorf("set %q holds no records", a.src.Title())
	}

	var (
		times    []time.Time
		haveTime = true
	)

	for record, err := range set.Records(a.src) {
		if err != nil {
			return err
		}

		if record.Index == 0 {
			if err := a.schemaFromFirst(record.Buffer); err != nil {
				return err
			}
		} else if err := a.checkRecord(record.Index, record.Buffer); err != nil {
			return err
		}

		if !haveTime {
			continue
		}
		ts, ok := a.recordTimestamp(record.Index, record.Buffer)
		if !ok {
			haveTime = false
			times = nil
			continue
		}
		times = append(times, ts)
	}

	if haveTime {
		a.schema.timestamps = times
	}

	return nil
}

func (a *Accessor) schemaFromFirst(buf set.Buffer) error {
	frame, err := buf.Frame(0)
	if err != nil {
		return err
	}

	ny, nx := frame.Shape()
	sx, sy := frame.AxisScales()

	a.schema = Schema{
		buffers: a.src.Len(),
		frames:  buf.Len(),
		ny:      ny,
		nx:      nx,
		grid:    frame.Grid(),
		scaleX:  sx,
		scaleY:  sy,
	}

	for _, name := range frame.Components() {
		comp, err := frame.Component(name)
		if err != nil {
			return err
		}
		a.schema.components = append(a.schema.components, componentSchema{
			name:   name,
			planes: comp.Planes(),
			scale:  comp.Scale(),
		})
	}

	a.attrs = attr.Collect(buf.Attributes(), frame.Attributes(), a.reg)

	return nil
}

// checkRecord validates one record's metadata against the established
// schema.
func (a *Accessor) checkRecord(index int, buf set.Buffer) error {
	if buf.Len() != a.schema.frames {
		return &SchemaMismatchError{Record: index, Field: "frame count", Want: a.schema.frames, Got: buf.Len()}
	}

	for f := range buf.Len() {
		frame, err := buf.Frame(f)
		if err != nil {
			return err
		}

		ny, nx := frame.Shape()
		if ny != a.schema.ny || nx != a.schema.nx {
			return &SchemaMismatchError{
				Record: index,
				Field:  "frame shape",
				Want:   fmt.Sprintf("%dx%d", a.schema.ny, a.schema.nx),
				Got:    fmt.Sprintf("%dx%d", ny, nx),
			}
		}

		names := frame.Components()
		if len(names) != len(a.schema.components) {
			return &SchemaMismatchError{
				Record: index,
				Field:  "component count",
				Want:   len(a.schema.components),
				Got:    len(names),
			}
		}
		for i, name := range names {
			want := a.schema.components[i]
			if name != want.name {
				return &SchemaMismatchError{Record: index, Field: "component order", Want: want.name, Got: name}
			}
			comp, err := frame.Component(name)
			if err != nil {
				return err
			}
			if comp.Planes() != want.planes {
				return &SchemaMismatchError{
					Record: index,
					Field:  fmt.Sprintf("component %q planes", name),
					Want:   want.planes,
					Got:    comp.Planes(),
				}
			}
		}
	}

	return nil
}

// recordTimestamp extracts the record's acquisition time from its frame or
// buffer attributes. An absent key is normal; a present but unparseable
// value is logged and downgrades the whole set to index coordinates.
func (a *Accessor) recordTimestamp(index int, buf set.Buffer) (time.Time, bool) {
	raw, ok := a.rawTimestamp(buf)
	if !ok {
		return time.Time{}, false
	}

	ts, err := attr.ParseTimestamp(raw)
	if err != nil {
		a.logger.Warn("unparseable record timestamp, using index coordinates",
			"record", index, "value", raw)
		return time.Time{}, false
	}

	return ts, true
}

func (a *Accessor) rawTimestamp(buf set.Buffer) (string, bool) {
	if frame, err := buf.Frame(0); err == nil {
		if s, ok := frame.Attributes().String(timestampKey); ok {
			return s, true
		}
	}

	return buf.Attributes().String(timestampKey)
}
