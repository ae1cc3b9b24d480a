// Package set defines the capability boundary to the vendor set reader.
//
// A DaVis set is a container of acquisition buffers; each buffer holds one
// or more frames, and each frame holds named components (PIXEL, U, V, ...)
// whose planes carry the actual sample payloads. Decoding the proprietary
// container is owned entirely by implementations of the Reader interface;
// everything above this package treats the reader as a black box exposing
// open, enumerate and close.
//
// Iteration over records is a finite, single-pass lazy sequence. The Set
// handle stays owned by the caller: aborting iteration early must still be
// followed by Close, typically via defer, so file handles are released
// deterministically.
package set

import "iter"

// Attributes is a vendor metadata map. Values are one of string, int64,
// float64, []float64 or []byte (raw vendor bytes, normalized to strings by
// the attr package). A nil map is a legitimate "no attributes" state and
// must never be treated as an error.
type Attributes map[string]any

// String fetches a string-typed attribute, converting raw bytes if needed.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}

	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// Grid describes the sample spacing of a frame in pixels per axis.
// Camera images have spacing 1; vector fields carry the interrogation
// window step (16, 32, ...).
type Grid struct {
	X int
	Y int
}

// Component is one named channel of a frame (e.g. "PIXEL", "U", "V").
type Component interface {
	// Name returns the vendor channel name.
	Name() string

	// Shape returns the per-plane sample grid as (ny, nx).
	Shape() (ny, nx int)

	// Planes returns the number of z planes.
	Planes() int

	// Scale returns the intensity scale mapping raw samples to physical values.
	Scale() Scale

	// Plane reads the raw, unscaled samples of one plane in row-major order.
	Plane(i int) ([]float64, error)
}

// Frame is one exposure within a buffer.
type Frame interface {
	// Shape returns the per-plane sample grid as (ny, nx).
	Shape() (ny, nx int)

	// Components returns the channel names in stable vendor order.
	Components() []string

	// Component returns the named channel.
	Component(name string) (Component, error)

	// Grid returns the sample spacing in pixels.
	Grid() Grid

	// AxisScales returns the spatial scales of the x and y axes.
	AxisScales() (x, y Scale)

	// Attributes returns frame-level metadata. May be nil.
	Attributes() Attributes
}

// Buffer is one acquisition record of a set.
type Buffer interface {
	// Len returns the number of frames in the buffer.
	Len() int

	// Frame returns the i-th frame.
	Frame(i int) (Frame, error)

	// Attributes returns buffer-level metadata. May be nil.
	Attributes() Attributes
}

// Set is an open vendor container. Implementations may hold file handles
// open for the lifetime of the value; Close releases them and is safe to
// call more than once.
type Set interface {
	// Title returns the set title, possibly empty.
	Title() string

	// Len returns the number of buffers.
	Len() int

	// Buffer returns the i-th buffer.
	Buffer(i int) (Buffer, error)

	// Attributes returns set-level metadata. May be nil.
	Attributes() Attributes

	// Close releases the underlying handles. Safe to call repeatedly.
	Close() error
}

// Reader opens vendor containers. The native DaVis reader, the simset
// reference reader and in-memory fakes all satisfy this interface.
type Reader interface {
	// Open opens the set at path. It returns *OpenError when the path does
	// not hold a readable container.
	Open(path string) (Set, error)
}

// Record pairs one buffer with its position in the set.
type Record struct {
	// Index is the zero-based acquisition order of the record.
	Index int

	// Buffer holds the record's frames and metadata.
	Buffer Buffer
}

// Records returns an ordered single-pass sequence over the records of s.
//
// The sequence stops at the first enumeration error, yielding it once.
// Breaking out of the loop early is fine; the caller's deferred Close on
// the set still releases the handle.
func Records(s Set) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for i := range s.Len() {
			buf, err := s.Buffer(i)
			if err != nil {
				yield(Record{Index: i}, err)
				return
			}
			if !yield(Record{Index: i, Buffer: buf}, nil) {
				return
			}
		}
	}
}
