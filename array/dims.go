// Package array provides labeled multi-dimensional array values: named
// dimensions, per-dimension coordinate vectors, unit-annotated attributes
// and lazily materialized chunk storage along the leading dimension.
package array

import (
	"fmt"
	"strings"
)

// Dim is one named dimension with its full (unsqueezed) size.
type Dim struct {
	Name string
	Size int
}

// Dims is an ordered set of named dimensions. With squeezing enabled,
// dimensions of size <= 1 are dropped from the active shape while remaining
// addressable for extension via With.
type Dims struct {
	squeeze bool
	all     []Dim

	names []string
	shape []int
}

// NewDims builds a dimension set. Dimension order is significant.
func NewDims(squeeze bool, dims ...Dim) Dims {
	d := Dims{squeeze: squeeze, all: dims}
	for _, dim := range dims {
		if squeeze && dim.Size <= 1 {
			continue
		}
		d.names = append(d.names, dim.Name)
		d.shape = append(d.shape, dim.Size)
	}

	return d
}

// Names returns the active dimension names in order.
func (d Dims) Names() []string {
	return append([]string(nil), d.names...)
}

// Shape returns the active sizes in dimension order.
func (d Dims) Shape() []int {
	return append([]int(nil), d.shape...)
}

// Len returns the number of active dimensions.
func (d Dims) Len() int {
	return len(d.names)
}

// Size returns the active size of a named dimension.
func (d Dims) Size(name string) (int, bool) {
	for i, n := range d.names {
		if n == name {
			return d.shape[i], true
		}
	}

	return 0, false
}

// Has reports whether name is an active dimension.
func (d Dims) Has(name string) bool {
	_, ok := d.Size(name)
	return ok
}

// NumElements returns the product of the active sizes.
func (d Dims) NumElements() int {
	n := 1
	for _, s := range d.shape {
		n *= s
	}

	return n
}

// Squeezed reports whether singleton dimensions are dropped.
func (d Dims) Squeezed() bool {
	return d.squeeze
}

// With returns a copy extended by additional trailing dimensions. Extending
// with an existing name is an error; dimension identity is positional and
// renaming in place would corrupt it.
func (d Dims) With(dims ...Dim) (Dims, error) {
	for _, dim := range dims {
		for _, existing := range d.all {
			if existing.Name == dim.Name {
				return Dims{}, fmt.Errorf("cannot override existing dimension %q", dim.Name)
			}
		}
	}

	all := make([]Dim, 0, len(d.all)+len(dims))
	all = append(all, d.all...)
	all = append(all, dims...)

	return NewDims(d.squeeze, all...), nil
}

// Equal reports whether the active dimensions of both sets match in name,
// order and size.
func (d Dims) Equal(other Dims) bool {
	if len(d.names) != len(other.names) {
		return false
	}
	for i := range d.names {
		if d.names[i] != other.names[i] || d.shape[i] != other.shape[i] {
			return false
		}
	}

	return true
}

func (d Dims) String() string {
	parts := make([]string, len(d.names))
	for i, n := range d.names {
		parts[i] = fmt.Sprintf("%s=%d", n, d.shape[i])
	}

	return strings.Join(parts, ", ")
}
