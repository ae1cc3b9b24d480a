package set

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is an affine mapping from raw samples or grid indices to physical
// values: value = Slope*raw + Offset. DaVis encodes scales as four
// newline-joined lines: slope, offset, unit, description.
type Scale struct {
	Slope       float64
	Offset      float64
	Unit        string
	Description string
}

// IdentityScale maps raw values to themselves with no unit.
var IdentityScale = Scale{Slope: 1}

// IsIdentity reports whether applying the scale leaves values unchanged.
func (s Scale) IsIdentity() bool {
	return s.Slope == 1 && s.Offset == 0
}

// Apply maps a single raw value to its physical value.
func (s Scale) Apply(v float64) float64 {
	return s.Slope*v + s.Offset
}

// ApplyAll maps raw values in place and returns the slice.
func (s Scale) ApplyAll(vs []float64) []float64 {
	if s.IsIdentity() {
		return vs
	}
	for i, v := range vs {
		vs[i] = s.Slope*v + s.Offset
	}

	return vs
}

// Label returns the axis label form "description [unit]".
func (s Scale) Label() string {
	return fmt.Sprintf("%s [%s]", s.Description, s.Unit)
}

// String encodes the scale in the vendor's four-line form.
func (s Scale) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(s.Slope, 'g', -1, 64),
		strconv.FormatFloat(s.Offset, 'g', -1, 64),
		s.Unit,
		s.Description,
	}, "\n")
}

// ParseScale decodes the vendor's four-line scale encoding
// ("slope\noffset\nunit\ndescription").
func ParseScale(v string) (Scale, error) {
	parts := strings.Split(v, "\n")
	if len(parts) != 4 {
		return Scale{}, fmt.Errorf("scale string has %d lines, want 4", len(parts))
	}

	slope, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Scale{}, fmt.Errorf("parsing scale slope: %w", err)
	}
	offset, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Scale{}, fmt.Errorf("parsing scale offset: %w", err)
	}

	return Scale{
		Slope:       slope,
		Offset:      offset,
		Unit:        strings.TrimSpace(parts[2]),
		Description: strings.TrimSpace(parts[3]),
	}, nil
}
