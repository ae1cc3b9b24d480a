// Package attr normalizes heterogeneous vendor metadata into typed
// attributes.
//
// DaVis stores every attribute as a string (or raw bytes) regardless of the
// underlying quantity, so the useful type of each attribute has to be
// inferred: integers, floats, quantities with units ("5.2 mm"), acquisition
// timestamps, numeric device traces and plain strings. Device-data records
// (DevData*) are scattered across several keys per trace and are folded
// back into single scaled attributes.
//
// The package absorbs the known irregularities of vendor metadata instead
// of surfacing them: nil attribute maps normalize to empty maps, timestamps
// parse with or without sub-second digits, and unit strings that fail to
// resolve leave the quantity unitless.
package attr

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/davisgo/set"
	"github.com/arloliu/davisgo/units"
)

// Level tells whether an attribute belongs to a buffer or to a frame.
type Level uint8

const (
	LevelBuffer Level = iota + 1
	LevelFrame
)

func (l Level) String() string {
	switch l {
	case LevelBuffer:
		return "buffer"
	case LevelFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Kind is the inferred type of an attribute value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindQuantity
	KindTimestamp
	KindTrace // numeric device-data trace with its own scale
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindQuantity:
		return "quantity"
	case KindTimestamp:
		return "timestamp"
	case KindTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// Attribute is one typed metadata entry.
type Attribute struct {
	Key   string
	Level Level
	Kind  Kind
	Unit  units.Unit

	// Name and Alias carry the device identification of folded DevData
	// traces ("Camera 1 : Exposure time"). Empty otherwise.
	Name  string
	Alias string

	value any // string, int64, float64, time.Time or []float64
}

// Value returns the decoded value: string, int64, float64, time.Time or
// []float64 depending on Kind.
func (a Attribute) Value() any { return a.value }

// StringValue renders the value for display and for array attribute maps.
func (a Attribute) StringValue() string {
	switch v := a.value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the value as a float64 where the kind allows it.
func (a Attribute) Float() (float64, bool) {
	switch v := a.value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Time returns the timestamp value of a KindTimestamp attribute.
func (a Attribute) Time() (time.Time, bool) {
	t, ok := a.value.(time.Time)
	return t, ok
}

// Trace returns the scaled samples of a KindTrace attribute.
func (a Attribute) Trace() ([]float64, bool) {
	v, ok := a.value.([]float64)
	return v, ok
}

// Normalize returns a non-nil copy of m with raw byte values converted to
// strings. A nil map is normal and yields an empty map, never an error.
func Normalize(m set.Attributes) set.Attributes {
	out := make(set.Attributes, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}

	return out
}

// Infer builds a typed attribute from a raw vendor value.
//
// Strings are probed in order: integer, float, timestamp (for keys named
// Timestamp), quantity with unit. Values that survive all probes stay
// strings. Numeric slices become unitless traces unless a unit is supplied
// via the ".Unit" companion key handled by Collect.
func Infer(key string, level Level, value any, unit string, reg *units.Registry) Attribute {
	a := Attribute{Key: key, Level: level, Kind: KindString, value: value}

	switch v := value.(type) {
	case []float64:
		a.Kind = KindTrace
		a.Unit = reg.Resolve(unit)
		return a
	case int64:
		a.Kind = KindInt
		a.Unit = reg.Resolve(unit)
		return a
	case float64:
		a.Kind = KindFloat
		a.Unit = reg.Resolve(unit)
		return a
	case []byte:
		a.value = string(v)
	case string:
		// handled below
	default:
		return a
	}

	s, _ := a.value.(string)

	if strings.EqualFold(key, "Timestamp") {
		if t, err := ParseTimestamp(s); err == nil {
			a.Kind = KindTimestamp
			a.value = t
			return a
		}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		a.Kind = KindInt
		a.value = i
		a.Unit = reg.Resolve(unit)
		return a
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		a.Kind = KindFloat
		a.value = f
		a.Unit = reg.Resolve(unit)
		return a
	}

	if looksLikeQuantity(s) {
		if mag, u, ok := reg.Quantity(s); ok {
			a.Kind = KindQuantity
			a.value = mag
			a.Unit = u
			return a
		}
	}

	if unit != "" {
		a.Unit = reg.Resolve(unit)
	}

	return a
}

// looksLikeQuantity reports whether s starts with a number and holds at most
// one decimal point. The dot limit avoids mistaking version strings like
// "11.0.1" for quantities.
func looksLikeQuantity(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if c := s[0]; (c < '0' || c > '9') && c != '+' && c != '-' && c != '.' {
		return false
	}

	return strings.Count(s, ".") <= 1
}
