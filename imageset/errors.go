package imageset

import "fmt"

// SchemaMismatchError indicates that a record disagrees with the coordinate
// schema established from the first record in a way the loader does not
// tolerate (geometry, component set, frame count).
//
// Tolerated variations never produce this error: timestamps without
// sub-second digits, absent attribute maps and unresolvable unit strings
// are absorbed with fallbacks.
type SchemaMismatchError struct {
	Record int
	Field  string
	Want   any
	Got    any
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch at record %d: %s: want %v, got %v",
		e.Record, e.Field, e.Want, e.Got)
}
