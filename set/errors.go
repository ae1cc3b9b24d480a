package set

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a set handle is used after Close.
var ErrClosed = errors.New("set is closed")

// OpenError indicates that a path does not hold a readable set container
// (missing file, corrupt manifest, unsupported version).
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type OpenError struct {
	Path  string
	cause error
}

// NewOpenError wraps cause into an OpenError for path.
func NewOpenError(path string, cause error) *OpenError {
	return &OpenError{Path: path, cause: cause}
}

func (e *OpenError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("open set %q: unreadable container", e.Path)
	}

	return fmt.Sprintf("open set %q: %v", e.Path, e.cause)
}

func (e *OpenError) Unwrap() error { return e.cause }
