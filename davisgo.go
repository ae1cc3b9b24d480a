// Package davisgo loads DaVis particle-image-velocimetry sets and exposes
// them as labeled, chunked multi-dimensional arrays.
//
// The heavy lifting of decoding the proprietary container belongs to an
// external reader satisfying set.Reader; this module adapts what such a
// reader yields — raw sample payloads plus heterogeneous vendor metadata —
// into arrays with named dimensions, coordinate vectors and unit-annotated
// attributes.
//
// # Basic Usage
//
// Loading a set eagerly:
//
//	reader := &simset.Reader{} // or a native DaVis reader binding
//	ds, err := davisgo.Load(ctx, reader, "/data/SimpleImageSet")
//	if err != nil {
//	    return err
//	}
//	pixels, _ := ds.Get("PIXEL")
//	values, _ := pixels.Values(ctx) // shape per pixels.Shape()
//
// Loading lazily, one chunk of records at a time:
//
//	ds, err := davisgo.LoadChunked(ctx, reader, "/data/BigSet",
//	    imageset.WithChunkSize(4),
//	)
//	if err != nil {
//	    return err
//	}
//	defer ds.Close() // releases the set handle
//
//	u, _ := ds.Get("U")
//	chunk, err := u.Chunk(ctx, 0) // reads only the first 4 records
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the set and
// imageset packages. For schema inspection and fine-grained control, use
// imageset directly.
package davisgo

import (
	"context"

	"github.com/arloliu/davisgo/array"
	"github.com/arloliu/davisgo/imageset"
	"github.com/arloliu/davisgo/set"
)

// Open opens the set at path with the given reader and establishes its
// coordinate schema. The returned accessor owns the set handle.
func Open(r set.Reader, path string, opts ...imageset.Option) (*imageset.Accessor, error) {
	s, err := r.Open(path)
	if err != nil {
		return nil, err
	}

	// New takes ownership of s and closes it on failure.
	return imageset.New(s, opts...)
}

// Load opens the set at path and assembles all components eagerly. The set
// handle is released before returning; the dataset is self-contained.
func Load(ctx context.Context, r set.Reader, path string, opts ...imageset.Option) (*array.Dataset, error) {
	acc, err := Open(r, path, opts...)
	if err != nil {
		return nil, err
	}
	defer acc.Close()

	return acc.Load(ctx)
}

// LoadChunked opens the set at path and assembles all components lazily.
// The dataset keeps the set handle open for deferred chunk reads; the
// caller must Close it.
func LoadChunked(ctx context.Context, r set.Reader, path string, opts ...imageset.Option) (*array.Dataset, error) {
	acc, err := Open(r, path, opts...)
	if err != nil {
		return nil, err
	}

	ds, err := acc.LoadChunked(ctx)
	if err != nil {
		acc.Close()
		return nil, err
	}

	return ds, nil
}
