// Package compress provides the payload codecs used by set containers.
//
// Payloads are per-plane sample blocks, typically 100KB-3MB of uint16
// camera counts or float32 vector components. Camera counts compress well
// with the fast byte-oriented codecs (S2, LZ4); Zstd trades speed for ratio
// and suits archived sets.
package compress

import (
	"fmt"

	"github.com/arloliu/davisgo/format"
)

// Compressor compresses one payload block.
//
// The returned slice is newly allocated and owned by the caller; the input
// slice is not modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores one payload block compressed with the matching
// algorithm. Implementations must be safe for concurrent use; lazy chunk
// loading may decompress distinct payloads from multiple goroutines.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// NewCodec returns the codec for a compression type.
func NewCodec(t format.CompressionType) (Codec, error) {
	switch t {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("unknown compression type %d", t)
	}
}
