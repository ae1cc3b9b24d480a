package format

import "fmt"

type (
	SampleFormat    uint8
	CompressionType uint8
)

const (
	SampleUint16  SampleFormat = 0x1 // SampleUint16 represents 16-bit unsigned camera counts.
	SampleFloat32 SampleFormat = 0x2 // SampleFloat32 represents 32-bit IEEE 754 samples.
	SampleFloat64 SampleFormat = 0x3 // SampleFloat64 represents 64-bit IEEE 754 samples.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.
)

// Size returns the number of bytes one sample occupies on disk.
func (f SampleFormat) Size() int {
	switch f {
	case SampleUint16:
		return 2
	case SampleFloat32:
		return 4
	case SampleFloat64:
		return 8
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleUint16:
		return "uint16"
	case SampleFloat32:
		return "float32"
	case SampleFloat64:
		return "float64"
	default:
		return "Unknown"
	}
}

// ParseSampleFormat parses the textual sample format used in set manifests.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch s {
	case "uint16":
		return SampleUint16, nil
	case "float32":
		return SampleFloat32, nil
	case "float64":
		return SampleFloat64, nil
	default:
		return 0, fmt.Errorf("unknown sample format %q", s)
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompression parses the textual compression name used in set manifests.
// An empty string means no compression.
func ParseCompression(s string) (CompressionType, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression type %q", s)
	}
}

// Name returns the lower-case manifest spelling of the compression type.
func (c CompressionType) Name() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}
