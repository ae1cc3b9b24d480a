package compress

// ZstdCompressor trades compression speed for ratio, which suits archived
// sets read back rarely.
//
// Two implementations exist: the default pure-Go klauspost/compress backend,
// and a cgo backend over valyala/gozstd selected with the "gozstd" build tag
// for hosts where the native library is available and decode throughput
// matters.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
