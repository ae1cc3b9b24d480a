package simset

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/arloliu/davisgo/compress"
	"github.com/arloliu/davisgo/endian"
	"github.com/arloliu/davisgo/format"
	"github.com/arloliu/davisgo/internal/hash"
	"github.com/arloliu/davisgo/internal/pool"
	"github.com/arloliu/davisgo/set"
)

// Reader opens simset directories. The zero value is ready to use.
//
// ReadHook, when set, is invoked with each payload path right before its
// bytes are read; tests use it to assert that lazy loading touches only the
// payloads it must.
type Reader struct {
	ReadHook func(path string)
}

var _ set.Reader = (*Reader)(nil)

// Open opens the simset directory at path. A missing or malformed manifest
// yields *set.OpenError.
func (r *Reader) Open(path string) (set.Set, error) {
	raw, err := os.ReadFile(filepath.Join(path, ManifestName))
	if err != nil {
		return nil, set.NewOpenError(path, err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, set.NewOpenError(path, fmt.Errorf("decoding manifest: %w", err))
	}
	if err := m.validate(); err != nil {
		return nil, set.NewOpenError(path, err)
	}

	compression, err := format.ParseCompression(m.Compression)
	if err != nil {
		return nil, set.NewOpenError(path, err)
	}
	codec, err := compress.NewCodec(compression)
	if err != nil {
		return nil, set.NewOpenError(path, err)
	}

	engine := endian.GetLittleEndianEngine()
	switch m.ByteOrder {
	case "", "little":
	case "big":
		engine = endian.GetBigEndianEngine()
	default:
		return nil, set.NewOpenError(path, fmt.Errorf("unknown byte order %q", m.ByteOrder))
	}

	return &simSet{
		dir:      path,
		manifest: &m,
		codec:    codec,
		engine:   engine,
		readHook: r.ReadHook,
	}, nil
}

type simSet struct {
	dir      string
	manifest *manifest
	codec    compress.Codec
	engine   endian.EndianEngine
	readHook func(path string)
	closed   atomic.Bool
}

func (s *simSet) Title() string { return s.manifest.Title }

func (s *simSet) Len() int { return len(s.manifest.Buffers) }

func (s *simSet) Attributes() set.Attributes {
	return attrsFromJSON(s.manifest.Attributes)
}

func (s *simSet) Buffer(i int) (set.Buffer, error) {
	if s.closed.Load() {
		return nil, set.ErrClosed
	}
	if i < 0 || i >= len(s.manifest.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range [0, %d)", i, len(s.manifest.Buffers))
	}

	return &simBuffer{set: s, entry: &s.manifest.Buffers[i]}, nil
}

func (s *simSet) Close() error {
	s.closed.Store(true)
	return nil
}

type simBuffer struct {
	set   *simSet
	entry *bufferEntry
}

func (b *simBuffer) Len() int { return len(b.entry.Frames) }

func (b *simBuffer) Attributes() set.Attributes {
	return attrsFromJSON(b.entry.Attributes)
}

func (b *simBuffer) Frame(i int) (set.Frame, error) {
	if b.set.closed.Load() {
		return nil, set.ErrClosed
	}
	if i < 0 || i >= len(b.entry.Frames) {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", i, len(b.entry.Frames))
	}

	return &simFrame{set: b.set, entry: &b.entry.Frames[i]}, nil
}

type simFrame struct {
	set   *simSet
	entry *frameEntry
}

func (f *simFrame) Shape() (ny, nx int) {
	c := &f.entry.Components[0]
	return c.NY, c.NX
}

func (f *simFrame) Components() []string {
	names := make([]string, len(f.entry.Components))
	for i := range f.entry.Components {
		names[i] = f.entry.Components[i].Name
	}

	return names
}

func (f *simFrame) Component(name string) (set.Component, error) {
	for i := range f.entry.Components {
		if f.entry.Components[i].Name == name {
			return &simComponent{set: f.set, entry: &f.entry.Components[i]}, nil
		}
	}

	return nil, fmt.Errorf("frame has no component %q", name)
}

func (f *simFrame) Grid() set.Grid {
	g := set.Grid{X: f.entry.GridX, Y: f.entry.GridY}
	if g.X == 0 {
		g.X = 1
	}
	if g.Y == 0 {
		g.Y = 1
	}

	return g
}

func (f *simFrame) AxisScales() (x, y set.Scale) {
	return f.entry.ScaleX.scale(), f.entry.ScaleY.scale()
}

func (f *simFrame) Attributes() set.Attributes {
	return attrsFromJSON(f.entry.Attributes)
}

type simComponent struct {
	set   *simSet
	entry *componentEntry
}

func (c *simComponent) Name() string { return c.entry.Name }

func (c *simComponent) Shape() (ny, nx int) { return c.entry.NY, c.entry.NX }

func (c *simComponent) Planes() int { return len(c.entry.Payloads) }

func (c *simComponent) Scale() set.Scale { return c.entry.Scale.scale() }

// Plane reads, verifies and decodes one payload blob into raw samples.
func (c *simComponent) Plane(i int) ([]float64, error) {
	if c.set.closed.Load() {
		return nil, set.ErrClosed
	}
	if i < 0 || i >= len(c.entry.Payloads) {
		return nil, fmt.Errorf("plane index %d out of range [0, %d)", i, len(c.entry.Payloads))
	}
	p := &c.entry.Payloads[i]

	sampleFormat, err := format.ParseSampleFormat(c.entry.Format)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(c.set.dir, p.File)
	if c.set.readHook != nil {
		c.set.readHook(path)
	}

	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)

	if err := readFileInto(path, buf); err != nil {
		return nil, fmt.Errorf("reading payload %q: %w", p.File, err)
	}

	if got := strconv.FormatUint(hash.Sum64(buf.Bytes()), 16); got != p.Checksum {
		return nil, fmt.Errorf("payload %q checksum mismatch: stored %s, computed %s", p.File, p.Checksum, got)
	}

	raw, err := c.set.codec.Decompress(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decompressing payload %q: %w", p.File, err)
	}
	if len(raw) != p.RawSize {
		return nil, fmt.Errorf("payload %q decompressed to %d bytes, manifest says %d", p.File, len(raw), p.RawSize)
	}

	return decodeSamples(raw, sampleFormat, c.set.engine, c.entry.NY*c.entry.NX)
}

func readFileInto(path string, buf *pool.ByteBuffer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	buf.Grow(int(info.Size()))
	_, err = io.ReadFull(f, buf.Bytes())

	return err
}

func decodeSamples(raw []byte, f format.SampleFormat, engine endian.EndianEngine, want int) ([]float64, error) {
	size := f.Size()
	if size == 0 || len(raw)%size != 0 {
		return nil, fmt.Errorf("payload length %d does not divide into %s samples", len(raw), f)
	}
	n := len(raw) / size
	if n != want {
		return nil, fmt.Errorf("payload holds %d samples, component shape needs %d", n, want)
	}

	out := make([]float64, n)
	switch f {
	case format.SampleUint16:
		for i := range n {
			out[i] = float64(engine.Uint16(raw[i*2:]))
		}
	case format.SampleFloat32:
		for i := range n {
			out[i] = float64(math.Float32frombits(engine.Uint32(raw[i*4:])))
		}
	case format.SampleFloat64:
		for i := range n {
			out[i] = math.Float64frombits(engine.Uint64(raw[i*8:]))
		}
	}

	return out, nil
}
