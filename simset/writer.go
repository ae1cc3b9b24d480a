package simset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/arloliu/davisgo/compress"
	"github.com/arloliu/davisgo/endian"
	"github.com/arloliu/davisgo/format"
	"github.com/arloliu/davisgo/internal/hash"
	"github.com/arloliu/davisgo/internal/options"
	"github.com/arloliu/davisgo/set"
)

// SetSpec declares a complete set for Write. Tests build fixtures from it.
type SetSpec struct {
	Title      string
	Attributes set.Attributes
	Buffers    []BufferSpec
}

// BufferSpec declares one acquisition record.
type BufferSpec struct {
	Attributes set.Attributes
	Frames     []FrameSpec
}

// FrameSpec declares one frame. A zero Grid means spacing 1.
type FrameSpec struct {
	Attributes set.Attributes
	Grid       set.Grid
	ScaleX     set.Scale
	ScaleY     set.Scale
	Components []ComponentSpec
}

// ComponentSpec declares one channel. Planes holds the raw (unscaled)
// samples per z plane, each of length NY*NX in row-major order.
type ComponentSpec struct {
	Name   string
	NY     int
	NX     int
	Format format.SampleFormat
	Scale  set.Scale
	Planes [][]float64
}

type writeConfig struct {
	compression format.CompressionType
	byteOrder   string
	engine      endian.EndianEngine
}

// WriteOption configures Write.
type WriteOption = options.Option[*writeConfig]

// WithCompression selects the payload compression codec.
func WithCompression(t format.CompressionType) WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.compression = t
	})
}

// WithBigEndian stores payload samples big-endian.
func WithBigEndian() WriteOption {
	return options.NoError(func(c *writeConfig) {
		c.byteOrder = "big"
		c.engine = endian.GetBigEndianEngine()
	})
}

// Write materializes the declared set as a simset directory at dir.
func Write(dir string, spec SetSpec, opts ...WriteOption) error {
	cfg := &writeConfig{
		compression: format.CompressionNone,
		byteOrder:   "little",
		engine:      endian.GetLittleEndianEngine(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	codec, err := compress.NewCodec(cfg.compression)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating set directory: %w", err)
	}

	m := manifest{
		Title:       spec.Title,
		ByteOrder:   cfg.byteOrder,
		Compression: cfg.compression.Name(),
		Attributes:  attrsToJSON(spec.Attributes),
	}

	for bi, b := range spec.Buffers {
		be := bufferEntry{Attributes: attrsToJSON(b.Attributes)}
		for fi, f := range b.Frames {
			fe := frameEntry{
				Attributes: attrsToJSON(f.Attributes),
				GridX:      f.Grid.X,
				GridY:      f.Grid.Y,
				ScaleX:     scaleFrom(f.ScaleX),
				ScaleY:     scaleFrom(f.ScaleY),
			}
			for _, c := range f.Components {
				ce, err := writeComponent(dir, bi, fi, c, codec, cfg.engine)
				if err != nil {
					return err
				}
				fe.Components = append(fe.Components, ce)
			}
			be.Frames = append(be.Frames, fe)
		}
		m.Buffers = append(m.Buffers, be)
	}

	raw, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, ManifestName), raw, 0o644)
}

func writeComponent(dir string, bi, fi int, c ComponentSpec, codec compress.Codec, engine endian.EndianEngine) (componentEntry, error) {
	ce := componentEntry{
		Name:   c.Name,
		NY:     c.NY,
		NX:     c.NX,
		Format: c.Format.String(),
		Scale:  scaleFrom(c.Scale),
	}

	for pi, plane := range c.Planes {
		if len(plane) != c.NY*c.NX {
			return ce, fmt.Errorf("component %q plane %d has %d samples, shape needs %d",
				c.Name, pi, len(plane), c.NY*c.NX)
		}

		raw := encodeSamples(plane, c.Format, engine)
		stored, err := codec.Compress(raw)
		if err != nil {
			return ce, fmt.Errorf("compressing component %q plane %d: %w", c.Name, pi, err)
		}

		name := fmt.Sprintf("b%04d_f%d_%s_p%d.bin", bi, fi, sanitize(c.Name), pi)
		if err := os.WriteFile(filepath.Join(dir, name), stored, 0o644); err != nil {
			return ce, fmt.Errorf("writing payload %q: %w", name, err)
		}

		ce.Payloads = append(ce.Payloads, payloadEntry{
			File:     name,
			Checksum: strconv.FormatUint(hash.Sum64(stored), 16),
			RawSize:  len(raw),
		})
	}

	return ce, nil
}

func encodeSamples(plane []float64, f format.SampleFormat, engine endian.EndianEngine) []byte {
	raw := make([]byte, 0, len(plane)*f.Size())
	switch f {
	case format.SampleUint16:
		for _, v := range plane {
			raw = engine.AppendUint16(raw, uint16(v))
		}
	case format.SampleFloat32:
		for _, v := range plane {
			raw = engine.AppendUint32(raw, math.Float32bits(float32(v)))
		}
	default:
		for _, v := range plane {
			raw = engine.AppendUint64(raw, math.Float64bits(v))
		}
	}

	return raw
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
