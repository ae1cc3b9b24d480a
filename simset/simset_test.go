package simset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/davisgo/format"
	"github.com/arloliu/davisgo/set"
)

// fixtureSpec builds a two-buffer set with one PIXEL component of 2x3
// uint16 samples per single frame.
func fixtureSpec() SetSpec {
	return SetSpec{
		Title: "TestSet",
		Attributes: set.Attributes{
			"Operator": "lab",
		},
		Buffers: []BufferSpec{
			{
				Attributes: set.Attributes{"Timestamp": "2025-02-05T14:04:59,800000+01:00"},
				Frames: []FrameSpec{{
					Grid:   set.Grid{X: 1, Y: 1},
					ScaleX: set.Scale{Slope: 0.5, Offset: 0, Unit: "mm", Description: "x"},
					ScaleY: set.Scale{Slope: 0.5, Offset: 0, Unit: "mm", Description: "y"},
					Components: []ComponentSpec{{
						Name:   "PIXEL",
						NY:     2,
						NX:     3,
						Format: format.SampleUint16,
						Scale:  set.Scale{Slope: 1, Unit: "counts", Description: "intensity"},
						Planes: [][]float64{{10, 20, 30, 40, 50, 60}},
					}},
				}},
			},
			{
				Attributes: set.Attributes{"Timestamp": "2025-02-05T14:05:00+01:00"},
				Frames: []FrameSpec{{
					Grid:   set.Grid{X: 1, Y: 1},
					ScaleX: set.Scale{Slope: 0.5, Offset: 0, Unit: "mm", Description: "x"},
					ScaleY: set.Scale{Slope: 0.5, Offset: 0, Unit: "mm", Description: "y"},
					Components: []ComponentSpec{{
						Name:   "PIXEL",
						NY:     2,
						NX:     3,
						Format: format.SampleUint16,
						Scale:  set.Scale{Slope: 1, Unit: "counts", Description: "intensity"},
						Planes: [][]float64{{11, 21, 31, 41, 51, 61}},
					}},
				}},
			},
		},
	}
}

func openFixture(t *testing.T, opts ...WriteOption) set.Set {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, Write(dir, fixtureSpec(), opts...))

	r := &Reader{}
	s, err := r.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestRoundTrip(t *testing.T) {
	variants := []struct {
		name string
		opts []WriteOption
	}{
		{"uncompressed little endian", nil},
		{"zstd", []WriteOption{WithCompression(format.CompressionZstd)}},
		{"s2", []WriteOption{WithCompression(format.CompressionS2)}},
		{"lz4", []WriteOption{WithCompression(format.CompressionLZ4)}},
		{"big endian", []WriteOption{WithBigEndian()}},
		{"big endian zstd", []WriteOption{WithBigEndian(), WithCompression(format.CompressionZstd)}},
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			s := openFixture(t, v.opts...)

			require.Equal(t, "TestSet", s.Title())
			require.Equal(t, 2, s.Len())

			op, ok := s.Attributes().String("Operator")
			require.True(t, ok)
			require.Equal(t, "lab", op)

			buf, err := s.Buffer(1)
			require.NoError(t, err)

			ts, ok := buf.Attributes().String("Timestamp")
			require.True(t, ok)
			require.Equal(t, "2025-02-05T14:05:00+01:00", ts)

			frame, err := buf.Frame(0)
			require.NoError(t, err)

			ny, nx := frame.Shape()
			require.Equal(t, 2, ny)
			require.Equal(t, 3, nx)
			require.Equal(t, set.Grid{X: 1, Y: 1}, frame.Grid())

			sx, sy := frame.AxisScales()
			require.Equal(t, 0.5, sx.Slope)
			require.Equal(t, "mm", sy.Unit)

			comp, err := frame.Component("PIXEL")
			require.NoError(t, err)
			require.Equal(t, 1, comp.Planes())
			require.Equal(t, "counts", comp.Scale().Unit)

			plane, err := comp.Plane(0)
			require.NoError(t, err)
			require.Equal(t, []float64{11, 21, 31, 41, 51, 61}, plane)
		})
	}
}

func TestRoundTrip_SampleFormats(t *testing.T) {
	samples := []float64{-1.5, 0, 2.25, 1000, -0.125, 7}

	for _, f := range []format.SampleFormat{format.SampleFloat32, format.SampleFloat64} {
		t.Run(f.String(), func(t *testing.T) {
			dir := t.TempDir()
			spec := SetSpec{Buffers: []BufferSpec{{Frames: []FrameSpec{{
				Components: []ComponentSpec{{
					Name:   "U",
					NY:     2,
					NX:     3,
					Format: f,
					Planes: [][]float64{samples},
				}},
			}}}}}
			require.NoError(t, Write(dir, spec))

			s, err := (&Reader{}).Open(dir)
			require.NoError(t, err)
			defer s.Close()

			buf, err := s.Buffer(0)
			require.NoError(t, err)
			frame, err := buf.Frame(0)
			require.NoError(t, err)
			comp, err := frame.Component("U")
			require.NoError(t, err)

			plane, err := comp.Plane(0)
			require.NoError(t, err)
			require.Equal(t, samples, plane)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing directory yields OpenError", func(t *testing.T) {
		_, err := (&Reader{}).Open(filepath.Join(t.TempDir(), "nope"))

		var oe *set.OpenError
		require.ErrorAs(t, err, &oe)
		require.Contains(t, oe.Path, "nope")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("corrupt manifest yields OpenError", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{truncated"), 0o644))

		_, err := (&Reader{}).Open(dir)

		var oe *set.OpenError
		require.ErrorAs(t, err, &oe)
	})

	t.Run("unknown compression yields OpenError", func(t *testing.T) {
		dir := t.TempDir()
		manifest := `{"compression": "brotli", "buffers": [{"frames": [{"components": [` +
			`{"name": "PIXEL", "ny": 1, "nx": 1, "format": "uint16", "payloads": [{"file": "x"}]}]}]}]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o644))

		_, err := (&Reader{}).Open(dir)

		var oe *set.OpenError
		require.ErrorAs(t, err, &oe)
		require.Contains(t, err.Error(), "brotli")
	})

	t.Run("unknown byte order yields OpenError", func(t *testing.T) {
		dir := t.TempDir()
		manifest := `{"byte_order": "middle", "buffers": [{"frames": [{"components": [` +
			`{"name": "PIXEL", "ny": 1, "nx": 1, "format": "uint16", "payloads": [{"file": "x"}]}]}]}]}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o644))

		_, err := (&Reader{}).Open(dir)
		require.Error(t, err)
		require.Contains(t, err.Error(), "middle")
	})

	t.Run("empty frame list fails validation", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName),
			[]byte(`{"buffers": [{"frames": []}]}`), 0o644))

		_, err := (&Reader{}).Open(dir)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no frames")
	})
}

func TestPlane_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, fixtureSpec()))

	// Flip one byte of the first payload blob.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() == ManifestName {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		raw[0] ^= 0xff
		require.NoError(t, os.WriteFile(path, raw, 0o644))
		break
	}

	s, err := (&Reader{}).Open(dir)
	require.NoError(t, err)
	defer s.Close()

	buf, err := s.Buffer(0)
	require.NoError(t, err)
	frame, err := buf.Frame(0)
	require.NoError(t, err)
	comp, err := frame.Component("PIXEL")
	require.NoError(t, err)

	_, err = comp.Plane(0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")
}

func TestClose(t *testing.T) {
	s := openFixture(t)

	buf, err := s.Buffer(0)
	require.NoError(t, err)
	frame, err := buf.Frame(0)
	require.NoError(t, err)
	comp, err := frame.Component("PIXEL")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Buffer(0)
	require.True(t, errors.Is(err, set.ErrClosed))

	_, err = buf.Frame(0)
	require.True(t, errors.Is(err, set.ErrClosed))

	_, err = comp.Plane(0)
	require.True(t, errors.Is(err, set.ErrClosed))
}

func TestReadHook(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, fixtureSpec()))

	var touched []string
	r := &Reader{ReadHook: func(path string) {
		touched = append(touched, filepath.Base(path))
	}}

	s, err := r.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.Empty(t, touched, "opening reads only the manifest")

	buf, err := s.Buffer(1)
	require.NoError(t, err)
	frame, err := buf.Frame(0)
	require.NoError(t, err)
	comp, err := frame.Component("PIXEL")
	require.NoError(t, err)
	require.Empty(t, touched, "metadata access reads no payloads")

	_, err = comp.Plane(0)
	require.NoError(t, err)
	require.Len(t, touched, 1)
}

func TestWrite_Validation(t *testing.T) {
	t.Run("plane size must match shape", func(t *testing.T) {
		err := Write(t.TempDir(), SetSpec{Buffers: []BufferSpec{{Frames: []FrameSpec{{
			Components: []ComponentSpec{{
				Name:   "U",
				NY:     2,
				NX:     2,
				Format: format.SampleFloat32,
				Planes: [][]float64{{1, 2, 3}},
			}},
		}}}}})

		require.Error(t, err)
		require.Contains(t, err.Error(), "shape needs 4")
	})

	t.Run("component names sanitize into payload file names", func(t *testing.T) {
		dir := t.TempDir()
		err := Write(dir, SetSpec{Buffers: []BufferSpec{{Frames: []FrameSpec{{
			Components: []ComponentSpec{{
				Name:   "U/V ratio",
				NY:     1,
				NX:     1,
				Format: format.SampleFloat64,
				Planes: [][]float64{{1}},
			}},
		}}}}})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			require.NotContains(t, e.Name(), "/")
			require.NotContains(t, e.Name(), " ")
		}
	})
}
