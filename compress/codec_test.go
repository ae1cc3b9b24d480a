package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/davisgo/format"
)

// samplePayload mimics a uint16 camera plane: smooth intensities with noise,
// little-endian byte pairs.
func samplePayload(n int) []byte {
	rng := rand.New(rand.NewSource(42))

	out := make([]byte, 0, n*2)
	for i := range n {
		v := uint16(1000 + i%512 + rng.Intn(32))
		out = append(out, byte(v), byte(v>>8))
	}

	return out
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := samplePayload(16 * 1024)

	types := []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	}

	for _, ct := range types {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := NewCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, restored))
		})
	}
}

func TestCodec_EmptyPayload(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := NewCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestCodec_CorruptInput(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02}

	for _, ct := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionS2,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := NewCodec(ct)
			require.NoError(t, err)

			_, err = codec.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

func TestNewCodec_Unknown(t *testing.T) {
	_, err := NewCodec(format.CompressionType(0xff))
	require.Error(t, err)
}

func TestNoOp_PassThrough(t *testing.T) {
	codec := NewNoOpCompressor()
	payload := []byte("raw samples")

	compressed, err := codec.Compress(payload)
	require.NoError(t, err)
	require.Equal(t, payload, compressed)

	restored, err := codec.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, restored)
}
