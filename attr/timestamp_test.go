package attr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("canonical form with comma fraction", func(t *testing.T) {
		ts, err := ParseTimestamp("2025-02-05T14:04:59,800000+01:00")
		require.NoError(t, err)
		require.Equal(t, 2025, ts.Year())
		require.Equal(t, time.February, ts.Month())
		require.Equal(t, 800*time.Millisecond, time.Duration(ts.Nanosecond()))

		_, offset := ts.Zone()
		require.Equal(t, 3600, offset)
	})

	t.Run("whole seconds without fractional digits", func(t *testing.T) {
		// Acquisition times landing exactly on a second boundary are
		// written without the fraction and must still parse.
		ts, err := ParseTimestamp("2025-02-05T14:05:00+01:00")
		require.NoError(t, err)
		require.Equal(t, 0, ts.Nanosecond())
		require.Equal(t, 5, ts.Day())
	})

	t.Run("dot separated fraction", func(t *testing.T) {
		ts, err := ParseTimestamp("2023-11-30T09:15:02.250000+02:00")
		require.NoError(t, err)
		require.Equal(t, 250*time.Millisecond, time.Duration(ts.Nanosecond()))
	})

	t.Run("zone without colon", func(t *testing.T) {
		ts, err := ParseTimestamp("2025-02-05T14:04:59,800000+0100")
		require.NoError(t, err)
		_, offset := ts.Zone()
		require.Equal(t, 3600, offset)
	})

	t.Run("no zone parses as UTC", func(t *testing.T) {
		ts, err := ParseTimestamp("2025-02-05T14:04:59,800000")
		require.NoError(t, err)
		require.Equal(t, time.UTC, ts.Location())
	})

	t.Run("ordering is preserved across forms", func(t *testing.T) {
		a, err := ParseTimestamp("2025-02-05T14:04:59,999999+01:00")
		require.NoError(t, err)
		b, err := ParseTimestamp("2025-02-05T14:05:00+01:00")
		require.NoError(t, err)
		require.True(t, a.Before(b))
	})

	t.Run("garbage fails", func(t *testing.T) {
		_, err := ParseTimestamp("last tuesday")
		require.Error(t, err)
		require.Contains(t, err.Error(), "last tuesday")
	})
}
