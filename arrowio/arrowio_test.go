package arrowio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/davisgo/array"
	"github.com/arloliu/davisgo/imageset"
	"github.com/arloliu/davisgo/units"
)

func testDataset(t *testing.T, withTimes bool) *array.Dataset {
	t.Helper()

	dims := array.NewDims(true,
		array.Dim{Name: imageset.DimTime, Size: 2},
		array.Dim{Name: imageset.DimY, Size: 2},
		array.Dim{Name: imageset.DimX, Size: 2},
	)

	timeCoord := &array.Coord{Name: imageset.DimTime, Values: []float64{0, 1}}
	if withTimes {
		base := time.Date(2025, 2, 5, 14, 4, 59, 800000000, time.UTC)
		timeCoord = &array.Coord{
			Name:  imageset.DimTime,
			Times: []time.Time{base, base.Add(200 * time.Millisecond)},
		}
	}

	u, err := array.New("U", dims,
		[]*array.Coord{
			timeCoord,
			{Name: imageset.DimY, Values: []float64{0.5, 1}, Unit: units.Unit{Symbol: "mm"}},
			{Name: imageset.DimX, Values: []float64{0.5, 1}, Unit: units.Unit{Symbol: "mm"}},
		},
		map[string]string{"units": "m/s"},
		array.Eager([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4),
	)
	require.NoError(t, err)

	return array.NewDataset("PIV", []*array.Array{u},
		map[string]string{"title": "PIV", "Operator": "lab"}, nil)
}

func TestFromDataset(t *testing.T) {
	ctx := context.Background()

	t.Run("one row per record with list columns", func(t *testing.T) {
		rec, err := FromDataset(ctx, testDataset(t, true), nil)
		require.NoError(t, err)
		defer rec.Release()

		require.EqualValues(t, 2, rec.NumRows())
		require.EqualValues(t, 2, rec.NumCols())
		require.Equal(t, imageset.DimTime, rec.ColumnName(0))
		require.Equal(t, "U", rec.ColumnName(1))

		lists, ok := rec.Column(1).(*arrowarray.FixedSizeList)
		require.True(t, ok)
		values := lists.ListValues().(*arrowarray.Float64)
		require.Equal(t, 8, values.Len())
		require.Equal(t, 1.0, values.Value(0))
		require.Equal(t, 8.0, values.Value(7))
	})

	t.Run("timestamps map to the timestamp column", func(t *testing.T) {
		rec, err := FromDataset(ctx, testDataset(t, true), nil)
		require.NoError(t, err)
		defer rec.Release()

		col, ok := rec.Column(0).(*arrowarray.Timestamp)
		require.True(t, ok)
		require.Equal(t, 2, col.Len())
		require.Less(t, col.Value(0), col.Value(1))
	})

	t.Run("index coordinates map to int64", func(t *testing.T) {
		rec, err := FromDataset(ctx, testDataset(t, false), nil)
		require.NoError(t, err)
		defer rec.Release()

		col, ok := rec.Column(0).(*arrowarray.Int64)
		require.True(t, ok)
		require.Equal(t, int64(0), col.Value(0))
		require.Equal(t, int64(1), col.Value(1))
	})

	t.Run("metadata carries attributes and layout", func(t *testing.T) {
		rec, err := FromDataset(ctx, testDataset(t, true), nil)
		require.NoError(t, err)
		defer rec.Release()

		schemaMeta := rec.Schema().Metadata()
		idx := schemaMeta.FindKey("Operator")
		require.GreaterOrEqual(t, idx, 0)
		require.Equal(t, "lab", schemaMeta.Values()[idx])

		field := rec.Schema().Field(1)
		fieldMeta := field.Metadata
		idx = fieldMeta.FindKey("units")
		require.GreaterOrEqual(t, idx, 0)
		require.Equal(t, "m/s", fieldMeta.Values()[idx])
		require.GreaterOrEqual(t, fieldMeta.FindKey("dims"), 0)
	})

	t.Run("empty dataset is rejected", func(t *testing.T) {
		ds := array.NewDataset("empty", nil, nil, nil)
		_, err := FromDataset(ctx, ds, nil)
		require.Error(t, err)
	})
}

func TestIPC_RoundTrip(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, WriteIPC(ctx, &buf, testDataset(t, true)))

	rec, err := ReadIPC(&buf)
	require.NoError(t, err)
	defer rec.Release()

	require.EqualValues(t, 2, rec.NumRows())
	require.Equal(t, "U", rec.ColumnName(1))

	lists := rec.Column(1).(*arrowarray.FixedSizeList)
	listType, ok := lists.DataType().(*arrow.FixedSizeListType)
	require.True(t, ok)
	require.EqualValues(t, 4, listType.Len())

	values := lists.ListValues().(*arrowarray.Float64)
	require.Equal(t, 5.0, values.Value(4))
}

func TestReadIPC_Empty(t *testing.T) {
	_, err := ReadIPC(bytes.NewReader(nil))
	require.Error(t, err)
}
