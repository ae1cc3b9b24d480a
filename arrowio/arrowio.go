// Package arrowio converts assembled datasets to Apache Arrow records and
// streams them over the Arrow IPC format.
//
// Each dataset maps to a single record batch with one row per time step: a
// leading "time" column (timestamps when the set carries them, record
// indices otherwise) and one FixedSizeList(float64) column per component
// holding that record's samples row-major. Units and descriptions travel as
// field metadata, set-level attributes as schema metadata.
package arrowio

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	arrowarray "github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/davisgo/array"
	"github.com/arloliu/davisgo/imageset"
)

// FromDataset materializes every array in ds and builds one Arrow record
// batch. The caller must Release the returned record.
func FromDataset(ctx context.Context, ds *array.Dataset, pool memory.Allocator) (arrow.Record, error) {
	if pool == nil {
		pool = memory.NewGoAllocator()
	}

	names := ds.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("dataset %q has no arrays", ds.Title())
	}

	rows, timeCoord := timeAxis(ds, names)

	fields := make([]arrow.Field, 0, len(names)+1)
	columns := make([]arrow.Array, 0, len(names)+1)
	defer func() {
		for _, col := range columns {
			col.Release()
		}
	}()

	timeField, timeCol := buildTimeColumn(pool, rows, timeCoord)
	fields = append(fields, timeField)
	columns = append(columns, timeCol)

	for _, name := range names {
		arr, _ := ds.Get(name)
		values, err := arr.Values(ctx)
		if err != nil {
			return nil, fmt.Errorf("materialize %q: %w", name, err)
		}
		if len(values)%rows != 0 {
			return nil, fmt.Errorf("array %q holds %d samples, not divisible by %d records",
				name, len(values), rows)
		}

		width := len(values) / rows
		field, col := buildComponentColumn(pool, arr, values, rows, width)
		fields = append(fields, field)
		columns = append(columns, col)
	}

	meta := datasetMetadata(ds)
	schema := arrow.NewSchema(fields, &meta)
	rec := arrowarray.NewRecord(schema, columns, int64(rows))

	return rec, nil
}

// WriteIPC materializes ds and writes it as a single-batch Arrow IPC stream.
func WriteIPC(ctx context.Context, w io.Writer, ds *array.Dataset) error {
	rec, err := FromDataset(ctx, ds, nil)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("write record batch: %w", err)
	}

	return writer.Close()
}

// ReadIPC reads the first record batch from an Arrow IPC stream. The caller
// must Release the returned record.
func ReadIPC(r io.Reader) (arrow.Record, error) {
	reader, err := ipc.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("read record batch: %w", err)
		}
		return nil, fmt.Errorf("ipc stream holds no record batches")
	}

	rec := reader.Record()
	rec.Retain()

	return rec, nil
}

// timeAxis determines the row count and, if present, the time coordinate
// shared by the dataset's arrays.
func timeAxis(ds *array.Dataset, names []string) (int, *array.Coord) {
	for _, name := range names {
		arr, _ := ds.Get(name)
		if c, ok := arr.Coord(imageset.DimTime); ok {
			return c.Len(), c
		}
	}

	// Single-record sets squeeze the time dimension away.
	return 1, nil
}

func buildTimeColumn(pool memory.Allocator, rows int, coord *array.Coord) (arrow.Field, arrow.Array) {
	if coord != nil && coord.IsTime() {
		dtype := arrow.FixedWidthTypes.Timestamp_ns.(*arrow.TimestampType)
		b := arrowarray.NewTimestampBuilder(pool, dtype)
		defer b.Release()

		for _, t := range coord.Times {
			b.Append(arrow.Timestamp(t.UnixNano()))
		}

		return arrow.Field{Name: imageset.DimTime, Type: dtype}, b.NewArray()
	}

	b := arrowarray.NewInt64Builder(pool)
	defer b.Release()

	for i := 0; i < rows; i++ {
		b.Append(int64(i))
	}

	return arrow.Field{Name: imageset.DimTime, Type: arrow.PrimitiveTypes.Int64}, b.NewArray()
}

func buildComponentColumn(pool memory.Allocator, arr *array.Array, values []float64, rows, width int) (arrow.Field, arrow.Array) {
	b := arrowarray.NewFixedSizeListBuilder(pool, int32(width), arrow.PrimitiveTypes.Float64)
	defer b.Release()

	vb := b.ValueBuilder().(*arrowarray.Float64Builder)
	for r := 0; r < rows; r++ {
		b.Append(true)
		vb.AppendValues(values[r*width:(r+1)*width], nil)
	}

	field := arrow.Field{
		Name:     arr.Name(),
		Type:     arrow.FixedSizeListOf(int32(width), arrow.PrimitiveTypes.Float64),
		Metadata: fieldMetadata(arr),
	}

	return field, b.NewArray()
}

func fieldMetadata(arr *array.Array) arrow.Metadata {
	attrs := arr.Attrs()

	keys := make([]string, 0, len(attrs)+2)
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]string, 0, len(keys)+2)
	for _, k := range keys {
		vals = append(vals, attrs[k])
	}

	keys = append(keys, "dims", "shape")
	vals = append(vals, fmt.Sprint(arr.Dims().Names()), fmt.Sprint(arr.Shape()))

	return arrow.NewMetadata(keys, vals)
}

func datasetMetadata(ds *array.Dataset) arrow.Metadata {
	attrs := ds.Attrs()

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, attrs[k])
	}

	return arrow.NewMetadata(keys, vals)
}
