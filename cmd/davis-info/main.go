// Command davis-info inspects an image set directory and prints its
// coordinate schema, arrays and attributes. It can also export the
// assembled dataset as an Arrow IPC stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/arloliu/davisgo"
	"github.com/arloliu/davisgo/arrowio"
	"github.com/arloliu/davisgo/imageset"
	"github.com/arloliu/davisgo/simset"
)

func main() {
	var (
		chunkSize = flag.Int("chunk", 0, "records per chunk (0 = one chunk per record)")
		keepDims  = flag.Bool("keep-dims", false, "keep singleton dimensions instead of squeezing them")
		arrowOut  = flag.String("arrow", "", "write the dataset as an Arrow IPC stream to this file")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: davis-info [flags] <set-directory>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *chunkSize, *keepDims, *arrowOut); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, chunkSize int, keepDims bool, arrowOut string) error {
	opts := []imageset.Option{imageset.WithSqueeze(!keepDims)}
	if chunkSize > 0 {
		opts = append(opts, imageset.WithChunkSize(chunkSize))
	}

	ctx := context.Background()

	ds, err := davisgo.LoadChunked(ctx, &simset.Reader{}, path, opts...)
	if err != nil {
		return err
	}
	defer ds.Close()

	fmt.Printf("=== %s ===\n\n", path)
	fmt.Printf("Title: %s\n", ds.Title())

	printAttrs("Attributes", ds.Attrs())
	fmt.Println()

	for _, name := range ds.Names() {
		arr, _ := ds.Get(name)
		fmt.Printf("Array %q:\n", name)
		fmt.Printf("  Dims:   %v\n", arr.Dims().Names())
		fmt.Printf("  Shape:  %v\n", arr.Shape())
		fmt.Printf("  Chunks: %d\n", arr.NumChunks())
		printAttrs("  Attrs", arr.Attrs())

		for _, dim := range arr.Dims().Names() {
			c, ok := arr.Coord(dim)
			if !ok {
				continue
			}
			if c.IsTime() {
				fmt.Printf("  Coord %q: %d timestamps, first %s\n",
					dim, c.Len(), c.Times[0].Format(time.RFC3339Nano))
				continue
			}
			fmt.Printf("  Coord %q: %d labels [%g .. %g] %s\n",
				dim, c.Len(), c.Values[0], c.Values[c.Len()-1], c.Unit.Symbol)
		}
		fmt.Println()
	}

	if arrowOut != "" {
		f, err := os.Create(arrowOut)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := arrowio.WriteIPC(ctx, f, ds); err != nil {
			return fmt.Errorf("arrow export: %w", err)
		}
		fmt.Printf("Wrote Arrow IPC stream to %s\n", arrowOut)
	}

	return nil
}

func printAttrs(label string, attrs map[string]string) {
	if len(attrs) == 0 {
		fmt.Printf("%s: none\n", label)
		return
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", label)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, attrs[k])
	}
}
