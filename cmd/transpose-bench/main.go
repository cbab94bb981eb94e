// Command transpose-bench times the transpose kernel variants against each
// other and verifies their outputs agree.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/simtgo/simt"
)

var (
	rows    int
	cols    int
	iters   int
	variant string
	logRuns bool
)

var variants = []struct {
	name string
	fn   func(dst, src simt.DevicePtr, rows, cols int) error
}{
	{"naive", simt.TransposeNaive},
	{"coalesced", simt.TransposeCoalesced},
	{"conflict-free", simt.TransposeConflictFree},
}

func main() {
	root := &cobra.Command{
		Use:   "transpose-bench",
		Short: "Benchmark the tiled matrix transpose kernels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	root.Flags().IntVarP(&rows, "rows", "r", 1024, "matrix rows")
	root.Flags().IntVarP(&cols, "cols", "c", 1024, "matrix columns")
	root.Flags().IntVarP(&iters, "iters", "i", 10, "timed iterations per variant")
	root.Flags().StringVarP(&variant, "variant", "v", "", "run a single variant (naive, coalesced, conflict-free)")
	root.Flags().BoolVar(&logRuns, "log", false, "append results to a JSON session log")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	if rows <= 0 || cols <= 0 {
		return errors.Errorf("matrix dimensions must be positive, got %dx%d", rows, cols)
	}
	if iters < 1 {
		return errors.New("iters must be >= 1")
	}

	if logRuns {
		if err := simt.InitRunLogger("transpose"); err != nil {
			return err
		}
	}

	dev := simt.GetDevice()
	fmt.Printf("device: %s, %d cores, %s memory\n", dev.Name, dev.NumCores, humanize.IBytes(dev.TotalMem))
	fmt.Printf("matrix: %dx%d float32 (%s), tile %dx%d, block %dx%d\n\n",
		rows, cols, humanize.IBytes(uint64(rows*cols*4)), simt.TileDim, simt.TileDim, simt.TileDim, simt.BlockRows)

	n := rows * cols
	src, err := simt.Malloc(n * 4)
	if err != nil {
		return errors.Wrap(err, "allocating source matrix")
	}
	defer simt.Free(src)

	in := src.Float32()
	for i := 0; i < n; i++ {
		in[i] = float32(i)
	}

	// Naive output is the reference the staged variants are verified against.
	ref, err := simt.Malloc(n * 4)
	if err != nil {
		return errors.Wrap(err, "allocating reference matrix")
	}
	defer simt.Free(ref)
	if err := simt.TransposeNaive(ref, src, rows, cols); err != nil {
		return errors.Wrap(err, "computing reference transpose")
	}

	for _, v := range variants {
		if variant != "" && v.name != variant {
			continue
		}
		if err := timeVariant(v.name, v.fn, src, ref, n); err != nil {
			return err
		}
	}

	if logRuns {
		return simt.PrintRunSummary()
	}
	return nil
}

func timeVariant(name string, fn func(dst, src simt.DevicePtr, rows, cols int) error, src, ref simt.DevicePtr, n int) error {
	dst, err := simt.Malloc(n * 4)
	if err != nil {
		return errors.Wrapf(err, "allocating output for %s", name)
	}
	defer simt.Free(dst)

	// Warm-up and verification run
	if err := fn(dst, src, rows, cols); err != nil {
		if logRuns {
			simt.LogRunFail(name, rows, cols, err)
		}
		return errors.Wrapf(err, "%s transpose failed", name)
	}
	out := dst.Float32()
	want := ref.Float32()
	for i := 0; i < n; i++ {
		if out[i] != want[i] {
			err := errors.Errorf("%s output diverges from reference at element %d", name, i)
			if logRuns {
				simt.LogRunFail(name, rows, cols, err)
			}
			return err
		}
	}

	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := fn(dst, src, rows, cols); err != nil {
			return errors.Wrapf(err, "%s transpose failed", name)
		}
	}
	elapsed := time.Since(start)

	perIter := elapsed / time.Duration(iters)
	bytesMoved := float64(2 * n * 4)
	mbPerSec := bytesMoved / perIter.Seconds() / 1e6

	fmt.Printf("%-15s %12v/iter %10.1f MB/s\n", name, perIter.Round(time.Microsecond), mbPerSec)

	if logRuns {
		simt.LogRunPass(name, rows, cols, iters, elapsed, mbPerSec)
	}
	return nil
}
