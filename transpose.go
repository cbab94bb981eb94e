package simt

import (
	"fmt"
)

// Tiled matrix transpose kernels.
//
// All three variants compute dst = src^T for a rows×cols row-major matrix,
// writing a cols×rows row-major result. They differ only in how data moves:
//
//   - TransposeNaive reads each element and writes it straight to its
//     transposed position. Reads are coalesced (the fast-varying thread
//     index walks the contiguous axis of src) but writes land on the strided
//     axis of dst.
//   - TransposeCoalesced stages each tile through block shared memory with a
//     barrier between the load and store phases, making both the global read
//     and the global write contiguous.
//   - TransposeConflictFree additionally pads the shared tile's row stride
//     by one element so that the store-phase column readout hits distinct
//     shared-memory banks instead of serializing on one.
//
// Each TileDim×TileDim tile is handled by one TileDim×BlockRows thread
// block; every thread covers TileDim/BlockRows rows of its tile. Matrix
// dimensions need not be multiples of TileDim: threads of boundary tiles
// skip the iterations that fall outside the matrix.

type transposeVariant int

const (
	variantNaive transposeVariant = iota
	variantCoalesced
	variantConflictFree
)

// TransposeNaive transposes the rows×cols matrix at src into dst using
// direct global reads and writes.
func TransposeNaive(dst, src DevicePtr, rows, cols int) error {
	return transposeLaunch(variantNaive, dst, src, rows, cols)
}

// TransposeCoalesced transposes the rows×cols matrix at src into dst,
// staging each tile through block shared memory so both global loads and
// global stores are contiguous.
func TransposeCoalesced(dst, src DevicePtr, rows, cols int) error {
	return transposeLaunch(variantCoalesced, dst, src, rows, cols)
}

// TransposeConflictFree is TransposeCoalesced with the shared tile's row
// stride padded to TileDim+1, eliminating shared-memory bank conflicts in
// the store phase. Output is identical to the other variants.
func TransposeConflictFree(dst, src DevicePtr, rows, cols int) error {
	return transposeLaunch(variantConflictFree, dst, src, rows, cols)
}

// Transpose transposes the rows×cols matrix at src into dst using the
// conflict-free tiled kernel.
func Transpose(dst, src DevicePtr, rows, cols int) error {
	return TransposeConflictFree(dst, src, rows, cols)
}

// TransposeAlloc allocates a cols×rows output buffer, transposes src into
// it, and returns it. The caller owns the returned buffer.
func TransposeAlloc(src DevicePtr, rows, cols int) (DevicePtr, error) {
	dst, err := Malloc(rows * cols * 4)
	if err != nil {
		return DevicePtr{}, err
	}
	if err := Transpose(dst, src, rows, cols); err != nil {
		Free(dst)
		return DevicePtr{}, err
	}
	return dst, nil
}

// transposeLaunch validates the buffers, computes the launch geometry and
// dispatches the chosen kernel variant. It never allocates the destination;
// output storage belongs to the caller.
func transposeLaunch(variant transposeVariant, dst, src DevicePtr, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return NewInvalidArgError("Transpose", fmt.Sprintf("dimensions must be positive, got %dx%d", rows, cols))
	}
	need := rows * cols * 4
	if src.Size() < need {
		return NewInvalidArgError("Transpose", fmt.Sprintf("source buffer holds %d bytes, need %d", src.Size(), need))
	}
	if dst.Size() < need {
		return ErrShapeMismatch
	}

	grid := Dim3{X: (cols + TileDim - 1) / TileDim, Y: (rows + TileDim - 1) / TileDim, Z: 1}
	block := Dim3{X: TileDim, Y: BlockRows, Z: 1}

	in := src.Float32()
	out := dst.Float32()

	var err error
	switch variant {
	case variantNaive:
		err = LaunchFunc(func(tid ThreadID, args ...interface{}) {
			transposeNaiveKernel(tid, in, out, rows, cols)
		}, grid, block)
	case variantCoalesced:
		err = LaunchCooperative(func(tid ThreadID, blk *Block, args ...interface{}) {
			transposeTiledKernel(tid, blk, in, out, rows, cols, TileDim)
		}, grid, block, TileDim*TileDim*4)
	case variantConflictFree:
		err = LaunchCooperative(func(tid ThreadID, blk *Block, args ...interface{}) {
			transposeTiledKernel(tid, blk, in, out, rows, cols, TileDim+1)
		}, grid, block, TileDim*(TileDim+1)*4)
	default:
		return NewInvalidArgError("Transpose", fmt.Sprintf("unknown variant %d", variant))
	}
	if err != nil {
		return err
	}
	return Synchronize()
}

// transposeNaiveKernel writes each in-range element of its tile directly to
// the transposed position. Out-of-range iterations on boundary tiles are
// skipped, not errors.
func transposeNaiveKernel(tid ThreadID, in, out []float32, rows, cols int) {
	x := tid.BlockIdx.X*TileDim + tid.ThreadIdx.X
	for j := 0; j < TileDim; j += BlockRows {
		y := tid.BlockIdx.Y*TileDim + tid.ThreadIdx.Y + j
		if x < cols && y < rows {
			out[x*rows+y] = in[y*cols+x]
		}
	}
}

// transposeTiledKernel stages one tile through block shared memory. Phase 1
// loads a contiguous chunk of src and stores it transposed within the tile;
// after the barrier, phase 2 writes a contiguous chunk of dst from the tile.
// stride is the shared tile's row stride: TileDim for the plain variant,
// TileDim+1 for the bank-conflict-free one. The padding column never
// carries data.
func transposeTiledKernel(tid ThreadID, blk *Block, in, out []float32, rows, cols, stride int) {
	tile := blk.SharedFloat32()
	tx := tid.ThreadIdx.X
	ty := tid.ThreadIdx.Y

	// Phase 1: coalesced read from src. Each thread writes cells of the
	// tile it exclusively owns, so no two threads touch the same slot.
	x := tid.BlockIdx.X*TileDim + tx
	for j := 0; j < TileDim; j += BlockRows {
		y := tid.BlockIdx.Y*TileDim + ty + j
		if x < cols && y < rows {
			tile[(ty+j)*stride+tx] = in[y*cols+x]
		}
	}

	// Phase 2 reads tile cells written by other threads; nothing may
	// proceed until every phase-1 write has landed.
	blk.Sync()

	// Phase 2: coalesced write to dst from the transposed block position.
	// Bounds are checked independently of phase 1: when rows != cols a
	// thread can be in range for one phase only.
	x2 := tid.BlockIdx.Y*TileDim + tx
	for j := 0; j < TileDim; j += BlockRows {
		y2 := tid.BlockIdx.X*TileDim + ty + j
		if x2 < rows && y2 < cols {
			out[y2*rows+x2] = tile[tx*stride+ty+j]
		}
	}
}
