// Package simt provides a CUDA-style data-parallel execution model on CPU.
//
// Work is expressed as kernels launched over a grid of thread blocks. Two
// launch paths are available:
//
//   - Launch runs the threads of each block sequentially. This is the cheap
//     path for embarrassingly parallel kernels with no intra-block
//     communication.
//   - LaunchCooperative runs every thread of a block on its own goroutine and
//     gives the kernel a per-block shared-memory arena and a block-wide
//     barrier, so kernels that stage data through shared memory and
//     synchronize mid-kernel can be expressed directly.
//
// On top of the runtime, the package ships a set of tiled matrix-transpose
// kernels (TransposeNaive, TransposeCoalesced, TransposeConflictFree) that
// form the classic coalescing/bank-conflict optimization progression.
package simt
