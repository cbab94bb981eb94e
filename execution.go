package simt

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// launchInternal implements the sequential-block execution path. Blocks are
// spread across one worker per CPU; the threads of a block run one after
// another on the worker that owns the block, which maximizes cache reuse and
// needs no synchronization. Kernels launched this way must not rely on any
// intra-block ordering.
func (ctx *Context) launchInternal(
	kernelFunc func(ThreadID, ...interface{}),
	grid, block Dim3,
	stream *Stream,
	args ...interface{},
) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if gridSize == 0 {
		// Submit an empty task to maintain stream ordering
		stream.Submit(func() {})
		return nil
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	klog.V(2).Infof("launch: grid=%v block=%v workers=%d", grid, block, numWorkers)

	stream.Submit(func() {
		var wg sync.WaitGroup
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := startBlock + blocksPerWorker
			if endBlock > gridSize {
				endBlock = gridSize
			}

			go func(start, end int) {
				defer wg.Done()

				for blockID := start; blockID < end; blockID++ {
					blockIdx := linearTo3D(blockID, grid)

					for threadID := 0; threadID < blockSize; threadID++ {
						tid := ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						}
						kernelFunc(tid, args...)
					}
				}
			}(startBlock, endBlock)
		}

		wg.Wait()
	})

	return nil
}

// launchCooperativeInternal implements the cooperative execution path. Blocks
// are distributed over a worker pool; within a block, every thread runs on
// its own goroutine so the kernel can rendezvous at the block barrier.
// Each block invocation gets a private shared-memory arena of sharedBytes
// bytes, released when the block retires. There is no synchronization
// primitive across blocks; blocks may run in any order and any placement.
func (ctx *Context) launchCooperativeInternal(
	fn BlockKernelFunc,
	grid, block Dim3,
	sharedBytes int,
	stream *Stream,
	args ...interface{},
) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if blockSize == 0 {
		return NewInvalidArgError("LaunchCooperative", "block must have at least one thread")
	}
	if blockSize > MaxThreadsPerBlock {
		return NewInvalidArgError("LaunchCooperative", "block exceeds MaxThreadsPerBlock")
	}
	if gridSize == 0 {
		stream.Submit(func() {})
		return nil
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	klog.V(2).Infof("cooperative launch: grid=%v block=%v shared=%dB workers=%d",
		grid, block, sharedBytes, numWorkers)

	stream.Submit(func() {
		pool := NewWorkerPool(numWorkers)

		for blockID := 0; blockID < gridSize; blockID++ {
			blockIdx := linearTo3D(blockID, grid)

			pool.Submit(func() {
				blk := &Block{
					Idx:     blockIdx,
					Dim:     block,
					barrier: NewBarrier(blockSize),
				}
				if sharedBytes > 0 {
					blk.shared = make([]byte, sharedBytes)
				}

				var wg sync.WaitGroup
				wg.Add(blockSize)
				for threadID := 0; threadID < blockSize; threadID++ {
					tid := ThreadID{
						BlockIdx:  blockIdx,
						ThreadIdx: linearTo3D(threadID, block),
						BlockDim:  block,
						GridDim:   grid,
					}
					go func(tid ThreadID) {
						defer wg.Done()
						fn(tid, blk, args...)
					}(tid)
				}
				wg.Wait()
			})
		}

		pool.Close()
	})

	return nil
}

// linearTo3D converts a linear index to 3D coordinates.
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// WorkerPool manages a pool of worker goroutines for block execution.
type WorkerPool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		workers: workers,
		tasks:   make(chan func(), workers*2),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker processes tasks from the queue.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit adds a task to the pool.
func (wp *WorkerPool) Submit(task func()) {
	wp.tasks <- task
}

// Close shuts down the worker pool and waits for queued tasks to finish.
func (wp *WorkerPool) Close() {
	close(wp.tasks)
	wp.wg.Wait()
}

// Helper functions for common patterns

// ForEach applies a function to each element in parallel.
func ForEach(data DevicePtr, size int, fn func(idx int, val *float32)) error {
	grid := Dim3{X: (size + DefaultBlockSize - 1) / DefaultBlockSize, Y: 1, Z: 1}
	block := Dim3{X: DefaultBlockSize, Y: 1, Z: 1}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < size {
			slice := data.Float32()
			fn(idx, &slice[idx])
		}
	})

	return Launch(kernel, grid, block, data, size)
}

// Map applies a transformation function to create a new array.
func Map(input, output DevicePtr, size int, fn func(float32) float32) error {
	grid := Dim3{X: (size + DefaultBlockSize - 1) / DefaultBlockSize, Y: 1, Z: 1}
	block := Dim3{X: DefaultBlockSize, Y: 1, Z: 1}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < size {
			in := input.Float32()
			out := output.Float32()
			out[idx] = fn(in[idx])
		}
	})

	return Launch(kernel, grid, block, input, output, size)
}
