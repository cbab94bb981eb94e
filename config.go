// Package simt configuration constants
package simt

// Tile and block geometry for the transpose kernels
const (
	// TileDim is the side length of a transpose tile. The matrix is
	// partitioned into TileDim×TileDim tiles, one thread block per tile.
	TileDim = 32

	// BlockRows is the Y extent of a transpose thread block. Each thread
	// covers TileDim/BlockRows rows of its tile.
	BlockRows = 8

	// SharedMemBanks is the number of interleaved shared-memory banks on the
	// modeled device. A row stride that is a multiple of this count puts a
	// whole column of accesses on one bank.
	SharedMemBanks = 32
)

// Thread and block dimensions
const (
	// Default block size for 1D kernels
	DefaultBlockSize = 256

	// Maximum threads per block
	MaxThreadsPerBlock = 1024
)

// Memory pool parameters
const (
	// Memory alignment for allocations (cache line)
	MemoryAlignment = 64

	// Fallback system memory when the OS cannot be probed
	defaultSystemMemory = 16 * 1024 * 1024 * 1024 // 16GB
)

// Cache sizes for different levels (in bytes)
const (
	// L1 cache size per core (typical for modern CPUs)
	L1CacheSize = 32 * 1024 // 32KB

	// L2 cache size per core (typical for modern CPUs)
	L2CacheSize = 256 * 1024 // 256KB
)
