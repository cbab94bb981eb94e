package simt

import (
	"sync"
	"unsafe"
)

// Barrier is a reusable block-wide rendezvous point. All parties must call
// Await before any of them proceeds past it; the barrier then resets for the
// next cycle. There is no timeout: a block is never partially launched, so
// every participant is guaranteed to arrive.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	cycle   uint64
}

// NewBarrier creates a barrier for the given number of parties.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Await blocks until all parties have reached the barrier. The cycle counter,
// not the waiter count, is what releases sleepers: a party racing into the
// next cycle must not be confused with a straggler of the current one.
func (b *Barrier) Await() {
	b.mu.Lock()
	cycle := b.cycle
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.cycle++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for cycle == b.cycle {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Block is the per-block handle passed to cooperative kernels. It carries the
// block's position in the grid, the block-wide barrier, and the shared-memory
// arena. The arena is exclusively owned by one block for the block's
// lifetime and is released when the block retires; it is never visible to
// other blocks.
type Block struct {
	Idx     Dim3 // Block index within the grid
	Dim     Dim3 // Dimensions of the block
	barrier *Barrier
	shared  []byte
}

// Sync blocks until every thread of the block has reached the same point.
// Writes to shared memory made before Sync by any thread are visible to all
// threads of the block after Sync returns. This is the only ordering
// guarantee between threads of a block.
func (b *Block) Sync() {
	b.barrier.Await()
}

// SharedBytes returns the block's shared-memory arena as raw bytes. All
// threads of the block observe the same backing storage.
func (b *Block) SharedBytes() []byte {
	return b.shared
}

// SharedFloat32 returns the block's shared-memory arena viewed as float32s.
func (b *Block) SharedFloat32() []float32 {
	if len(b.shared) == 0 {
		return nil
	}
	n := len(b.shared) / 4
	return (*[1 << 28]float32)(unsafe.Pointer(&b.shared[0]))[:n:n]
}
