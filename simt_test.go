package simt

import (
	"math"
	"math/rand"
	"testing"
)

// Test basic memory allocation and deallocation
func TestMemoryAllocation(t *testing.T) {
	sizes := []int{100, 1000, 10000, 1000000}

	for _, size := range sizes {
		ptr, err := Malloc(size * 4)
		if err != nil {
			t.Fatalf("Failed to allocate %d bytes: %v", size*4, err)
		}

		slice := ptr.Float32()
		if len(slice) != size {
			t.Errorf("Expected slice length %d, got %d", size, len(slice))
		}

		// Write and read test
		for i := 0; i < min(100, size); i++ {
			slice[i] = float32(i)
		}

		for i := 0; i < min(100, size); i++ {
			if slice[i] != float32(i) {
				t.Errorf("Memory corruption at index %d", i)
			}
		}

		err = Free(ptr)
		if err != nil {
			t.Fatalf("Failed to free memory: %v", err)
		}
	}
}

func TestMallocRejectsBadSize(t *testing.T) {
	if _, err := Malloc(0); !IsInvalidArgError(err) {
		t.Errorf("Malloc(0): expected invalid argument error, got %v", err)
	}
	if _, err := Malloc(-16); !IsInvalidArgError(err) {
		t.Errorf("Malloc(-16): expected invalid argument error, got %v", err)
	}
}

func TestDoubleFree(t *testing.T) {
	ptr := MallocOrFail(t, 1024)
	if err := Free(ptr); err != nil {
		t.Fatalf("first Free failed: %v", err)
	}
	if err := Free(ptr); err != ErrDoubleFree {
		t.Errorf("second Free: expected ErrDoubleFree, got %v", err)
	}
}

// Test memory copy operations
func TestMemcpy(t *testing.T) {
	const N = 1000
	rng := rand.New(rand.NewSource(42))

	h_src := make([]float32, N)
	h_dst := make([]float32, N)
	for i := 0; i < N; i++ {
		h_src[i] = rng.Float32()
	}

	d_src := MallocOrFail(t, N*4)
	d_dst := MallocOrFail(t, N*4)
	defer Free(d_src)
	defer Free(d_dst)

	// H2D, D2D, D2H round trip
	MemcpyOrFail(t, d_src, h_src, N*4, MemcpyHostToDevice)
	err := Memcpy(d_dst, d_src, N*4, MemcpyDeviceToDevice)
	if err != nil {
		t.Fatalf("D2D copy failed: %v", err)
	}
	err = Memcpy(h_dst, d_dst, N*4, MemcpyDeviceToHost)
	if err != nil {
		t.Fatalf("D2H copy failed: %v", err)
	}

	for i := 0; i < N; i++ {
		if math.Abs(float64(h_src[i]-h_dst[i])) > 1e-6 {
			t.Errorf("Data mismatch at index %d: %f vs %f", i, h_src[i], h_dst[i])
		}
	}
}

func TestMemcpyRejectsUnsupportedType(t *testing.T) {
	d := MallocOrFail(t, 64)
	defer Free(d)

	if err := Memcpy(d, "not a buffer", 8, MemcpyHostToDevice); !IsInvalidArgError(err) {
		t.Errorf("expected invalid argument error, got %v", err)
	}
	if err := Memcpy(42, d, 8, MemcpyDeviceToHost); !IsInvalidArgError(err) {
		t.Errorf("expected invalid argument error, got %v", err)
	}
}

// Test basic kernel launch
func TestKernelLaunch(t *testing.T) {
	const N = 10000

	d_data := MallocOrFail(t, N*4)
	defer Free(d_data)

	slice := d_data.Float32()
	for i := 0; i < N; i++ {
		slice[i] = 0
	}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < N {
			slice[idx] = float32(idx)
		}
	})

	LaunchOrFail(t, kernel, Dim3{X: (N + 255) / 256, Y: 1, Z: 1}, Dim3{X: 256, Y: 1, Z: 1})
	SynchronizeOrFail(t)

	for i := 0; i < N; i++ {
		if slice[i] != float32(i) {
			t.Errorf("Incorrect value at index %d: expected %f, got %f", i, float32(i), slice[i])
		}
	}
}

func TestEmptyGridLaunch(t *testing.T) {
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		t.Error("kernel ran on an empty grid")
	})

	if err := Launch(kernel, Dim3{X: 0, Y: 0, Z: 0}, Dim3{X: 256, Y: 1, Z: 1}); err != nil {
		t.Fatalf("empty grid launch failed: %v", err)
	}
	SynchronizeOrFail(t)
}

func TestForEachAndMap(t *testing.T) {
	const N = 4096

	d_in := MallocOrFail(t, N*4)
	d_out := MallocOrFail(t, N*4)
	defer Free(d_in)
	defer Free(d_out)

	err := ForEach(d_in, N, func(idx int, val *float32) {
		*val = float32(idx)
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	SynchronizeOrFail(t)

	err = Map(d_in, d_out, N, func(v float32) float32 { return 2 * v })
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	SynchronizeOrFail(t)

	out := d_out.Float32()
	for i := 0; i < N; i++ {
		if out[i] != float32(2*i) {
			t.Fatalf("Map result wrong at %d: got %f, want %f", i, out[i], float32(2*i))
		}
	}
}

// Test device queries
func TestDeviceQueries(t *testing.T) {
	dev := GetDevice()
	if dev == nil {
		t.Fatal("GetDevice returned nil")
	}
	if dev.NumCores < 1 {
		t.Errorf("device reports %d cores", dev.NumCores)
	}
	if dev.TotalMem == 0 {
		t.Error("device reports zero total memory")
	}

	if GetDeviceCount() != 1 {
		t.Errorf("expected 1 device, got %d", GetDeviceCount())
	}

	if err := SetDevice(0); err != nil {
		t.Errorf("SetDevice(0) failed: %v", err)
	}
	if err := SetDevice(3); err == nil {
		t.Error("SetDevice(3) should fail")
	}

	if _, err := GetDeviceProperties(1); err == nil {
		t.Error("GetDeviceProperties(1) should fail")
	}
}

func TestMemoryPoolStats(t *testing.T) {
	pool := NewMemoryPool()

	ptr, err := pool.Allocate(1000)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	allocated, peak := pool.GetStats()
	if allocated <= 0 || peak < allocated {
		t.Errorf("implausible stats: allocated=%d peak=%d", allocated, peak)
	}

	if err := pool.Free(ptr); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	allocated, _ = pool.GetStats()
	if allocated != 0 {
		t.Errorf("allocated should drop to 0 after free, got %d", allocated)
	}

	// Freed block is reused for a fitting allocation
	ptr2, err := pool.Allocate(512)
	if err != nil {
		t.Fatalf("Allocate after free failed: %v", err)
	}
	if ptr2.ptr != ptr.ptr {
		t.Error("expected allocation to reuse the freed block")
	}

	if s := pool.String(); s == "" {
		t.Error("pool String() is empty")
	}
}
