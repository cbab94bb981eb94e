package simt

import (
	"testing"
)

func TestDevicePtrViews(t *testing.T) {
	ptr := MallocOrFail(t, 64)
	defer Free(ptr)

	if got := len(ptr.Float32()); got != 16 {
		t.Errorf("Float32 view length = %d, want 16", got)
	}
	if got := len(ptr.Float64()); got != 8 {
		t.Errorf("Float64 view length = %d, want 8", got)
	}
	if got := len(ptr.Int32()); got != 16 {
		t.Errorf("Int32 view length = %d, want 16", got)
	}
	if got := len(ptr.Byte()); got != 64 {
		t.Errorf("Byte view length = %d, want 64", got)
	}
	if ptr.Size() != 64 {
		t.Errorf("Size = %d, want 64", ptr.Size())
	}

	var zero DevicePtr
	if zero.Float32() != nil || zero.Byte() != nil {
		t.Error("zero DevicePtr views must be nil")
	}
}

func TestDevicePtrOffset(t *testing.T) {
	ptr := MallocOrFail(t, 16*4)
	defer Free(ptr)

	data := ptr.Float32()
	for i := range data {
		data[i] = float32(i)
	}

	half := ptr.Offset(8 * 4)
	if half.Size() != 8*4 {
		t.Errorf("offset Size = %d, want %d", half.Size(), 8*4)
	}
	view := half.Float32()
	for i := 0; i < 8; i++ {
		if view[i] != float32(8+i) {
			t.Errorf("offset view[%d] = %f, want %f", i, view[i], float32(8+i))
		}
	}

	// Writes through the offset view land in the parent buffer
	view[0] = -1
	if data[8] != -1 {
		t.Error("offset view does not alias parent memory")
	}
}

func TestStreams(t *testing.T) {
	ctx := defaultContext
	stream := ctx.CreateStream()

	const N = 1024
	d := MallocOrFail(t, N*4)
	defer Free(d)
	out := d.Float32()

	err := ctx.LaunchFuncStream(func(tid ThreadID, args ...interface{}) {
		if idx := tid.Global(); idx < N {
			out[idx] = float32(idx)
		}
	}, Dim3{X: (N + 255) / 256, Y: 1, Z: 1}, Dim3{X: 256, Y: 1, Z: 1}, stream)
	if err != nil {
		t.Fatalf("stream launch failed: %v", err)
	}
	stream.Synchronize()

	for i := 0; i < N; i++ {
		if out[i] != float32(i) {
			t.Fatalf("wrong value at %d: got %f", i, out[i])
		}
	}

	// Tasks submitted to one stream run in order
	order := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		stream.Submit(func() { order = append(order, i) })
	}
	stream.Synchronize()
	for i, v := range order {
		if v != i {
			t.Fatalf("stream tasks ran out of order: %v", order)
		}
	}
}
