package simt

import (
	"fmt"
	"testing"
)

func benchmarkTranspose(b *testing.B, fn func(dst, src DevicePtr, rows, cols int) error, rows, cols int) {
	src, err := Malloc(rows * cols * 4)
	if err != nil {
		b.Fatalf("alloc src: %v", err)
	}
	dst, err := Malloc(rows * cols * 4)
	if err != nil {
		b.Fatalf("alloc dst: %v", err)
	}
	defer Free(src)
	defer Free(dst)

	data := src.Float32()
	for i := range data[:rows*cols] {
		data[i] = float32(i)
	}

	// One read plus one write of the whole matrix per op
	b.SetBytes(int64(2 * rows * cols * 4))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := fn(dst, src, rows, cols); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTranspose(b *testing.B) {
	shapes := []struct{ rows, cols int }{
		{256, 256},
		{1024, 1024},
		{1000, 1000}, // partial boundary tiles
		{4096, 1024},
	}

	for _, shape := range shapes {
		for name, fn := range transposeFuncs {
			b.Run(fmt.Sprintf("%s/%dx%d", name, shape.rows, shape.cols), func(b *testing.B) {
				benchmarkTranspose(b, fn, shape.rows, shape.cols)
			})
		}
	}
}
