package compress

import (
	"fmt"
	"testing"
)

func BenchmarkCodec_Compress(b *testing.B) {
	sizes := []int{1024, 16 * 1024, 256 * 1024}

	for _, codec := range append(realCodecs(), NewNoOpCodec()) {
		for _, size := range sizes {
			src := compressibleData(size)
			dst := make([]byte, codec.MaxCompressedLen(size))

			b.Run(fmt.Sprintf("%s_%dKB", codec.Type(), size/1024), func(b *testing.B) {
				b.SetBytes(int64(size))
				b.ResetTimer()

				for b.Loop() {
					if _, err := codec.Compress(dst, src); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkCodec_Decompress(b *testing.B) {
	const size = 64 * 1024
	src := compressibleData(size)

	for _, codec := range realCodecs() {
		dst := make([]byte, codec.MaxCompressedLen(size))
		n, err := codec.Compress(dst, src)
		if err != nil || n == 0 {
			b.Fatalf("compress setup failed: n=%d err=%v", n, err)
		}
		compressed := dst[:n]
		restored := make([]byte, size)

		b.Run(codec.Type().String(), func(b *testing.B) {
			b.SetBytes(int64(size))
			b.ResetTimer()

			for b.Loop() {
				if _, err := codec.Decompress(restored, compressed); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
