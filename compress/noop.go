package compress

import "github.com/arloliu/shufflepack/format"

// NoOpCodec implements Codec as a pass-through copy.
//
// With this codec every buffer fails the "compressed must be smaller" test,
// so the packer stores raw bytes throughout. It exists so a disabled-codec
// configuration flows through the same planning path as the real algorithms,
// and as a baseline for benchmarks.
type NoOpCodec struct{}

var _ Codec = (*NoOpCodec)(nil)

// NewNoOpCodec creates a new pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

func (c NoOpCodec) Type() format.CompressionType {
	return format.CompressionNone
}

// MaxCompressedLen is the identity bound: output equals input.
func (c NoOpCodec) MaxCompressedLen(srcLen int) int {
	return srcLen
}

// Compress copies src into dst unchanged.
func (c NoOpCodec) Compress(dst, src []byte) (int, error) {
	return copy(dst, src), nil
}

// Decompress copies src into dst unchanged.
func (c NoOpCodec) Decompress(dst, src []byte) (int, error) {
	return copy(dst, src), nil
}
