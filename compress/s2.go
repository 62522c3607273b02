package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/shufflepack/format"
)

// S2Codec implements Codec with S2, a Snappy-compatible format balancing
// compression ratio and speed.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

func (c S2Codec) Type() format.CompressionType {
	return format.CompressionS2
}

// MaxCompressedLen reports the S2 encoded-size bound for srcLen input bytes.
func (c S2Codec) MaxCompressedLen(srcLen int) int {
	return s2.MaxEncodedLen(srcLen)
}

// Compress writes the S2 form of src into dst. Reports 0 when the encoded
// form would not be smaller than the input.
func (c S2Codec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	// dst is bound-sized, so Encode writes in place rather than allocating.
	res := s2.Encode(dst, src)
	if len(res) >= len(src) {
		return 0, nil
	}

	return copy(dst, res), nil
}

// Decompress writes the decoded form of src into dst, which must be sized to
// the original input length.
func (c S2Codec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	res, err := s2.Decode(dst, src)
	if err != nil {
		return 0, fmt.Errorf("s2 decompress: %w", err)
	}
	if len(res) > len(dst) {
		return 0, fmt.Errorf("s2 decompress: output %d exceeds destination %d", len(res), len(dst))
	}

	return copy(dst, res), nil
}
