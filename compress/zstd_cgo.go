//go:build cgo

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

const zstdDefaultLevel = 3

// MaxCompressedLen reports the libzstd compress bound for srcLen input
// bytes (the ZSTD_COMPRESSBOUND formula).
func (c ZstdCodec) MaxCompressedLen(srcLen int) int {
	margin := 0
	if srcLen < 128*1024 {
		margin = (128*1024 - srcLen) >> 11
	}

	return srcLen + (srcLen >> 8) + margin
}

// Compress writes the Zstd frame for src into dst. Reports 0 when the frame
// would not be smaller than the input.
func (c ZstdCodec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	// CompressLevel appends to dst[:0]; dst is bound-sized so no reallocation.
	res := gozstd.CompressLevel(dst[:0], src, zstdDefaultLevel)
	if len(res) >= len(src) {
		return 0, nil
	}

	return copy(dst, res), nil
}

// Decompress writes the decoded frame into dst, which must be sized to the
// original input length.
func (c ZstdCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	res, err := gozstd.Decompress(dst[:0], src)
	if err != nil {
		return 0, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(res) > len(dst) {
		return 0, fmt.Errorf("zstd decompress: output %d exceeds destination %d", len(res), len(dst))
	}

	return copy(dst, res), nil
}
