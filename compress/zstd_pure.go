//go:build !cgo

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoderPool pools zstd encoders for reuse to eliminate allocation overhead.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderCRC(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}
		return encoder
	},
}

// zstdDecoderPool pools zstd decoders for reuse.
// The klauspost/compress/zstd library is explicitly designed for decoder
// reuse and operates without allocations after a warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

// MaxCompressedLen reports the encoder's worst-case output size for srcLen
// input bytes.
func (c ZstdCodec) MaxCompressedLen(srcLen int) int {
	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.MaxEncodedSize(srcLen)
}

// Compress writes the Zstd frame for src into dst. Reports 0 when the frame
// would not be smaller than the input.
func (c ZstdCodec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	// EncodeAll appends to dst[:0]; dst is bound-sized so no reallocation.
	res := encoder.EncodeAll(src, dst[:0])
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

	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	res, err := decoder.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(res) > len(dst) {
		return 0, fmt.Errorf("zstd decompress: output %d exceeds destination %d", len(res), len(dst))
	}

	return copy(dst, res), nil
}
