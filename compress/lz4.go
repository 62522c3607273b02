package compress

import (
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/shufflepack/format"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains internal hash-table state that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec implements Codec with LZ4 block compression.
//
// LZ4 favors decompression speed over ratio, which suits the shuffle read
// path where a spill file is decompressed once per downstream task.
type LZ4Codec struct{}

var _ Codec = (*LZ4Codec)(nil)

// NewLZ4Codec creates a new LZ4 block codec.
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

func (c LZ4Codec) Type() format.CompressionType {
	return format.CompressionLZ4
}

// MaxCompressedLen reports the LZ4 block bound for srcLen input bytes.
func (c LZ4Codec) MaxCompressedLen(srcLen int) int {
	return lz4.CompressBlockBound(srcLen)
}

// Compress writes the LZ4 block form of src into dst.
//
// CompressBlock reports 0 bytes for incompressible input; that contract is
// surfaced unchanged so callers store the raw bytes instead.
func (c LZ4Codec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("lz4 compress: %w", err)
	}
	if n >= len(src) {
		// Not smaller than the input; treat as incompressible.
		return 0, nil
	}

	return n, nil
}

// Decompress writes the decoded block into dst, which must be sized to the
// original input length.
func (c LZ4Codec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("lz4 decompress: %w", err)
	}

	return n, nil
}
