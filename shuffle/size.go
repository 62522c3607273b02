package shuffle

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/compress"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/schema"
)

// LengthPrefixSize is the fixed per-column overhead of the body section:
// every payload is preceded by a 4-byte length.
const LengthPrefixSize = 4

// ArraySize returns the total byte size of an array's materialized physical
// buffers. Absent buffers contribute zero.
func ArraySize(arr *schema.Array) int64 {
	var size int64
	for _, buf := range []*memory.Buffer{arr.Validity, arr.Offsets, arr.Data} {
		if buf != nil {
			size += int64(buf.Len())
		}
	}

	return size
}

// BuffersSize returns the sum of byte lengths over the buffer sequence.
// Nil entries count zero; an empty sequence yields 0.
func BuffersSize(buffers []*memory.Buffer) int64 {
	var size int64
	for _, buf := range buffers {
		if buf != nil {
			size += int64(buf.Len())
		}
	}

	return size
}

// MaxCompressedSize returns an upper bound on the packed body size of the
// buffer sequence: each buffer's worst-case compressed length plus its
// 4-byte length prefix. Because every codec's bound is at least the input
// length, the bound also covers buffers stored raw.
//
// A nil codec is acceptable only while every buffer is empty; otherwise the
// bound is meaningless and the call fails with errs.ErrNilCodec.
func MaxCompressedSize(buffers []*memory.Buffer, codec compress.Codec) (int64, error) {
	size := int64(len(buffers)) * LengthPrefixSize
	for i, buf := range buffers {
		if buf == nil || buf.Len() == 0 {
			continue
		}
		if codec == nil {
			return 0, fmt.Errorf("sizing buffer %d of %d: %w", i, len(buffers), errs.ErrNilCodec)
		}
		size += int64(codec.MaxCompressedLen(buf.Len()))
	}

	return size, nil
}
