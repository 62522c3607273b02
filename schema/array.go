package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/errs"
)

// zeroLengthNull is the canonical zero-length buffer. It has no backing
// allocator, so Retain and Release are no-ops and the singleton is safe to
// share everywhere a structurally-required buffer is logically absent.
var zeroLengthNull = memory.NewBufferBytes([]byte{})

// ZeroLengthNullBuffer returns the canonical zero-length buffer used
// wherever a column requires a buffer slot that holds no bytes. It is never
// nil, so downstream consumers never branch on buffer nullability.
func ZeroLengthNullBuffer() *memory.Buffer {
	return zeroLengthNull
}

// Array describes one logical column as its physical buffers. The value
// type determines which buffer slots are meaningful; absent buffers may be
// nil and are replaced by the canonical zero-length buffer when the array is
// flattened for packing.
//
// An Array references its buffers, it does not own them; the caller controls
// their lifetime.
type Array struct {
	Type   ValueType
	Length int

	Validity *memory.Buffer
	Offsets  *memory.Buffer
	Data     *memory.Buffer
}

// NewArray creates a column descriptor and validates the buffer set against
// the type's layout: an offsets buffer is only permitted for variable-width
// types, and a Null column carries no buffers at all.
func NewArray(t ValueType, length int, validity, offsets, data *memory.Buffer) (*Array, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unsupported value type %d", errs.ErrInvalidArgument, uint8(t))
	}
	if !t.HasOffsets() && offsets != nil {
		return nil, fmt.Errorf("%w: %s column cannot carry an offsets buffer", errs.ErrInvalidArgument, t)
	}
	if t == TypeNull && (validity != nil || data != nil) {
		return nil, fmt.Errorf("%w: Null column cannot carry buffers", errs.ErrInvalidArgument)
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: negative array length %d", errs.ErrInvalidArgument, length)
	}

	return &Array{Type: t, Length: length, Validity: validity, Offsets: offsets, Data: data}, nil
}

// ShuffleBuffers returns the array's physical buffers in layout order
// (validity, offsets if any, data). Absent buffers come back as the
// canonical zero-length buffer, never nil, and the result length always
// equals Type.BufferCount().
func (a *Array) ShuffleBuffers() []*memory.Buffer {
	count := a.Type.BufferCount()
	if count == 0 {
		return nil
	}

	out := make([]*memory.Buffer, 0, count)
	out = append(out, orZeroLength(a.Validity))
	if a.Type.HasOffsets() {
		out = append(out, orZeroLength(a.Offsets))
	}
	out = append(out, orZeroLength(a.Data))

	return out
}

// FlattenArrays concatenates every array's physical buffers in order,
// producing the flat buffer sequence the packer consumes.
func FlattenArrays(arrays []*Array) []*memory.Buffer {
	total := 0
	for _, a := range arrays {
		total += a.Type.BufferCount()
	}

	out := make([]*memory.Buffer, 0, total)
	for _, a := range arrays {
		out = append(out, a.ShuffleBuffers()...)
	}

	return out
}

func orZeroLength(buf *memory.Buffer) *memory.Buffer {
	if buf == nil {
		return zeroLengthNull
	}

	return buf
}
