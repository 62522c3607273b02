package shuffle

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/endian"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
	"github.com/arloliu/shufflepack/pool"
)

// HeaderSize is the fixed envelope header size in bytes.
const HeaderSize = 24

// maxColumnPayload is the largest payload one column can declare; the body
// carries a uint32 length prefix per column.
const maxColumnPayload = int64(^uint32(0))

// batchHeader is the fixed-size header section of a packed record batch
// envelope. It is 24 bytes and describes every variable-size section that
// follows.
type batchHeader struct {
	// Flag is the packed field for format options, magic number (0xEC10)
	// and codec.
	Flag BatchFlag // 3 bytes, offset 0-2 (reserved byte at offset 3)

	// NumRows is the row count of the source batch, carried verbatim.
	NumRows uint32 // 4 bytes, offset 4-7
	// NumColumns is the number of binary columns in the body section.
	NumColumns uint32 // 4 bytes, offset 8-11
	// NumBuffers is the number of source buffers the batch represents.
	NumBuffers uint32 // 4 bytes, offset 12-15
	// BodyLength is the exact byte length of the body section.
	BodyLength int64 // 8 bytes, offset 16-23
}

// parse reads and validates the fixed header from the first HeaderSize
// bytes of data.
func (h *batchHeader) parse(data []byte) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidHeaderSize
	}

	// The Options field itself is always little-endian; its endianness bit
	// governs the remaining fields.
	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.Codec = data[2]
	if err := h.Flag.Validate(); err != nil {
		return err
	}
	if data[3] != 0 {
		return fmt.Errorf("%w: reserved header byte must be zero", errs.ErrInvalidArgument)
	}

	engine := h.Flag.GetEndianEngine()
	h.NumRows = engine.Uint32(data[4:8])
	h.NumColumns = engine.Uint32(data[8:12])
	h.NumBuffers = engine.Uint32(data[12:16])
	h.BodyLength = int64(engine.Uint64(data[16:24]))

	if h.BodyLength < 0 {
		return fmt.Errorf("%w: negative body length %d", errs.ErrInvalidArgument, h.BodyLength)
	}

	switch h.Flag.Mode() {
	case format.ModeWholeBatch:
		if h.NumColumns != 1 {
			return fmt.Errorf("%w: whole-batch envelope must carry exactly one column, got %d",
				errs.ErrInvalidArgument, h.NumColumns)
		}
	case format.ModePerBuffer:
		if h.NumColumns != h.NumBuffers {
			return fmt.Errorf("%w: per-buffer envelope carries %d columns for %d buffers",
				errs.ErrInvalidArgument, h.NumColumns, h.NumBuffers)
		}
	}

	return nil
}

// encode writes the header into the first HeaderSize bytes of dst.
func (h *batchHeader) encode(dst []byte) {
	engine := h.Flag.GetEndianEngine()

	dst[0] = byte(h.Flag.Options)
	dst[1] = byte(h.Flag.Options >> 8)
	dst[2] = h.Flag.Codec
	dst[3] = 0
	engine.PutUint32(dst[4:8], h.NumRows)
	engine.PutUint32(dst[8:12], h.NumColumns)
	engine.PutUint32(dst[12:16], h.NumBuffers)
	engine.PutUint64(dst[16:24], uint64(h.BodyLength))
}

// sectionSizes returns the byte lengths of the three metadata sections
// between the header and the body.
func (h *batchHeader) sectionSizes() (bitmapLen, offsetsLen, rawSizesLen int) {
	bitmapLen = (int(h.NumColumns) + 7) / 8
	offsetsLen = (int(h.NumColumns) + 1) * 8
	rawSizesLen = int(h.NumBuffers) * 8

	return bitmapLen, offsetsLen, rawSizesLen
}

// envelopeSize returns the total serialized size the header implies.
func (h *batchHeader) envelopeSize() int {
	bitmapLen, offsetsLen, rawSizesLen := h.sectionSizes()
	return HeaderSize + bitmapLen + offsetsLen + rawSizesLen + int(h.BodyLength)
}

// PackedRecordBatch is one self-describing shuffle envelope: a single row
// whose columns are length-prefixed binary payloads, each independently
// compressed or raw.
//
// Serialized layout, in section order:
//
//	header    24 bytes (batchHeader)
//	bitmap    ceil(numColumns/8) bytes, bit i set = column i compressed
//	offsets   (numColumns+1) × int64, body-relative, offsets[0] = 0
//	rawSizes  numBuffers × int64, uncompressed length per source buffer
//	body      per column: [uint32 length][payload]
//
// A batch either views caller-provided bytes (ParsePackedRecordBatch) or
// owns one pool allocation (packer output, ReadPackedRecordBatch); Release
// frees the latter and is a no-op for the former.
type PackedRecordBatch struct {
	header batchHeader

	data *memory.Buffer // owning allocation, nil for parsed views
	raw  []byte         // full envelope

	bitmap   []byte
	offsets  []int64
	rawSizes []int64
	body     []byte
}

// ParsePackedRecordBatch validates data as one complete envelope and
// returns a batch viewing it. The batch holds no allocation of its own; the
// caller keeps data alive for as long as the batch is used.
func ParsePackedRecordBatch(data []byte) (*PackedRecordBatch, error) {
	b := &PackedRecordBatch{}
	if err := b.parse(data); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *PackedRecordBatch) parse(data []byte) error {
	if err := b.header.parse(data); err != nil {
		return err
	}

	total := b.header.envelopeSize()
	if len(data) != total {
		return fmt.Errorf("%w: envelope is %d bytes, sections require %d",
			errs.ErrTruncatedBatch, len(data), total)
	}

	engine := b.header.Flag.GetEndianEngine()
	bitmapLen, _, _ := b.header.sectionSizes()

	cursor := HeaderSize
	b.bitmap = data[cursor : cursor+bitmapLen]
	cursor += bitmapLen

	b.offsets = make([]int64, b.header.NumColumns+1)
	for i := range b.offsets {
		b.offsets[i] = int64(engine.Uint64(data[cursor : cursor+8]))
		cursor += 8
	}

	b.rawSizes = make([]int64, b.header.NumBuffers)
	for i := range b.rawSizes {
		b.rawSizes[i] = int64(engine.Uint64(data[cursor : cursor+8]))
		if b.rawSizes[i] < 0 {
			return fmt.Errorf("%w: negative raw size for buffer %d", errs.ErrInvalidArgument, i)
		}
		cursor += 8
	}

	b.body = data[cursor:]
	b.raw = data

	return b.validateOffsets(engine)
}

// validateOffsets checks the offset invariants: offsets start at zero, end
// at bodyLength, and every column's length prefix matches the span its
// offsets declare.
func (b *PackedRecordBatch) validateOffsets(engine endian.EndianEngine) error {
	numColumns := int(b.header.NumColumns)
	if b.offsets[0] != 0 {
		return fmt.Errorf("%w: offsets must start at zero, got %d", errs.ErrInvalidArgument, b.offsets[0])
	}
	if b.offsets[numColumns] != b.header.BodyLength {
		return fmt.Errorf("%w: offsets end at %d, body length is %d",
			errs.ErrTruncatedBatch, b.offsets[numColumns], b.header.BodyLength)
	}

	for i := 0; i < numColumns; i++ {
		span := b.offsets[i+1] - b.offsets[i]
		if span < LengthPrefixSize {
			return fmt.Errorf("%w: column %d spans %d bytes, shorter than its length prefix",
				errs.ErrTruncatedBatch, i, span)
		}
		declared := engine.Uint32(b.body[b.offsets[i] : b.offsets[i]+4])
		if int64(declared) != span-LengthPrefixSize {
			return fmt.Errorf("%w: column %d declares %d payload bytes, offsets span %d",
				errs.ErrTruncatedBatch, i, declared, span-LengthPrefixSize)
		}
	}

	return nil
}

// NumRows returns the row count of the source batch.
func (b *PackedRecordBatch) NumRows() int {
	return int(b.header.NumRows)
}

// NumColumns returns the number of binary columns in the body.
func (b *PackedRecordBatch) NumColumns() int {
	return int(b.header.NumColumns)
}

// NumBuffers returns the number of source buffers the batch represents.
func (b *PackedRecordBatch) NumBuffers() int {
	return int(b.header.NumBuffers)
}

// Mode returns the compression mode of the envelope.
func (b *PackedRecordBatch) Mode() format.CompressionMode {
	return b.header.Flag.Mode()
}

// Compression returns the codec type applied to compressed columns.
func (b *PackedRecordBatch) Compression() format.CompressionType {
	return b.header.Flag.Compression()
}

// Column returns the payload view of column i and whether it is
// compressed. The view shares the batch's backing bytes and is valid until
// Release. Panics if i is out of range.
func (b *PackedRecordBatch) Column(i int) ([]byte, bool) {
	start := int(b.offsets[i]) + LengthPrefixSize
	end := int(b.offsets[i+1])

	return b.body[start:end:end], b.isCompressed(i)
}

// RawSize returns the uncompressed byte length of source buffer i. Panics
// if i is out of range.
func (b *PackedRecordBatch) RawSize(i int) int64 {
	return b.rawSizes[i]
}

// Size returns the total serialized length of the envelope.
func (b *PackedRecordBatch) Size() int64 {
	return int64(len(b.raw))
}

// Bytes returns the serialized envelope. The view shares the batch's
// backing bytes and is valid until Release.
func (b *PackedRecordBatch) Bytes() []byte {
	return b.raw
}

// WriteTo writes the serialized envelope to w.
func (b *PackedRecordBatch) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.raw)
	return int64(n), err
}

// Release frees the batch's backing allocation, if it owns one. Idempotent;
// the batch and every view obtained from it are invalid afterwards.
func (b *PackedRecordBatch) Release() {
	if b.data != nil {
		b.data.Release()
		b.data = nil
	}
	b.raw = nil
	b.bitmap = nil
	b.body = nil
}

func (b *PackedRecordBatch) isCompressed(i int) bool {
	return b.bitmap[i/8]&(1<<(i%8)) != 0
}

// ReadPackedRecordBatch reads one complete envelope from r into a single
// allocation from alloc (memory.DefaultAllocator when nil). A clean
// end-of-stream before any header byte returns (nil, io.EOF); an envelope
// cut short mid-way fails with errs.ErrTruncatedBatch.
func ReadPackedRecordBatch(r io.Reader, alloc memory.Allocator) (batch *PackedRecordBatch, err error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: envelope header cut short", errs.ErrTruncatedBatch)
		}

		return nil, fmt.Errorf("%w: reading envelope header: %w", errs.ErrIO, err)
	}

	var h batchHeader
	if err := h.parse(header[:]); err != nil {
		return nil, err
	}

	if alloc == nil {
		alloc = memory.DefaultAllocator
	}

	defer func() {
		if ae := pool.CheckAllocError(recover()); ae != nil {
			batch, err = nil, fmt.Errorf("%w: reading envelope: %v", errs.ErrOutOfMemory, ae)
		}
	}()

	buf := memory.NewResizableBuffer(alloc)
	buf.Resize(h.envelopeSize())
	data := buf.Bytes()
	copy(data, header[:])

	if _, err := io.ReadFull(r, data[HeaderSize:]); err != nil {
		buf.Release()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: envelope body cut short", errs.ErrTruncatedBatch)
		}

		return nil, fmt.Errorf("%w: reading envelope body: %w", errs.ErrIO, err)
	}

	b := &PackedRecordBatch{data: buf}
	if err := b.parse(data); err != nil {
		buf.Release()
		return nil, err
	}

	return b, nil
}
