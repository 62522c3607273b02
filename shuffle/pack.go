package shuffle

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/compress"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
	"github.com/arloliu/shufflepack/internal/options"
	"github.com/arloliu/shufflepack/pool"
	"github.com/arloliu/shufflepack/schema"
)

// Packer assembles packed record batch envelopes from flat buffer
// sequences. Configure it once, then call Compressed or Uncompressed per
// partition batch.
//
// A Packer holds no state between calls apart from its configuration, so it
// is safe for concurrent use when its allocator is.
type Packer struct {
	alloc     memory.Allocator
	codec     compress.Codec
	threshold int64
	mode      format.CompressionMode
}

// Option configures a Packer.
type Option = options.Option[*Packer]

// WithAllocator sets the memory allocator backing every envelope the packer
// produces. Defaults to memory.DefaultAllocator.
func WithAllocator(alloc memory.Allocator) Option {
	return options.New(func(p *Packer) error {
		if alloc == nil {
			return fmt.Errorf("%w: nil allocator", errs.ErrInvalidArgument)
		}
		p.alloc = alloc

		return nil
	})
}

// WithCodec sets the compression codec directly. A nil codec leaves the
// packer without compression support; Compressed then requires all-empty
// buffers.
func WithCodec(codec compress.Codec) Option {
	return options.NoError(func(p *Packer) {
		p.codec = codec
	})
}

// WithCompression selects a built-in codec by compression type.
func WithCompression(compressionType format.CompressionType) Option {
	return options.New(func(p *Packer) error {
		codec, err := compress.CreateCodec(compressionType, "packer")
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
		}
		p.codec = codec

		return nil
	})
}

// WithCompressThreshold sets the buffer size above which compression is
// attempted. A region whose raw length is at or below the threshold is
// stored verbatim. Defaults to 0: every non-empty region is attempted.
func WithCompressThreshold(threshold int64) Option {
	return options.New(func(p *Packer) error {
		if threshold < 0 {
			return fmt.Errorf("%w: negative compress threshold %d", errs.ErrInvalidArgument, threshold)
		}
		p.threshold = threshold

		return nil
	})
}

// WithMode selects the compression mode for Compressed: per-buffer columns
// or one whole-batch column. Defaults to ModePerBuffer.
func WithMode(mode format.CompressionMode) Option {
	return options.New(func(p *Packer) error {
		if !mode.Valid() {
			return fmt.Errorf("%w: invalid compression mode 0x%02X", errs.ErrInvalidArgument, uint8(mode))
		}
		p.mode = mode

		return nil
	})
}

// NewPacker creates a Packer with the given options.
func NewPacker(opts ...Option) (*Packer, error) {
	p := &Packer{
		alloc: memory.DefaultAllocator,
		mode:  format.ModePerBuffer,
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	return p, nil
}

// Compressed packs buffers into one envelope under the packer's compression
// policy. numRows is carried verbatim into the header. The write schema
// determines the expected buffer count: one field per buffer for
// ModePerBuffer, exactly one field for ModeWholeBatch. The caller-owned
// elapsed accumulator (nil to skip measuring) collects codec wall time.
//
// The envelope is materialized into a single allocation sized by the
// codec's worst-case bound and trimmed to the bytes actually used. Input
// buffers are only read; the batch retains no reference to them.
func (p *Packer) Compressed(numRows int, buffers []*memory.Buffer, writeSchema *schema.Schema, elapsed *CompressionTime) (batch *PackedRecordBatch, err error) {
	if err := validatePackArgs(numRows, buffers, writeSchema, p.mode); err != nil {
		return nil, err
	}
	if p.codec == nil && BuffersSize(buffers) > 0 {
		return nil, fmt.Errorf("packing %d buffers: %w", len(buffers), errs.ErrNilCodec)
	}

	defer func() {
		if ae := pool.CheckAllocError(recover()); ae != nil {
			batch, err = nil, fmt.Errorf("%w: packing batch: %v", errs.ErrOutOfMemory, ae)
		}
	}()

	pl := &planner{codec: p.codec, threshold: p.threshold, elapsed: elapsed}
	if p.mode == format.ModeWholeBatch {
		return p.packWholeBatch(numRows, buffers, pl)
	}

	return p.packPerBuffer(numRows, buffers, pl)
}

// Uncompressed packs buffers into one envelope with compression skipped
// unconditionally: per-buffer layout, bitmap all clear, codec recorded as
// None. The write schema must carry one field per buffer.
func (p *Packer) Uncompressed(numRows int, buffers []*memory.Buffer, writeSchema *schema.Schema) (batch *PackedRecordBatch, err error) {
	if err := validatePackArgs(numRows, buffers, writeSchema, format.ModePerBuffer); err != nil {
		return nil, err
	}

	defer func() {
		if ae := pool.CheckAllocError(recover()); ae != nil {
			batch, err = nil, fmt.Errorf("%w: packing batch: %v", errs.ErrOutOfMemory, ae)
		}
	}()

	return p.packPerBuffer(numRows, buffers, &planner{})
}

func validatePackArgs(numRows int, buffers []*memory.Buffer, writeSchema *schema.Schema, mode format.CompressionMode) error {
	if numRows < 0 || int64(numRows) > math.MaxUint32 {
		return fmt.Errorf("%w: row count %d outside uint32 range", errs.ErrInvalidArgument, numRows)
	}
	if writeSchema == nil {
		return fmt.Errorf("%w: nil write schema", errs.ErrInvalidArgument)
	}

	if mode == format.ModeWholeBatch {
		if writeSchema.NumFields() != 1 {
			return fmt.Errorf("%w: whole-batch write schema must have exactly one field, got %d",
				errs.ErrBufferCountMismatch, writeSchema.NumFields())
		}

		return nil
	}
	if writeSchema.NumFields() != len(buffers) {
		return fmt.Errorf("%w: %d buffers for %d schema fields",
			errs.ErrBufferCountMismatch, len(buffers), writeSchema.NumFields())
	}

	return nil
}

// packPerBuffer materializes a per-buffer envelope: one column per source
// buffer, each compressed or raw on its own merits.
func (p *Packer) packPerBuffer(numRows int, buffers []*memory.Buffer, pl *planner) (*PackedRecordBatch, error) {
	numColumns := len(buffers)
	header := batchHeader{
		Flag:       NewBatchFlag(format.ModePerBuffer, pl.codecType()),
		NumRows:    uint32(numRows),
		NumColumns: uint32(numColumns),
		NumBuffers: uint32(numColumns),
	}

	bodyBound, err := packBound(buffers, pl.codec)
	if err != nil {
		return nil, err
	}

	bitmapLen, _, _ := header.sectionSizes()
	bodyStart := HeaderSize + bitmapLen + (numColumns+1)*8 + numColumns*8

	buf := memory.NewResizableBuffer(p.alloc)
	buf.Resize(bodyStart + int(bodyBound))
	data := buf.Bytes()

	// The allocation is recycled pool memory; only the bitmap needs to
	// start from a known state, everything else is overwritten in full.
	bitmap := data[HeaderSize : HeaderSize+bitmapLen]
	clear(bitmap)

	engine := header.Flag.GetEndianEngine()
	offsets := make([]int64, numColumns+1)
	rawSizes := make([]int64, numColumns)

	cursor := bodyStart
	for i, b := range buffers {
		src := bufferBytes(b)
		if int64(len(src)) > maxColumnPayload {
			buf.Release()
			return nil, fmt.Errorf("%w: buffer %d is %d bytes, beyond the uint32 length prefix",
				errs.ErrInvalidArgument, i, len(src))
		}
		rawSizes[i] = int64(len(src))

		n, compressed, err := pl.fill(data[cursor+LengthPrefixSize:], src)
		if err != nil {
			buf.Release()
			return nil, err
		}
		if compressed {
			bitmap[i/8] |= 1 << (i % 8)
		}

		engine.PutUint32(data[cursor:cursor+LengthPrefixSize], uint32(n))
		cursor += LengthPrefixSize + n
		offsets[i+1] = int64(cursor - bodyStart)
	}

	header.BodyLength = int64(cursor - bodyStart)

	return finishEnvelope(buf, data[:cursor], header, bitmap, offsets, rawSizes), nil
}

// packWholeBatch materializes a whole-batch envelope: all source buffers
// concatenated into one column, compressed as a single unit.
func (p *Packer) packWholeBatch(numRows int, buffers []*memory.Buffer, pl *planner) (*PackedRecordBatch, error) {
	numBuffers := len(buffers)
	header := batchHeader{
		Flag:       NewBatchFlag(format.ModeWholeBatch, pl.codecType()),
		NumRows:    uint32(numRows),
		NumColumns: 1,
		NumBuffers: uint32(numBuffers),
	}

	total := BuffersSize(buffers)
	if total > maxColumnPayload {
		return nil, fmt.Errorf("%w: concatenated buffers are %d bytes, beyond the uint32 length prefix",
			errs.ErrInvalidArgument, total)
	}

	rawSizes := make([]int64, numBuffers)
	for i, b := range buffers {
		if b != nil {
			rawSizes[i] = int64(b.Len())
		}
	}

	// The codec needs one contiguous input; a lone source buffer is used
	// as-is, anything else is concatenated into scratch first.
	src, scratch := concatBuffers(p.alloc, buffers, total)
	if scratch != nil {
		defer scratch.Release()
	}

	bound := total
	if pl.codec != nil {
		bound = int64(pl.codec.MaxCompressedLen(int(total)))
	}

	bitmapLen, _, _ := header.sectionSizes()
	bodyStart := HeaderSize + bitmapLen + 2*8 + numBuffers*8

	buf := memory.NewResizableBuffer(p.alloc)
	buf.Resize(bodyStart + LengthPrefixSize + int(bound))
	data := buf.Bytes()

	bitmap := data[HeaderSize : HeaderSize+bitmapLen]
	clear(bitmap)

	n, compressed, err := pl.fill(data[bodyStart+LengthPrefixSize:], src)
	if err != nil {
		buf.Release()
		return nil, err
	}
	if compressed {
		bitmap[0] |= 1
	}

	engine := header.Flag.GetEndianEngine()
	engine.PutUint32(data[bodyStart:bodyStart+LengthPrefixSize], uint32(n))

	end := bodyStart + LengthPrefixSize + n
	header.BodyLength = int64(LengthPrefixSize + n)
	offsets := []int64{0, header.BodyLength}

	return finishEnvelope(buf, data[:end], header, bitmap, offsets, rawSizes), nil
}

// finishEnvelope writes the metadata sections into the allocation and wraps
// everything as a batch owning it.
func finishEnvelope(buf *memory.Buffer, raw []byte, header batchHeader, bitmap []byte, offsets, rawSizes []int64) *PackedRecordBatch {
	engine := header.Flag.GetEndianEngine()
	header.encode(raw[:HeaderSize])

	pos := HeaderSize + len(bitmap)
	for _, off := range offsets {
		engine.PutUint64(raw[pos:pos+8], uint64(off))
		pos += 8
	}
	for _, rs := range rawSizes {
		engine.PutUint64(raw[pos:pos+8], uint64(rs))
		pos += 8
	}

	return &PackedRecordBatch{
		header:   header,
		data:     buf,
		raw:      raw,
		bitmap:   bitmap,
		offsets:  offsets,
		rawSizes: rawSizes,
		body:     raw[pos:],
	}
}

// packBound returns the body-section allocation bound for a per-buffer
// pack: the codec bound per buffer, or the raw sizes when no codec is in
// play.
func packBound(buffers []*memory.Buffer, codec compress.Codec) (int64, error) {
	if codec == nil {
		return BuffersSize(buffers) + int64(len(buffers))*LengthPrefixSize, nil
	}

	return MaxCompressedSize(buffers, codec)
}

// concatBuffers returns the concatenation of all buffer bytes, reusing the
// sole source directly when no joining is needed. The returned scratch
// buffer, when non-nil, must be released by the caller once src is
// consumed.
func concatBuffers(alloc memory.Allocator, buffers []*memory.Buffer, total int64) (src []byte, scratch *memory.Buffer) {
	if len(buffers) == 1 {
		return bufferBytes(buffers[0]), nil
	}

	scratch = memory.NewResizableBuffer(alloc)
	scratch.Resize(int(total))
	joined := scratch.Bytes()

	pos := 0
	for _, b := range buffers {
		pos += copy(joined[pos:], bufferBytes(b))
	}

	return joined, scratch
}

func bufferBytes(b *memory.Buffer) []byte {
	if b == nil {
		return nil
	}

	return b.Bytes()
}

// CompressWriteSchema derives the packed-output schema from a source
// schema: one LargeBinary field per source physical buffer for
// ModePerBuffer (named "<field>.<slot>" in layout order), or a single
// LargeBinary "batch" field for ModeWholeBatch.
func CompressWriteSchema(src *schema.Schema, mode format.CompressionMode) *schema.Schema {
	if mode == format.ModeWholeBatch {
		return schema.NewSchema([]schema.Field{{Name: "batch", Type: schema.TypeLargeBinary}})
	}

	fields := make([]schema.Field, 0, src.BufferCount())
	for _, f := range src.Fields() {
		for _, slot := range bufferSlotNames(f.Type) {
			fields = append(fields, schema.Field{
				Name: f.Name + "." + slot,
				Type: schema.TypeLargeBinary,
			})
		}
	}

	return schema.NewSchema(fields)
}

func bufferSlotNames(t schema.ValueType) []string {
	switch t.BufferCount() {
	case 3:
		return []string{"validity", "offsets", "data"}
	case 2:
		return []string{"validity", "data"}
	default:
		return nil
	}
}
