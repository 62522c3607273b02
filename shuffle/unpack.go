package shuffle

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/compress"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
	"github.com/arloliu/shufflepack/internal/options"
	"github.com/arloliu/shufflepack/pool"
	"github.com/arloliu/shufflepack/schema"
)

// Unpacker restores the original buffer sequence from a packed record
// batch. Like the Packer it holds only configuration, so it is safe for
// concurrent use when its allocator is.
type Unpacker struct {
	alloc memory.Allocator
}

// UnpackerOption configures an Unpacker.
type UnpackerOption = options.Option[*Unpacker]

// WithUnpackerAllocator sets the allocator backing every restored buffer.
// Defaults to memory.DefaultAllocator.
func WithUnpackerAllocator(alloc memory.Allocator) UnpackerOption {
	return options.New(func(u *Unpacker) error {
		if alloc == nil {
			return fmt.Errorf("%w: nil allocator", errs.ErrInvalidArgument)
		}
		u.alloc = alloc

		return nil
	})
}

// NewUnpacker creates an Unpacker with the given options.
func NewUnpacker(opts ...UnpackerOption) (*Unpacker, error) {
	u := &Unpacker{alloc: memory.DefaultAllocator}
	if err := options.Apply(u, opts...); err != nil {
		return nil, err
	}

	return u, nil
}

// Unpack restores the source buffers of batch, byte-for-byte: raw columns
// are copied out, compressed columns are decompressed into exact-size
// allocations, and a whole-batch blob is split back along its recorded raw
// sizes. Zero-length sources come back as the canonical zero-length buffer,
// never nil.
//
// The returned buffers are independent of the batch; releasing either side
// does not affect the other. The caller releases each returned buffer when
// done.
func (u *Unpacker) Unpack(batch *PackedRecordBatch) (buffers []*memory.Buffer, err error) {
	if batch == nil || batch.raw == nil {
		return nil, fmt.Errorf("%w: nil or released batch", errs.ErrInvalidArgument)
	}

	codec, err := compress.GetCodec(batch.Compression())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCodec, err)
	}

	out := make([]*memory.Buffer, 0, batch.NumBuffers())
	defer func() {
		if ae := pool.CheckAllocError(recover()); ae != nil {
			releaseBuffers(out)
			buffers, err = nil, fmt.Errorf("%w: unpacking batch: %v", errs.ErrOutOfMemory, ae)
		}
	}()

	if batch.Mode() == format.ModeWholeBatch {
		return u.unpackWholeBatch(batch, codec)
	}

	for i := 0; i < batch.NumColumns(); i++ {
		payload, compressed := batch.Column(i)
		buf, err := u.materialize(payload, compressed, batch.RawSize(i), codec)
		if err != nil {
			releaseBuffers(out)
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out = append(out, buf)
	}

	return out, nil
}

// unpackWholeBatch restores the concatenated blob, then splits it along the
// raw-size table. Split segments share the blob's allocation through
// reference counting; it is freed once every segment is released.
func (u *Unpacker) unpackWholeBatch(batch *PackedRecordBatch, codec compress.Codec) ([]*memory.Buffer, error) {
	payload, compressed := batch.Column(0)

	var total int64
	for i := 0; i < batch.NumBuffers(); i++ {
		total += batch.RawSize(i)
	}

	blob, err := u.materialize(payload, compressed, total, codec)
	if err != nil {
		return nil, fmt.Errorf("whole-batch column: %w", err)
	}
	defer blob.Release()

	out := make([]*memory.Buffer, 0, batch.NumBuffers())
	var off int64
	for i := 0; i < batch.NumBuffers(); i++ {
		size := batch.RawSize(i)
		if size == 0 {
			out = append(out, schema.ZeroLengthNullBuffer())
			continue
		}
		out = append(out, memory.SliceBuffer(blob, int(off), int(size)))
		off += size
	}

	return out, nil
}

// materialize produces one owned buffer of exactly rawSize bytes from a
// column payload, decompressing when needed.
func (u *Unpacker) materialize(payload []byte, compressed bool, rawSize int64, codec compress.Codec) (*memory.Buffer, error) {
	if rawSize == 0 && !compressed {
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: zero raw size with %d payload bytes", errs.ErrTruncatedBatch, len(payload))
		}

		return schema.ZeroLengthNullBuffer(), nil
	}

	buf := memory.NewResizableBuffer(u.alloc)
	buf.Resize(int(rawSize))

	if !compressed {
		if int64(len(payload)) != rawSize {
			buf.Release()
			return nil, fmt.Errorf("%w: raw column carries %d bytes, raw size says %d",
				errs.ErrTruncatedBatch, len(payload), rawSize)
		}
		copy(buf.Bytes(), payload)

		return buf, nil
	}

	n, err := codec.Decompress(buf.Bytes(), payload)
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("%w: decompressing with %s: %w", errs.ErrCodec, codec.Type(), err)
	}
	if int64(n) != rawSize {
		buf.Release()
		return nil, fmt.Errorf("%w: decompressed to %d bytes, raw size says %d",
			errs.ErrTruncatedBatch, n, rawSize)
	}

	return buf, nil
}

func releaseBuffers(buffers []*memory.Buffer) {
	for _, b := range buffers {
		if b != nil {
			b.Release()
		}
	}
}
