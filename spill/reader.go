package spill

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/internal/options"
	"github.com/arloliu/shufflepack/mmap"
	"github.com/arloliu/shufflepack/shuffle"
)

// Reader replays the envelopes of one spill file in write order through a
// memory-mapped sequential stream.
//
// A Reader is single-owner and not safe for concurrent use.
type Reader struct {
	mr     *mmap.Reader
	alloc  memory.Allocator
	path   string
	logger *zap.Logger

	batches int
}

// ReaderOption configures a Reader.
type ReaderOption = options.Option[*Reader]

// WithReaderLogger sets the logger handed to the underlying mapped stream
// and used for lifecycle events. Defaults to zap.NewNop.
func WithReaderLogger(logger *zap.Logger) ReaderOption {
	return options.New(func(r *Reader) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", errs.ErrInvalidArgument)
		}
		r.logger = logger

		return nil
	})
}

// WithReaderAllocator sets the allocator batches are materialized from.
// Defaults to memory.DefaultAllocator.
func WithReaderAllocator(alloc memory.Allocator) ReaderOption {
	return options.New(func(r *Reader) error {
		if alloc == nil {
			return fmt.Errorf("%w: nil allocator", errs.ErrInvalidArgument)
		}
		r.alloc = alloc

		return nil
	})
}

// Open maps the spill file at path for sequential replay. prefetchSize
// tunes the stream's advisory window; 0 disables proactive advisories.
func Open(path string, prefetchSize int64, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		alloc:  memory.DefaultAllocator,
		path:   path,
		logger: zap.NewNop(),
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	mr, err := mmap.Open(path, prefetchSize, mmap.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.mr = mr

	r.logger.Debug("opened spill file", zap.String("path", path))

	return r, nil
}

// Next reads the next envelope. Each batch owns its allocation; release it
// when done. After the last envelope Next returns io.EOF; an envelope cut
// short fails with errs.ErrTruncatedBatch.
func (r *Reader) Next() (*shuffle.PackedRecordBatch, error) {
	batch, err := shuffle.ReadPackedRecordBatch(r.mr, r.alloc)
	if err != nil {
		return nil, err
	}
	r.batches++

	return batch, nil
}

// Batches returns the number of envelopes read so far.
func (r *Reader) Batches() int {
	return r.batches
}

// Tell returns the byte position in the spill file.
func (r *Reader) Tell() (int64, error) {
	return r.mr.Tell()
}

// Closed reports whether Close has been called.
func (r *Reader) Closed() bool {
	return r.mr.Closed()
}

// Close unmaps and closes the spill file. Idempotent.
func (r *Reader) Close() error {
	if r.mr.Closed() {
		return nil
	}

	err := r.mr.Close()
	r.logger.Debug("closed spill reader",
		zap.String("path", r.path),
		zap.Int("batches", r.batches),
	)

	return err
}
