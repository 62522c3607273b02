package spill

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/internal/options"
	"github.com/arloliu/shufflepack/shuffle"
)

const defaultWriteBufferSize = 64 * 1024

// Writer appends packed record batch envelopes back-to-back to a spill
// sink. Writes are buffered; Flush or Close pushes them through.
//
// A Writer is single-owner and not safe for concurrent use.
type Writer struct {
	w      *bufio.Writer
	f      *os.File // owned spill file, nil when wrapping a caller's sink
	path   string
	logger *zap.Logger

	bufSize int
	written int64
	batches int
	closed  bool
}

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// WithWriterLogger sets the logger for spill file lifecycle events, logged
// at Debug. Defaults to zap.NewNop.
func WithWriterLogger(logger *zap.Logger) WriterOption {
	return options.New(func(w *Writer) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", errs.ErrInvalidArgument)
		}
		w.logger = logger

		return nil
	})
}

// WithWriteBufferSize sets the write buffer size in bytes.
func WithWriteBufferSize(size int) WriterOption {
	return options.New(func(w *Writer) error {
		if size <= 0 {
			return fmt.Errorf("%w: write buffer size must be positive, got %d", errs.ErrInvalidArgument, size)
		}
		w.bufSize = size

		return nil
	})
}

// NewWriter wraps an existing sink. Close flushes but does not close the
// sink; that stays with the caller.
func NewWriter(sink io.Writer, opts ...WriterOption) (*Writer, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", errs.ErrInvalidArgument)
	}

	w := &Writer{
		logger:  zap.NewNop(),
		bufSize: defaultWriteBufferSize,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}
	w.w = bufio.NewWriterSize(sink, w.bufSize)

	return w, nil
}

// Create opens a fresh uniquely named spill file in dir and returns a
// Writer owning it. Close flushes and closes the file.
func Create(dir string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		logger:  zap.NewNop(),
		bufSize: defaultWriteBufferSize,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	f, err := CreateTempFile(dir)
	if err != nil {
		return nil, err
	}
	w.f = f
	w.path = f.Name()
	w.w = bufio.NewWriterSize(f, w.bufSize)

	w.logger.Debug("created spill file", zap.String("path", w.path))

	return w, nil
}

// Write appends one envelope and returns the byte count written.
func (w *Writer) Write(batch *shuffle.PackedRecordBatch) (int64, error) {
	if w.closed {
		return 0, errs.ErrStreamClosed
	}
	if batch == nil || batch.Bytes() == nil {
		return 0, fmt.Errorf("%w: nil or released batch", errs.ErrInvalidArgument)
	}

	n, err := batch.WriteTo(w.w)
	w.written += n
	if err != nil {
		return n, fmt.Errorf("%w: writing batch %d: %v", errs.ErrIO, w.batches, err)
	}
	w.batches++

	return n, nil
}

// BytesWritten returns the total envelope bytes accepted so far, including
// bytes still sitting in the write buffer.
func (w *Writer) BytesWritten() int64 {
	return w.written
}

// Batches returns the number of envelopes written so far.
func (w *Writer) Batches() int {
	return w.batches
}

// Path returns the spill file path for writers created with Create, and
// the empty string for wrapped sinks.
func (w *Writer) Path() string {
	return w.path
}

// Flush pushes buffered bytes to the sink.
func (w *Writer) Flush() error {
	if w.closed {
		return errs.ErrStreamClosed
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: flushing spill writer: %v", errs.ErrIO, err)
	}

	return nil
}

// Close flushes and, for writers owning their spill file, closes it.
// Idempotent; the second call is a no-op returning nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	if err := w.w.Flush(); err != nil {
		firstErr = fmt.Errorf("%w: flushing spill writer: %v", errs.ErrIO, err)
	}
	if w.f != nil {
		if err := w.f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%w: closing %s: %v", errs.ErrIO, w.path, err)
		}
		w.f = nil
	}

	w.logger.Debug("closed spill writer",
		zap.String("path", w.path),
		zap.Int64("bytes", w.written),
		zap.Int("batches", w.batches),
	)

	return firstErr
}
