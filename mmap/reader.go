// Package mmap provides a sequential file reader over a memory-mapped
// region with bounded memory residency.
//
// The reader is built for replaying shuffle spill files: large, written
// once, consumed front to back exactly once. As the cursor advances it
// advises the OS to prefetch pages just ahead of the cursor and to drop
// pages already consumed, so resident memory stays within a small multiple
// of the prefetch window no matter how large the file is.
//
// A Reader is single-owner. It keeps a monotonically advancing cursor and
// is not safe for concurrent use.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/internal/options"
)

// Reader streams a file sequentially through a read-only memory mapping.
//
// Three offsets track the advisory state: the cursor itself, the fetch
// watermark (highest offset already advised as needed soon) and the retain
// watermark (lowest offset not yet advised as disposable). Every cursor
// advance re-checks both watermarks.
//
// On platforms without memory mapping the reader degrades to positional
// reads through a prefetch-sized scratch window; the stream semantics are
// identical, but views returned by Next are only valid until the following
// read call.
type Reader struct {
	f        *os.File
	path     string
	size     int64
	prefetch int64
	pageSize int64
	logger   *zap.Logger

	data []byte // mapped region, nil when mapping is unavailable

	pos       int64
	posFetch  int64
	posRetain int64
	closed    bool

	window []byte // fallback scratch, grown on demand
}

var (
	_ io.Reader = (*Reader)(nil)
	_ io.Closer = (*Reader)(nil)
)

// Option configures a Reader.
type Option = options.Option[*Reader]

// WithLogger sets the logger for best-effort advisory failures. Defaults to
// zap.NewNop, so the reader is silent unless configured.
func WithLogger(logger *zap.Logger) Option {
	return options.New(func(r *Reader) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", errs.ErrInvalidArgument)
		}
		r.logger = logger

		return nil
	})
}

// Open maps the file at path read-only for its full size and returns a
// Reader positioned at the start.
//
// prefetchSize is rounded up to a whole page and controls both advisory
// watermarks; 0 disables proactive advisories and leaves paging entirely
// on demand. Open and mapping failures are wrapped in errs.ErrIO.
func Open(path string, prefetchSize int64, opts ...Option) (*Reader, error) {
	if prefetchSize < 0 {
		return nil, fmt.Errorf("%w: negative prefetch size %d", errs.ErrInvalidArgument, prefetchSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", errs.ErrIO, path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stating %s: %v", errs.ErrIO, path, err)
	}

	r := &Reader{
		f:        f,
		path:     path,
		size:     st.Size(),
		pageSize: int64(os.Getpagesize()),
		logger:   zap.NewNop(),
	}
	if prefetchSize > 0 {
		r.prefetch = (prefetchSize + r.pageSize - 1) / r.pageSize * r.pageSize
	}
	if err := options.Apply(r, opts...); err != nil {
		f.Close()
		return nil, err
	}

	// A zero-length file has nothing to map; every read is EOF.
	if mapEnabled && r.size > 0 {
		data, err := mapFile(f, r.size)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: mapping %s: %v", errs.ErrIO, path, err)
		}
		r.data = data

		if r.prefetch > 0 {
			r.advise(data, adviceSequential, "sequential")
		}
	}

	return r, nil
}

// Read copies min(len(p), remaining) bytes at the cursor into p. Reading
// near the end of the file returns the short remainder as data; only a
// read at true end-of-file returns (0, io.EOF).
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errs.ErrStreamClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := min(int64(len(p)), r.size-r.pos)
	if n == 0 {
		return 0, io.EOF
	}

	view, err := r.view(n)
	if err != nil {
		return 0, err
	}
	copy(p, view)
	r.advance(n)

	return int(n), nil
}

// Next returns a zero-copy view of the next min(n, remaining) bytes and
// advances the cursor past them. The view is valid until Close. At true
// end-of-file Next returns (nil, io.EOF).
func (r *Reader) Next(n int64) ([]byte, error) {
	if r.closed {
		return nil, errs.ErrStreamClosed
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read size %d", errs.ErrInvalidArgument, n)
	}

	m := min(n, r.size-r.pos)
	if m == 0 {
		if n == 0 {
			return []byte{}, nil
		}

		return nil, io.EOF
	}

	view, err := r.view(m)
	if err != nil {
		return nil, err
	}
	r.advance(m)

	return view[:m:m], nil
}

// Tell returns the current cursor position.
func (r *Reader) Tell() (int64, error) {
	if r.closed {
		return 0, errs.ErrStreamClosed
	}

	return r.pos, nil
}

// Closed reports whether Close has been called.
func (r *Reader) Closed() bool {
	return r.closed
}

// Close unmaps the file and releases the descriptor. Idempotent; the
// second and later calls are no-ops returning nil. Close never blocks on
// outstanding advisories.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.data != nil {
		if err := unmapFile(r.data); err != nil {
			firstErr = fmt.Errorf("%w: unmapping %s: %v", errs.ErrIO, r.path, err)
		}
		r.data = nil
	}
	if err := r.f.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("%w: closing %s: %v", errs.ErrIO, r.path, err)
	}
	r.window = nil

	return firstErr
}

// view returns n readable bytes at the cursor without advancing it. The
// cursor is already clamped, so [pos, pos+n) is inside the file.
func (r *Reader) view(n int64) ([]byte, error) {
	if r.data != nil {
		start := r.pos
		return r.data[start : start+n : start+n], nil
	}

	if int64(cap(r.window)) < n {
		r.window = make([]byte, n)
	}
	buf := r.window[:n]

	m, err := r.f.ReadAt(buf, r.pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading %s at offset %d: %v", errs.ErrIO, r.path, r.pos, err)
	}
	if int64(m) < n {
		return nil, fmt.Errorf("%w: short read of %s at offset %d: %d of %d bytes",
			errs.ErrIO, r.path, r.pos, m, n)
	}

	return buf, nil
}

// advance moves the cursor and re-checks both advisory watermarks.
func (r *Reader) advance(n int64) {
	r.pos += n
	if r.data == nil || r.prefetch == 0 {
		return
	}
	r.willNeed()
	r.dontNeed()
}

// willNeed keeps the fetch watermark at least one prefetch window ahead of
// the cursor, clamped to the file size.
func (r *Reader) willNeed() {
	if r.posFetch-r.pos >= r.prefetch {
		return
	}

	end := min(r.pos+r.prefetch, r.size)
	if end <= r.posFetch {
		return
	}

	start := r.pageFloor(r.posFetch)
	r.advise(r.data[start:end], adviceWillNeed, "willneed")
	r.posFetch = end
}

// dontNeed releases consumed pages once the cursor is more than two
// prefetch windows past the retain watermark, keeping one window of
// already-read pages resident behind the cursor.
func (r *Reader) dontNeed() {
	if r.pos-r.posRetain <= 2*r.prefetch {
		return
	}

	end := r.pageFloor(r.pos - r.prefetch)
	start := r.pageFloor(r.posRetain)
	if end <= start {
		return
	}

	r.advise(r.data[start:end], adviceDontNeed, "dontneed")
	r.posRetain = end
}

// advise issues a best-effort madvise over b. Failures affect performance,
// not correctness, so they are logged at Debug and dropped.
func (r *Reader) advise(b []byte, advice int, what string) {
	if len(b) == 0 {
		return
	}
	if err := madviseRange(b, advice); err != nil {
		r.logger.Debug("madvise failed",
			zap.String("path", r.path),
			zap.String("advice", what),
			zap.Error(err),
		)
	}
}

func (r *Reader) pageFloor(off int64) int64 {
	return off / r.pageSize * r.pageSize
}
