// Package errs defines the sentinel errors shared across shufflepack.
//
// Failures fall into four kinds: I/O faults, memory-pool exhaustion, caller
// mistakes, and codec faults. Call sites wrap these sentinels with
// fmt.Errorf("...: %w", errs.ErrX) to add context, so callers classify any
// error from this module with errors.Is against a kind.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by this module matches exactly one of
// these via errors.Is.
var (
	ErrIO              = errors.New("io error")
	ErrOutOfMemory     = errors.New("out of memory")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCodec           = errors.New("codec error")
)

// Specific conditions. Each wraps its kind, so errors.Is matches both the
// specific sentinel and the kind it belongs to.
var (
	// ErrStreamClosed is returned by reads and position queries on a closed
	// sequential reader.
	ErrStreamClosed = fmt.Errorf("%w: stream closed", ErrIO)

	// ErrBufferCountMismatch is returned when the supplied buffer count does
	// not match the field count the write schema implies.
	ErrBufferCountMismatch = fmt.Errorf("%w: buffer count does not match schema", ErrInvalidArgument)

	// ErrNilCodec is returned when a codec is required for non-empty input
	// but none was supplied.
	ErrNilCodec = fmt.Errorf("%w: compression codec required but absent", ErrInvalidArgument)

	// ErrInvalidMagicNumber is returned when parsed data does not start with
	// the packed record batch magic.
	ErrInvalidMagicNumber = fmt.Errorf("%w: invalid magic number", ErrInvalidArgument)

	// ErrInvalidHeaderSize is returned when a header section is shorter than
	// its fixed size.
	ErrInvalidHeaderSize = fmt.Errorf("%w: invalid header size", ErrInvalidArgument)

	// ErrTruncatedBatch is returned when an envelope's sections do not add up
	// to the bytes actually present.
	ErrTruncatedBatch = fmt.Errorf("%w: truncated record batch", ErrInvalidArgument)
)
