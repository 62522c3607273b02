package shuffle

import "time"

// CompressionTime accumulates wall-clock time spent inside codec calls, in
// microseconds. The caller owns the accumulator and its lifetime; the
// packing layer only ever adds to it, never resets it, so totals aggregate
// naturally across batches.
//
// Not safe for concurrent use. Give each worker its own accumulator and sum
// the results.
type CompressionTime struct {
	micros int64
}

// Add accumulates an elapsed duration. A nil receiver is a no-op, so
// callers that do not measure can pass nil all the way down.
func (ct *CompressionTime) Add(d time.Duration) {
	if ct == nil {
		return
	}
	ct.micros += d.Microseconds()
}

// AddSince accumulates the time elapsed since start, measured against the
// monotonic clock. A nil receiver is a no-op.
func (ct *CompressionTime) AddSince(start time.Time) {
	ct.Add(time.Since(start))
}

// Micros returns the accumulated time in microseconds.
func (ct *CompressionTime) Micros() int64 {
	return ct.micros
}

// Duration returns the accumulated time as a time.Duration.
func (ct *CompressionTime) Duration() time.Duration {
	return time.Duration(ct.micros) * time.Microsecond
}
