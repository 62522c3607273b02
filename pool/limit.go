package pool

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// AllocError reports an allocation request that would exceed a
// LimitedAllocator's budget. It travels as a panic because the
// memory.Allocator interface has no error return; CheckAllocError recovers
// it at the operation boundary.
type AllocError struct {
	Size  int   // bytes requested
	Limit int64 // configured budget
	InUse int64 // bytes outstanding when the request was refused
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocation of %d bytes exceeds limit %d (%d in use)", e.Size, e.Limit, e.InUse)
}

// LimitedAllocator wraps a memory.Allocator with a byte budget. A request
// that would push outstanding bytes past the budget panics with *AllocError
// before touching the underlying allocator. Accounting follows slice
// lengths, matching how arrow's CheckedAllocator balances Allocate and Free.
//
// Safe for concurrent use when the underlying allocator is.
type LimitedAllocator struct {
	mem   memory.Allocator
	limit int64
	inUse atomic.Int64
}

// NewLimitedAllocator creates a budgeted wrapper around mem. A limit of
// zero or below disables enforcement; the wrapper still tracks usage.
func NewLimitedAllocator(mem memory.Allocator, limit int64) *LimitedAllocator {
	return &LimitedAllocator{mem: mem, limit: limit}
}

// InUse returns the bytes currently outstanding.
func (a *LimitedAllocator) InUse() int64 {
	return a.inUse.Load()
}

// Allocate reserves size bytes against the budget, then delegates. Panics
// with *AllocError when the budget would be exceeded.
func (a *LimitedAllocator) Allocate(size int) []byte {
	a.reserve(size, int64(size))

	return a.mem.Allocate(size)
}

// Reallocate reserves the growth (if any) against the budget, then
// delegates. Panics with *AllocError when the budget would be exceeded.
func (a *LimitedAllocator) Reallocate(size int, b []byte) []byte {
	a.reserve(size, int64(size-len(b)))

	return a.mem.Reallocate(size, b)
}

// Free delegates and releases b's bytes back to the budget.
func (a *LimitedAllocator) Free(b []byte) {
	a.mem.Free(b)
	a.inUse.Add(-int64(len(b)))
}

func (a *LimitedAllocator) reserve(size int, delta int64) {
	inUse := a.inUse.Add(delta)
	if a.limit > 0 && inUse > a.limit {
		a.inUse.Add(-delta)
		panic(&AllocError{Size: size, Limit: a.limit, InUse: inUse - delta})
	}
}

// CheckAllocError filters a recovered panic value: it returns the
// *AllocError the value carries, or re-panics when the value is some other
// failure. Use it in a deferred function at the boundary that should
// convert budget misses into ordinary errors:
//
//	defer func() {
//	    if ae := pool.CheckAllocError(recover()); ae != nil {
//	        err = fmt.Errorf("%w: %v", errs.ErrOutOfMemory, ae)
//	    }
//	}()
//
// A nil value (no panic in flight) returns nil.
func CheckAllocError(recovered any) *AllocError {
	if recovered == nil {
		return nil
	}
	if ae, ok := recovered.(*AllocError); ok {
		return ae
	}

	panic(recovered)
}

var _ memory.Allocator = (*LimitedAllocator)(nil)
