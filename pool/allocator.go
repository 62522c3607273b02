// Package pool provides arrow memory.Allocator implementations tuned for
// the packing workload: a size-bucketed pooled allocator that recycles the
// large scratch buffers packing churns through, and a budget-enforcing
// wrapper that turns over-limit requests into a typed panic the packer
// boundary converts to an out-of-memory error.
//
// Everything in this package satisfies arrow's memory.Allocator interface,
// so any arrow-ecosystem allocator (including memory.CheckedAllocator in
// tests) can stand in for these and vice versa.
package pool

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Bucket sizes are powers of two from 1KiB to 8MiB. Requests outside the
// range go straight to make and are left to the GC on Free.
const (
	minBucketShift = 10 // 1KiB
	maxBucketShift = 23 // 8MiB
	numBuckets     = maxBucketShift - minBucketShift + 1
)

// PooledAllocator is a memory.Allocator backed by size-bucketed sync.Pools.
// Packing allocates one large destination buffer per batch and frees it as
// soon as the envelope is written or spilled, which is exactly the churn a
// recycling allocator absorbs.
//
// Allocate returns a slice whose length equals the requested size; its
// capacity is the bucket size. Free recycles only slices whose capacity is
// an exact bucket size, so foreign buffers can be handed to Free safely.
// All methods are safe for concurrent use.
type PooledAllocator struct {
	buckets [numBuckets]sync.Pool
}

// NewPooledAllocator creates an allocator with empty buckets. Buckets fill
// lazily as buffers are freed.
func NewPooledAllocator() *PooledAllocator {
	p := &PooledAllocator{}
	for i := range p.buckets {
		size := 1 << (minBucketShift + i)
		p.buckets[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}

	return p
}

// bucketIndex returns the bucket whose size is the smallest power of two
// holding size, or -1 when size is outside the pooled range.
func bucketIndex(size int) int {
	if size < 0 || size > 1<<maxBucketShift {
		return -1
	}

	shift := minBucketShift
	for 1<<shift < size {
		shift++
	}

	return shift - minBucketShift
}

// Allocate returns a zero-offset slice of exactly size bytes. The backing
// array may be recycled and is not zeroed.
func (p *PooledAllocator) Allocate(size int) []byte {
	idx := bucketIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}

	bp, _ := p.buckets[idx].Get().(*[]byte)

	return (*bp)[:size]
}

// Reallocate grows or shrinks b to size bytes, preserving the common
// prefix. Growth within the backing array's capacity is free; otherwise the
// contents move to a fresh allocation and b is recycled.
func (p *PooledAllocator) Reallocate(size int, b []byte) []byte {
	if size <= cap(b) {
		return b[:size]
	}

	newBuf := p.Allocate(size)
	copy(newBuf, b)
	p.Free(b)

	return newBuf
}

// Free recycles b's backing array when it came from a bucket. Slices whose
// capacity is not an exact bucket size are dropped for the GC; pooling them
// would hand out undersized buffers later.
func (p *PooledAllocator) Free(b []byte) {
	if b == nil {
		return
	}

	idx := bucketIndex(cap(b))
	if idx < 0 || cap(b) != 1<<(minBucketShift+idx) {
		return
	}

	b = b[:cap(b)]
	p.buckets[idx].Put(&b)
}

var _ memory.Allocator = (*PooledAllocator)(nil)
