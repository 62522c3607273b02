// Package shufflepack provides a compact binary packing engine for
// columnar shuffle data.
//
// Shufflepack takes the flat buffers underneath a columnar batch (validity
// bitmaps, offsets, data), sizes a single output allocation up front,
// optionally compresses each buffer, and serializes everything into one
// self-describing envelope. The companion spill writer appends envelopes to
// local spill files, and the spill reader streams them back through a
// memory-mapped sequential reader whose OS advisories keep resident memory
// bounded no matter how large the file grows.
//
// # Core Features
//
//   - Single-allocation envelope assembly sized by worst-case codec bounds
//   - Per-buffer or whole-batch compression (None, Zstd, S2, LZ4)
//   - Size-threshold compression policy with store-raw fallback for
//     incompressible data
//   - Pooled, limit-aware allocators compatible with arrow-go memory
//   - Sequential spill replay with bounded memory residency (madvise
//     prefetch/release watermarks)
//   - Hash partitioning with floor-mod semantics for signed row hashes
//
// # Basic Usage
//
// Packing the buffers of a partition batch:
//
//	import "github.com/arloliu/shufflepack"
//
//	packer, _ := shufflepack.NewDefaultPacker()
//
//	ws := shuffle.CompressWriteSchema(dataSchema, format.ModePerBuffer)
//	var elapsed shuffle.CompressionTime
//	batch, _ := packer.Compressed(numRows, buffers, ws, &elapsed)
//	defer batch.Release()
//
// Spilling envelopes and replaying them:
//
//	writer, _ := shufflepack.CreateSpillWriter(spill.SpillDir(dir, subDirID))
//	writer.Write(batch)
//	writer.Close()
//
//	reader, _ := shufflepack.OpenSpillReader(writer.Path(), 1<<20)
//	defer reader.Close()
//	for {
//	    batch, err := reader.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // unpack, forward, release
//	    batch.Release()
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the shuffle
// and spill packages, simplifying the most common use cases. For
// fine-grained control (custom codecs, allocators, compression modes), use
// the shuffle, spill, mmap and pool packages directly.
package shufflepack

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arloliu/shufflepack/format"
	"github.com/arloliu/shufflepack/schema"
	"github.com/arloliu/shufflepack/shuffle"
	"github.com/arloliu/shufflepack/spill"
)

var defaultPackerOptions = []shuffle.Option{
	shuffle.WithCompression(format.CompressionLZ4),
	shuffle.WithMode(format.ModePerBuffer),
}

// NewPacker creates a packer with custom options.
//
// This is the most flexible factory function, allowing full control over
// the codec, compression mode, threshold and allocator.
//
// Available options:
//   - shuffle.WithCompression(format.CompressionNone|Zstd|S2|LZ4)
//   - shuffle.WithCodec(codec) for a caller-provided codec
//   - shuffle.WithMode(format.ModePerBuffer|ModeWholeBatch)
//   - shuffle.WithCompressThreshold(n)
//   - shuffle.WithAllocator(alloc)
//
// Example:
//
//	packer, err := shufflepack.NewPacker(
//	    shuffle.WithCompression(format.CompressionZstd),
//	    shuffle.WithCompressThreshold(1024),
//	)
func NewPacker(opts ...shuffle.Option) (*shuffle.Packer, error) {
	return shuffle.NewPacker(opts...)
}

// NewDefaultPacker creates a packer with recommended default settings:
// LZ4 compression in per-buffer mode, no size threshold, and the default
// allocator. LZ4 favors packing throughput over ratio, which suits the
// shuffle hot path; use NewPacker with CompressionZstd when spill volume
// matters more than CPU.
func NewDefaultPacker() (*shuffle.Packer, error) {
	return shuffle.NewPacker(defaultPackerOptions...)
}

// NewUnpacker creates an unpacker restoring the original buffer sequence
// from packed batches.
//
// Example:
//
//	unpacker, _ := shufflepack.NewUnpacker()
//	buffers, err := unpacker.Unpack(batch)
func NewUnpacker(opts ...shuffle.UnpackerOption) (*shuffle.Unpacker, error) {
	return shuffle.NewUnpacker(opts...)
}

// CreateSpillWriter opens a fresh uniquely named spill file in dir and
// returns a writer appending envelopes to it. Close flushes and closes the
// file; Path reports where it landed.
func CreateSpillWriter(dir string, opts ...spill.WriterOption) (*spill.Writer, error) {
	return spill.Create(dir, opts...)
}

// OpenSpillReader maps the spill file at path and replays its envelopes in
// write order. prefetchSize tunes the advisory window of the underlying
// sequential reader; 0 leaves paging on demand.
func OpenSpillReader(path string, prefetchSize int64, opts ...spill.ReaderOption) (*spill.Reader, error) {
	return spill.Open(path, prefetchSize, opts...)
}

// PartitionID maps a string key to a shuffle partition in
// [0, numPartitions) using xxHash64. Deterministic: the same key always
// lands on the same partition for a given partition count.
func PartitionID(key string, numPartitions int32) int32 {
	return shuffle.PartitionIDForKey(key, numPartitions)
}

// ZeroLengthNullBuffer returns the shared canonical zero-length buffer used
// wherever an absent or empty buffer must still be representable. Callers
// must not mutate it; Retain and Release on it are no-ops.
func ZeroLengthNullBuffer() *memory.Buffer {
	return schema.ZeroLengthNullBuffer()
}
