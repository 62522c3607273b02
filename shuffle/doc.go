// Package shuffle implements the core packing engine: it turns the flat
// buffer sequences a columnar shuffle produces into self-describing packed
// record batch envelopes, and restores them byte-for-byte on the read side.
//
// # Core Types
//
// **Packer**: Assembles envelopes from buffer sequences
//   - Compressed: packs under the configured compression policy
//   - Uncompressed: packs with compression skipped unconditionally
//
// **Unpacker**: Restores the original buffer sequence from an envelope
//
// **PackedRecordBatch**: One immutable envelope, parseable from bytes or a
// stream, serializable to any io.Writer
//
// **HashPartitioner**: Maps per-row hash values onto shuffle partitions
//
// **CompressionTime**: Caller-owned accumulator for codec wall time
//
// # Envelope Structure
//
// An envelope consists of a fixed header followed by three metadata
// sections and the body:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Header (24 bytes, fixed)                                 │
//	│  - Flag (2 bytes): magic 0xEC10, endianness, mode        │
//	│  - Codec (1 byte), reserved (1 byte)                     │
//	│  - NumRows, NumColumns, NumBuffers (4 bytes each)        │
//	│  - BodyLength (8 bytes)                                  │
//	├──────────────────────────────────────────────────────────┤
//	│ Compressed bitmap (ceil(numColumns/8) bytes)             │
//	│  - Bit i set means column i is compressed                │
//	├──────────────────────────────────────────────────────────┤
//	│ Offsets ((numColumns+1) × 8 bytes)                       │
//	│  - Body-relative 64-bit column boundaries                │
//	├──────────────────────────────────────────────────────────┤
//	│ Raw sizes (numBuffers × 8 bytes)                         │
//	│  - Uncompressed byte length per source buffer            │
//	├──────────────────────────────────────────────────────────┤
//	│ Body (variable)                                          │
//	│  - Per column: [uint32 length][payload]                  │
//	└──────────────────────────────────────────────────────────┘
//
// # Compression Modes
//
// ModePerBuffer stores one column per source buffer and applies the
// compression policy to each independently, so a batch may mix compressed
// and raw columns. ModeWholeBatch concatenates every buffer into a single
// column and compresses the concatenation once; the raw-size table records
// the split points for the read side.
//
// In both modes the policy never grows data: a region is compressed only
// when the codec output is strictly smaller, and only when its raw length
// exceeds the configured threshold.
//
// # Packing Workflow
//
//	packer, err := shuffle.NewPacker(
//	    shuffle.WithAllocator(pool.NewPooledAllocator()),
//	    shuffle.WithCompression(format.CompressionLZ4),
//	    shuffle.WithCompressThreshold(1024),
//	)
//	if err != nil {
//	    return err
//	}
//
//	var elapsed shuffle.CompressionTime
//	batch, err := packer.Compressed(numRows, buffers, writeSchema, &elapsed)
//	if err != nil {
//	    return err
//	}
//	defer batch.Release()
//
//	if _, err := batch.WriteTo(w); err != nil {
//	    return err
//	}
//
// The write schema comes from CompressWriteSchema, which derives one
// LargeBinary field per source buffer (or a single field for whole-batch
// mode) from the logical schema.
//
// # Unpacking Workflow
//
//	unpacker, err := shuffle.NewUnpacker()
//	if err != nil {
//	    return err
//	}
//
//	batch, err := shuffle.ReadPackedRecordBatch(r, alloc)
//	if err != nil {
//	    return err
//	}
//	defer batch.Release()
//
//	buffers, err := unpacker.Unpack(batch)
//	if err != nil {
//	    return err
//	}
//
// # Memory Model
//
// Each packed batch lives in a single allocation sized by the codec's
// worst-case bound and trimmed to the bytes actually used, so packing never
// reallocates mid-batch. Batches own their allocation; Release returns it
// to the allocator. Views handed out by Column and Bytes stay valid until
// then.
//
// Packer and Unpacker are safe for concurrent use when their allocator is;
// CompressionTime is not, give each worker its own.
package shuffle
