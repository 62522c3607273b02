// Package compress provides the compression codecs used when packing shuffle
// buffers into record batches.
//
// A codec here is not a streaming compressor: it is a block codec with an
// explicit worst-case bound, built for the packer's single-allocation
// discipline. The packer asks every codec for MaxCompressedLen up front,
// obtains one destination allocation covering the whole batch, and the codecs
// fill slices of it. No codec ever grows a buffer mid-operation.
//
// # Supported Algorithms
//
//   - None (NoOpCodec): pass-through; the planner stores raw bytes.
//   - LZ4 (LZ4Codec): fastest decompression; the usual default for shuffle,
//     where each spill file is written once and read once.
//   - S2 (S2Codec): Snappy-compatible; balanced ratio and speed.
//   - Zstd (ZstdCodec): best ratio; picks libzstd (cgo) or the pure-Go
//     implementation at build time.
//
// # Store-Raw Contract
//
// Compress reports 0 bytes for incompressible input (LZ4 defines this
// contract natively; the other codecs report 0 whenever output would not
// shrink). Callers store the raw bytes in that case, so a packed column is
// never larger than its source buffer.
//
// # Thread Safety
//
// Codec values are stateless and safe for concurrent use; reusable
// encoder/decoder state lives in package-level pools.
//
// # Usage
//
//	codec, err := compress.CreateCodec(format.CompressionLZ4, "shuffle buffers")
//	if err != nil {
//	    return err
//	}
//
//	bound := codec.MaxCompressedLen(len(src))
//	dst := make([]byte, bound)
//	n, err := codec.Compress(dst, src)
//	if err != nil {
//	    return err
//	}
//	if n == 0 {
//	    // incompressible: store src itself
//	}
package compress
