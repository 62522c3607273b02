package compress

import "github.com/arloliu/shufflepack/format"

// ZstdCodec implements Codec with Zstandard compression.
//
// Zstd offers the best compression ratio of the supported algorithms and is
// the usual choice when spill volume matters more than pack latency. The
// implementation is selected at build time: cgo builds use libzstd through
// valyala/gozstd, pure-Go builds use klauspost/compress/zstd with pooled
// encoders and decoders.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec with default settings.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

func (c ZstdCodec) Type() format.CompressionType {
	return format.CompressionZstd
}
