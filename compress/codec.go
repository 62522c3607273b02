package compress

import (
	"fmt"

	"github.com/arloliu/shufflepack/format"
)

// Codec is an interchangeable compression algorithm used by the record batch
// packer and unpacker.
//
// The interface follows a two-phase "bound, then fill" discipline: callers
// size the destination once with MaxCompressedLen and the codec fills it,
// so compression never grows an allocation mid-operation. This matches how
// the packer builds a whole batch from a single pool allocation.
type Codec interface {
	// Type identifies the compression algorithm.
	Type() format.CompressionType

	// MaxCompressedLen reports the worst-case compressed size for srcLen
	// input bytes. A destination of this size never needs to grow during
	// Compress.
	MaxCompressedLen(srcLen int) int

	// Compress writes the compressed form of src into dst and reports the
	// number of bytes written. dst must be at least
	// MaxCompressedLen(len(src)) bytes long.
	//
	// A returned n of 0 with a nil error means the input is incompressible
	// with this algorithm. Callers must treat n == 0, or any n not smaller
	// than len(src), as a signal to store the raw bytes instead.
	Compress(dst, src []byte) (int, error)

	// Decompress writes the decompressed form of src into dst and reports
	// the number of bytes written. dst must be sized to the original input
	// length; an output larger than dst is an error, never a truncation.
	Decompress(dst, src []byte) (int, error)
}

// CreateCodec creates a Codec for the given compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCodec(), nil
	case format.CompressionZstd:
		return NewZstdCodec(), nil
	case format.CompressionS2:
		return NewS2Codec(), nil
	case format.CompressionLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCodec(),
	format.CompressionZstd: NewZstdCodec(),
	format.CompressionS2:   NewS2Codec(),
	format.CompressionLZ4:  NewLZ4Codec(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
