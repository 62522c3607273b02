package format

type (
	CompressionType uint8
	CompressionMode uint8
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.

	// ModePerBuffer compresses or stores each source buffer independently,
	// one binary column per buffer.
	ModePerBuffer CompressionMode = 0x1
	// ModeWholeBatch concatenates all source buffers into a single binary
	// column and compresses the concatenation as one unit.
	ModeWholeBatch CompressionMode = 0x2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the supported compression types.
func (c CompressionType) Valid() bool {
	switch c {
	case CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4:
		return true
	default:
		return false
	}
}

func (m CompressionMode) String() string {
	switch m {
	case ModePerBuffer:
		return "PerBuffer"
	case ModeWholeBatch:
		return "WholeBatch"
	default:
		return "Unknown"
	}
}

// Valid reports whether m is one of the supported compression modes.
func (m CompressionMode) Valid() bool {
	return m == ModePerBuffer || m == ModeWholeBatch
}
