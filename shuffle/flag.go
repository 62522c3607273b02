package shuffle

import (
	"fmt"

	"github.com/arloliu/shufflepack/endian"
	"github.com/arloliu/shufflepack/errs"
	"github.com/arloliu/shufflepack/format"
)

const (
	// EndiannessMask selects the endianness bit (0 = little-endian).
	EndiannessMask = 0x0001
	// ModeMask selects the compression mode bit (0 = per-buffer, 1 = whole-batch).
	ModeMask = 0x0002
	// ReservedOptsMask covers the option bits that must stay zero.
	ReservedOptsMask = 0x000C
	// MagicNumberMask selects the magic number (bits 4-15).
	MagicNumberMask = 0xFFF0

	// MagicPackedV1Opt is the version 1 magic number for the packed record
	// batch format, carried in bits 4-15 of the flag.
	MagicPackedV1Opt = 0xEC10
)

// BatchFlag is the packed field carried at the start of every envelope
// header.
type BatchFlag struct {
	// Options is a packed field for format options.
	// Bit 0 is the endianness flag, 0 means little-endian, 1 means big-endian.
	// Bit 1 is the mode flag, 0 means per-buffer, 1 means whole-batch.
	// Bits 2-3 are reserved for future use, must be set to 0.
	// Bits 4-15 are the magic number identifying the envelope format:
	//   - 0xEC10 (0b1110_1100_0001_0000): packed record batch format v1
	Options uint16

	// Codec indicates the compression applied to columns whose bitmap bit
	// is set. Valid values: CompressionNone, CompressionZstd,
	// CompressionS2, CompressionLZ4.
	Codec uint8
}

// NewBatchFlag creates a flag for the given mode and codec, little-endian.
func NewBatchFlag(mode format.CompressionMode, codec format.CompressionType) BatchFlag {
	flag := BatchFlag{
		Options: MagicPackedV1Opt,
		Codec:   uint8(codec),
	}
	flag.WithLittleEndian()
	flag.SetMode(mode)

	return flag
}

// GetMagicNumber returns the magic number from the Options field.
func (f BatchFlag) GetMagicNumber() uint16 {
	return f.Options & MagicNumberMask
}

// IsValidMagicNumber checks if the magic number in the Options field is valid.
func (f BatchFlag) IsValidMagicNumber() bool {
	return f.GetMagicNumber() == MagicPackedV1Opt
}

// IsLittleEndian returns whether the envelope's fields are little-endian.
func (f BatchFlag) IsLittleEndian() bool {
	return (f.Options & EndiannessMask) == 0
}

// WithLittleEndian sets little-endian byte order.
func (f *BatchFlag) WithLittleEndian() {
	f.Options &= ^uint16(EndiannessMask)
}

// WithBigEndian sets big-endian byte order.
func (f *BatchFlag) WithBigEndian() {
	f.Options |= EndiannessMask
}

// Mode returns the compression mode encoded in the flag.
func (f BatchFlag) Mode() format.CompressionMode {
	if (f.Options & ModeMask) != 0 {
		return format.ModeWholeBatch
	}

	return format.ModePerBuffer
}

// SetMode encodes the compression mode into the flag.
func (f *BatchFlag) SetMode(mode format.CompressionMode) {
	if mode == format.ModeWholeBatch {
		f.Options |= ModeMask
	} else {
		f.Options &^= ModeMask
	}
}

// Compression returns the codec type carried by the flag.
func (f BatchFlag) Compression() format.CompressionType {
	return format.CompressionType(f.Codec)
}

// SetCompression sets the codec type carried by the flag.
func (f *BatchFlag) SetCompression(codec format.CompressionType) {
	f.Codec = uint8(codec)
}

// GetEndianEngine returns the endian engine matching the flag's endianness
// bit.
func (f BatchFlag) GetEndianEngine() endian.EndianEngine {
	if f.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// Validate checks the magic number, the reserved bits, and the codec value.
func (f BatchFlag) Validate() error {
	if !f.IsValidMagicNumber() {
		return fmt.Errorf("%w: 0x%04X", errs.ErrInvalidMagicNumber, f.GetMagicNumber())
	}
	if (f.Options & ReservedOptsMask) != 0 {
		return fmt.Errorf("%w: reserved flag bits set", errs.ErrInvalidArgument)
	}
	if !f.Compression().Valid() {
		return fmt.Errorf("%w: unknown compression type 0x%02X", errs.ErrInvalidArgument, f.Codec)
	}

	return nil
}
