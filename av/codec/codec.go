package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for codec package operations.
var (
	// ErrUnknownCodec indicates a codec tag outside the known enumeration.
	ErrUnknownCodec = errors.New("unknown codec")

	// ErrCodecDisabled indicates the codec path failed to initialize.
	ErrCodecDisabled = errors.New("codec path disabled")

	// ErrEncoderNotFound indicates the linked FFmpeg build lacks a codec.
	ErrEncoderNotFound = errors.New("codec implementation not found")

	// ErrSizeMismatch indicates an image whose size differs from the
	// session's fixed resolution.
	ErrSizeMismatch = errors.New("image size does not match session")

	// ErrInvalidConfig indicates session parameters the codec cannot use.
	ErrInvalidConfig = errors.New("invalid session configuration")
)

// Codec identifies the codec used for a tile. The numeric values are part
// of the wire format.
type Codec uint8

const (
	// HighCompression is the codec for static tiles (VP9).
	HighCompression Codec = iota
	// LowLatency is the codec for changing tiles (H.264).
	LowLatency

	codecCount
)

// Codecs lists every codec in tag order.
var Codecs = []Codec{HighCompression, LowLatency}

// String returns the wire-contract name of the codec.
func (c Codec) String() string {
	switch c {
	case HighCompression:
		return "HIGH_COMPRESSION"
	case LowLatency:
		return "LOW_LATENCY"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// Valid reports whether c is a known codec.
func (c Codec) Valid() bool {
	return c < codecCount
}

// ParseCodec converts a codec name to a Codec. Both the wire-contract names
// and the bitstream format names are accepted.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "HIGH_COMPRESSION", "VP9":
		return HighCompression, nil
	case "LOW_LATENCY", "H264", "H.264":
		return LowLatency, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownCodec)
	}
}
