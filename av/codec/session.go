package codec

import (
	"fmt"

	"github.com/opd-ai/tilecast/av/video"
)

// Session is one live encoder instance with a fixed output resolution.
//
// Encode returns the payload produced for img, or an empty payload when the
// codec produced nothing for this call. Sessions are not reentrant.
type Session interface {
	Codec() Codec
	Encode(img *video.I420) ([]byte, error)
	Close() error
}

// SessionFactory creates a session for a codec. The configuration's Width
// and Height are already set to the tile size.
type SessionFactory func(c Codec, cfg SessionConfig) (Session, error)

// SessionConfig holds the parameters of one encoder session.
type SessionConfig struct {
	Width     int
	Height    int
	FrameRate int // frames per second, also the time base denominator
	BitRate   int // target bits per second

	// KeyframeInterval is the maximum distance between keyframes in
	// frames. Zero disables forced keyframes.
	KeyframeInterval int

	ErrorResilient bool // high-compression: resilient bitstream
	Realtime       bool // high-compression: real-time deadline
	IntraRefresh   bool // low-latency: rolling intra refresh instead of IDR frames

	Preset  string // low-latency encoder preset
	Tune    string // low-latency encoder tuning
	Profile string // low-latency profile

	// Options are passed verbatim to the codec implementation.
	Options map[string]string
}

// DefaultHighCompressionConfig returns the VP9 defaults: 500 kbps at
// 30 fps, error resilient, real-time deadline, no forced keyframes.
func DefaultHighCompressionConfig() SessionConfig {
	return SessionConfig{
		FrameRate:        30,
		BitRate:          500_000,
		KeyframeInterval: 0,
		ErrorResilient:   true,
		Realtime:         true,
	}
}

// DefaultLowLatencyConfig returns the H.264 defaults: 1000 kbps at 30 fps,
// keyframe interval 30, intra refresh, baseline profile, ultrafast preset
// with zero-latency tuning.
func DefaultLowLatencyConfig() SessionConfig {
	return SessionConfig{
		FrameRate:        30,
		BitRate:          1_000_000,
		KeyframeInterval: 30,
		IntraRefresh:     true,
		Preset:           "ultrafast",
		Tune:             "zerolatency",
		Profile:          "baseline",
	}
}

// Validate checks the parameters shared by both codecs.
func (c SessionConfig) Validate() error {
	if err := video.ValidateTileSize(c.Width, c.Height); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame rate %d: %w", c.FrameRate, ErrInvalidConfig)
	}
	if c.BitRate <= 0 {
		return fmt.Errorf("bit rate %d: %w", c.BitRate, ErrInvalidConfig)
	}
	if c.KeyframeInterval < 0 {
		return fmt.Errorf("keyframe interval %d: %w", c.KeyframeInterval, ErrInvalidConfig)
	}
	return nil
}
