package tilecast

import (
	"fmt"

	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/motion"
	"github.com/opd-ai/tilecast/av/video"
)

const (
	// DefaultTileSize is the default tile width and height in pixels.
	DefaultTileSize = 128

	DefaultFrameWidth  = 1920
	DefaultFrameHeight = 1080
)

// Options contains the configuration of a TiledEncoder.
type Options struct {
	TileWidth  int
	TileHeight int

	// FrameWidth and FrameHeight describe the expected capture size. Frames
	// of any size are accepted; a mismatch is only logged.
	FrameWidth  int
	FrameHeight int

	HighCompression codec.SessionConfig
	LowLatency      codec.SessionConfig

	// Hysteresis is the number of consecutive identical classifications a
	// tile position needs before its codec switches. Values below 2 switch
	// on every classification change.
	Hysteresis int

	PixelThreshold int
	MotionRatio    float64

	// SessionFactory creates encoder sessions. Nil selects the FFmpeg
	// backed sessions.
	SessionFactory codec.SessionFactory
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		TileWidth:       DefaultTileSize,
		TileHeight:      DefaultTileSize,
		FrameWidth:      DefaultFrameWidth,
		FrameHeight:     DefaultFrameHeight,
		HighCompression: codec.DefaultHighCompressionConfig(),
		LowLatency:      codec.DefaultLowLatencyConfig(),
		Hysteresis:      0,
		PixelThreshold:  motion.DefaultPixelThreshold,
		MotionRatio:     motion.DefaultRatioThreshold,
	}
}

// Validate checks the options that would make the pipeline unusable.
// Encoder settings are not checked here: a bad codec configuration only
// disables that codec.
func (o *Options) Validate() error {
	if err := video.ValidateTileSize(o.TileWidth, o.TileHeight); err != nil {
		return fmt.Errorf("tile size: %w", err)
	}
	if o.FrameWidth <= 0 || o.FrameHeight <= 0 || o.FrameWidth > video.MaxFrameDimension || o.FrameHeight > video.MaxFrameDimension {
		return fmt.Errorf("frame size %dx%d: %w", o.FrameWidth, o.FrameHeight, video.ErrInvalidDimensions)
	}
	if o.PixelThreshold < 0 || o.PixelThreshold > 765 {
		return fmt.Errorf("pixel threshold %d outside [0, 765]", o.PixelThreshold)
	}
	if o.MotionRatio < 0 || o.MotionRatio >= 1 {
		return fmt.Errorf("motion ratio %g outside [0, 1)", o.MotionRatio)
	}
	if o.Hysteresis < 0 {
		return fmt.Errorf("hysteresis %d cannot be negative", o.Hysteresis)
	}
	return nil
}
