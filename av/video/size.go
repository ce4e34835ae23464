package video

import (
	"fmt"
)

// Codec tile size limits. Both codecs work on 4:2:0 input and need even
// dimensions; the upper bound is the smaller of the two formats' limits.
const (
	MinTileSize = 16
	MaxTileSize = 16383
)

// ValidateTileSize checks if the tile dimensions can be used as a fixed
// encoder resolution.
func ValidateTileSize(width, height int) error {
	if width%2 != 0 {
		return fmt.Errorf("tile width %d must be even: %w", width, ErrInvalidDimensions)
	}
	if height%2 != 0 {
		return fmt.Errorf("tile height %d must be even: %w", height, ErrInvalidDimensions)
	}
	if width < MinTileSize || height < MinTileSize {
		return fmt.Errorf("tile size %dx%d below minimum %dx%d: %w",
			width, height, MinTileSize, MinTileSize, ErrInvalidDimensions)
	}
	if width > MaxTileSize || height > MaxTileSize {
		return fmt.Errorf("tile size %dx%d above maximum %dx%d: %w",
			width, height, MaxTileSize, MaxTileSize, ErrInvalidDimensions)
	}
	return nil
}
