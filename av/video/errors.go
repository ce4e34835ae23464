package video

import "errors"

// Sentinel errors for video package operations.
var (
	// ErrInvalidDimensions indicates a zero, negative or otherwise unusable size.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrBufferTooSmall indicates a pixel buffer shorter than its geometry requires.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrOutOfBounds indicates a region that extends past its containing image.
	ErrOutOfBounds = errors.New("region out of bounds")
)
