package tilecast

import "errors"

var (
	// ErrInvalidFrame is returned for nil frames, non-positive dimensions,
	// short strides and pixel buffers too small for the frame geometry.
	ErrInvalidFrame = errors.New("invalid video frame")

	// ErrNilSink is returned by New when no sink is supplied.
	ErrNilSink = errors.New("tile sink cannot be nil")

	// ErrClosed is returned by operations on a closed encoder.
	ErrClosed = errors.New("tiled encoder is closed")
)
