package video

import (
	"fmt"
)

// I420 represents an image in planar YUV 4:2:0 format.
//
// Y holds one luma sample per pixel; U and V hold one chroma sample per 2x2
// block of pixels. Odd widths and heights round the chroma plane size up.
type I420 struct {
	Width   int
	Height  int
	Y       []byte // Luminance plane
	U       []byte // Chrominance U plane
	V       []byte // Chrominance V plane
	YStride int    // Stride for Y plane
	UStride int    // Stride for U plane
	VStride int    // Stride for V plane
}

// ChromaSize returns the dimensions of the U and V planes for an image of
// the given luma size.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// NewI420 allocates a tightly packed planar image. Negative sizes are
// treated as zero.
func NewI420(width, height int) *I420 {
	width, height = max(width, 0), max(height, 0)
	cw, ch := ChromaSize(width, height)
	return &I420{
		Width:   width,
		Height:  height,
		Y:       make([]byte, width*height),
		U:       make([]byte, cw*ch),
		V:       make([]byte, cw*ch),
		YStride: width,
		UStride: cw,
		VStride: cw,
	}
}

// Validate checks dimensions and plane sizes according to YUV420 format
// requirements.
func (img *I420) Validate() error {
	if img == nil {
		return fmt.Errorf("image cannot be nil: %w", ErrInvalidDimensions)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("image size %dx%d: %w", img.Width, img.Height, ErrInvalidDimensions)
	}
	cw, ch := ChromaSize(img.Width, img.Height)
	if img.YStride < img.Width || img.UStride < cw || img.VStride < cw {
		return fmt.Errorf("strides %d/%d/%d too short for %dx%d: %w",
			img.YStride, img.UStride, img.VStride, img.Width, img.Height, ErrInvalidDimensions)
	}
	if len(img.Y) < (img.Height-1)*img.YStride+img.Width {
		return fmt.Errorf("Y plane too small: got %d: %w", len(img.Y), ErrBufferTooSmall)
	}
	if len(img.U) < (ch-1)*img.UStride+cw {
		return fmt.Errorf("U plane too small: got %d: %w", len(img.U), ErrBufferTooSmall)
	}
	if len(img.V) < (ch-1)*img.VStride+cw {
		return fmt.Errorf("V plane too small: got %d: %w", len(img.V), ErrBufferTooSmall)
	}
	return nil
}

// Packed returns the three planes concatenated without row padding, the
// layout FFmpeg expects when copying a picture from a flat buffer with an
// alignment of 1.
func (img *I420) Packed() []byte {
	cw, ch := ChromaSize(img.Width, img.Height)
	out := make([]byte, 0, img.Width*img.Height+2*cw*ch)
	for row := 0; row < img.Height; row++ {
		out = append(out, img.Y[row*img.YStride:row*img.YStride+img.Width]...)
	}
	for row := 0; row < ch; row++ {
		out = append(out, img.U[row*img.UStride:row*img.UStride+cw]...)
	}
	for row := 0; row < ch; row++ {
		out = append(out, img.V[row*img.VStride:row*img.VStride+cw]...)
	}
	return out
}

// I420FromPacked slices a flat Y|U|V buffer into a tightly packed image.
func I420FromPacked(data []byte, width, height int) (*I420, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	cw, ch := ChromaSize(width, height)
	ySize, cSize := width*height, cw*ch
	if len(data) < ySize+2*cSize {
		return nil, fmt.Errorf("packed image holds %d bytes, need %d: %w",
			len(data), ySize+2*cSize, ErrBufferTooSmall)
	}
	return &I420{
		Width:   width,
		Height:  height,
		Y:       data[:ySize:ySize],
		U:       data[ySize : ySize+cSize : ySize+cSize],
		V:       data[ySize+cSize : ySize+2*cSize : ySize+2*cSize],
		YStride: width,
		UStride: cw,
		VStride: cw,
	}, nil
}
