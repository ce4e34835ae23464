package video

import (
	"fmt"
	"math"
)

// BytesPerPixel is the packed pixel size of captured frames (B, G, R, A).
const BytesPerPixel = 4

// MaxFrameDimension bounds frame width and height. Tile geometry travels
// as 16-bit values on the RTP path.
const MaxFrameDimension = 1<<16 - 1

// VideoFrame represents one full captured image.
//
// Pixels are stored row-major from the top-left corner in B,G,R,A byte
// order. Stride is the distance in bytes between the starts of two
// consecutive rows and may exceed Width*4 when the source pads its rows.
type VideoFrame struct {
	Data        []byte
	Width       int
	Height      int
	Stride      int
	TimestampUs int64 // capture time, monotonic microseconds
}

// Validate checks that the frame geometry is usable and that Data is long
// enough to hold every addressed pixel.
func (f *VideoFrame) Validate() error {
	if f == nil {
		return fmt.Errorf("video frame cannot be nil: %w", ErrInvalidDimensions)
	}
	if err := checkGeometry(f.Width, f.Height, f.Stride); err != nil {
		return err
	}
	if f.Data == nil {
		return fmt.Errorf("frame has no pixel data: %w", ErrBufferTooSmall)
	}
	if need := f.RequiredBytes(); len(f.Data) < need {
		return fmt.Errorf("pixel buffer holds %d bytes, need %d: %w", len(f.Data), need, ErrBufferTooSmall)
	}
	return nil
}

// RequiredBytes returns the minimum length of Data for the frame geometry,
// or 0 when the geometry is invalid. The last row does not need to carry
// stride padding.
func (f *VideoFrame) RequiredBytes() int {
	if checkGeometry(f.Width, f.Height, f.Stride) != nil {
		return 0
	}
	return requiredBytes(f.Width, f.Height, f.Stride)
}

// checkGeometry rejects sizes outside 1..MaxFrameDimension, strides shorter
// than a row and strides whose addressed span would overflow int.
func checkGeometry(width, height, stride int) error {
	if width <= 0 || height <= 0 || width > MaxFrameDimension || height > MaxFrameDimension {
		return fmt.Errorf("frame size %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	row := width * BytesPerPixel
	if stride < row {
		return fmt.Errorf("stride %d shorter than row of %d bytes: %w", stride, row, ErrInvalidDimensions)
	}
	if height > 1 && stride > (math.MaxInt-row)/(height-1) {
		return fmt.Errorf("stride %d over %d rows overflows: %w", stride, height, ErrInvalidDimensions)
	}
	return nil
}

// requiredBytes assumes checkGeometry accepted the arguments.
func requiredBytes(width, height, stride int) int {
	return (height-1)*stride + width*BytesPerPixel
}

// PixelOffset returns the byte offset of pixel (x, y) in Data.
func (f *VideoFrame) PixelOffset(x, y int) int {
	return y*f.Stride + x*BytesPerPixel
}

// NewVideoFrame allocates a tightly packed frame of the given size.
// Negative sizes are treated as zero.
func NewVideoFrame(width, height int, timestampUs int64) *VideoFrame {
	width, height = max(width, 0), max(height, 0)
	return &VideoFrame{
		Data:        make([]byte, width*height*BytesPerPixel),
		Width:       width,
		Height:      height,
		Stride:      width * BytesPerPixel,
		TimestampUs: timestampUs,
	}
}

// Fill paints a rectangle of the frame with a single BGRA colour. The
// rectangle is clipped to the frame bounds.
func (f *VideoFrame) Fill(x, y, w, h int, b, g, r, a byte) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, f.Width), min(y+h, f.Height)
	for row := y0; row < y1; row++ {
		off := f.PixelOffset(x0, row)
		for col := x0; col < x1; col++ {
			f.Data[off] = b
			f.Data[off+1] = g
			f.Data[off+2] = r
			f.Data[off+3] = a
			off += BytesPerPixel
		}
	}
}
