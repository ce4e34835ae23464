package video

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createGradientFrame builds a smooth BGRA gradient with padded rows.
// Channel values stay inside [32, 224] for frames up to 64x60.
func createGradientFrame(width, height, padding int) *VideoFrame {
	stride := width*BytesPerPixel + padding
	frame := &VideoFrame{
		Data:   make([]byte, height*stride),
		Width:  width,
		Height: height,
		Stride: stride,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := frame.PixelOffset(x, y)
			frame.Data[off] = byte(48 + x + y) // B
			frame.Data[off+1] = byte(40 + y*3) // G
			frame.Data[off+2] = byte(32 + x*3) // R
			frame.Data[off+3] = 255            // A
		}
	}
	return frame
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestBGRAToI420_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		b, g, r byte
		y, u, v byte
	}{
		{name: "black", b: 0, g: 0, r: 0, y: 16, u: 128, v: 128},
		{name: "white", b: 255, g: 255, r: 255, y: 235, u: 128, v: 128},
		{name: "red", b: 0, g: 0, r: 255, y: 82, u: 90, v: 240},
		{name: "blue", b: 255, g: 0, r: 0, y: 41, u: 240, v: 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := NewVideoFrame(4, 4, 0)
			frame.Fill(0, 0, 4, 4, tt.b, tt.g, tt.r, 255)

			img, err := BGRAToI420(frame.Data, 4, 4, frame.Stride)
			require.NoError(t, err)

			assert.Len(t, img.Y, 16)
			assert.Len(t, img.U, 4)
			assert.Len(t, img.V, 4)
			for _, yv := range img.Y {
				assert.InDelta(t, int(tt.y), int(yv), 1)
			}
			assert.InDelta(t, int(tt.u), int(img.U[0]), 1)
			assert.InDelta(t, int(tt.v), int(img.V[0]), 1)
		})
	}
}

func TestBGRAToI420_RoundTripGradient(t *testing.T) {
	frame := createGradientFrame(64, 48, 16)

	img, err := BGRAToI420(frame.Data, frame.Width, frame.Height, frame.Stride)
	require.NoError(t, err)

	rgba, err := I420ToRGBA(img)
	require.NoError(t, err)
	require.Len(t, rgba, 64*48*4)

	maxErr := 0
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			src := frame.Data[frame.PixelOffset(x, y):]
			dst := rgba[(y*frame.Width+x)*4:]
			maxErr = max(maxErr, absDiff(src[2], dst[0])) // R
			maxErr = max(maxErr, absDiff(src[1], dst[1])) // G
			maxErr = max(maxErr, absDiff(src[0], dst[2])) // B
			assert.Equal(t, byte(255), dst[3])
		}
	}
	assert.LessOrEqual(t, maxErr, 8, "round trip error exceeds tolerance")
}

func TestBGRAToI420_OddDimensions(t *testing.T) {
	frame := createGradientFrame(17, 9, 0)

	img, err := BGRAToI420(frame.Data, frame.Width, frame.Height, frame.Stride)
	require.NoError(t, err)

	assert.Equal(t, 9, img.UStride)
	assert.Len(t, img.U, 9*5)
	assert.Len(t, img.V, 9*5)
	assert.NoError(t, img.Validate())
}

func TestBGRAToI420_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		src    []byte
		width  int
		height int
		stride int
		want   error
	}{
		{name: "zero_width", src: make([]byte, 64), width: 0, height: 4, stride: 16, want: ErrInvalidDimensions},
		{name: "negative_height", src: make([]byte, 64), width: 4, height: -1, stride: 16, want: ErrInvalidDimensions},
		{name: "short_stride", src: make([]byte, 64), width: 4, height: 4, stride: 8, want: ErrInvalidDimensions},
		{name: "short_buffer", src: make([]byte, 10), width: 4, height: 4, stride: 16, want: ErrBufferTooSmall},
		{name: "huge_width", src: make([]byte, 16), width: math.MaxInt / 2, height: 1, stride: math.MaxInt / 2, want: ErrInvalidDimensions},
		{name: "stride_span_overflows", src: make([]byte, 64), width: 4, height: 3, stride: math.MaxInt / 2, want: ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				img *I420
				err error
			)
			require.NotPanics(t, func() {
				img, err = BGRAToI420(tt.src, tt.width, tt.height, tt.stride)
			})
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, img)

			dst := NewI420(4, 4)
			require.NotPanics(t, func() {
				err = BGRAToI420Into(dst, tt.src, tt.width, tt.height, tt.stride)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewI420_NegativeSize(t *testing.T) {
	var img *I420
	require.NotPanics(t, func() { img = NewI420(-4, 3) })
	assert.Equal(t, 0, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.Empty(t, img.Y)
	assert.Empty(t, img.U)
}

func TestI420_PackedRoundTrip(t *testing.T) {
	frame := createGradientFrame(32, 16, 8)
	img, err := BGRAToI420(frame.Data, 32, 16, frame.Stride)
	require.NoError(t, err)

	packed := img.Packed()
	assert.Len(t, packed, 32*16+2*16*8)

	back, err := I420FromPacked(packed, 32, 16)
	require.NoError(t, err)
	assert.Equal(t, img.Y, back.Y)
	assert.Equal(t, img.U, back.U)
	assert.Equal(t, img.V, back.V)

	_, err = I420FromPacked(packed[:100], 32, 16)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}
