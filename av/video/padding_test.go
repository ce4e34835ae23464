package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pixelAt(buf []byte, stride, x, y int) []byte {
	off := y*stride + x*BytesPerPixel
	return buf[off : off+BytesPerPixel]
}

func TestExtractTile_FullTile(t *testing.T) {
	frame := createGradientFrame(32, 32, 12)

	tile, err := ExtractTile(frame, 16, 16, 16, 16, 16, 16)
	require.NoError(t, err)
	require.Len(t, tile, 16*16*4)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src := frame.Data[frame.PixelOffset(16+x, 16+y) : frame.PixelOffset(16+x, 16+y)+4]
			assert.Equal(t, src, pixelAt(tile, 16*4, x, y))
		}
	}
}

func TestExtractTile_EdgePadding(t *testing.T) {
	frame := createGradientFrame(20, 18, 0)

	// Bottom-right edge tile: 4x2 visible pixels padded to 16x16.
	tile, err := ExtractTile(frame, 16, 16, 4, 2, 16, 16)
	require.NoError(t, err)

	stride := 16 * 4
	lastCol := pixelAt(frame.Data, frame.Stride, 19, 16)
	for x := 4; x < 16; x++ {
		assert.Equal(t, lastCol, pixelAt(tile, stride, x, 0), "column %d", x)
	}
	for y := 2; y < 16; y++ {
		assert.Equal(t, tile[stride:2*stride], tile[y*stride:(y+1)*stride], "row %d", y)
	}
	assert.Equal(t, pixelAt(frame.Data, frame.Stride, 17, 17), pixelAt(tile, stride, 1, 1))
}

func TestExtractTile_Errors(t *testing.T) {
	frame := createGradientFrame(20, 20, 0)

	_, err := ExtractTile(frame, 16, 16, 8, 8, 8, 8)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = ExtractTile(frame, 0, 0, 16, 16, 8, 8)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	err = ExtractTileInto(make([]byte, 10), frame, 0, 0, 4, 4, 4, 4)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}
