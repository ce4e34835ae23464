package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidI420(t *testing.T, w, h int, b, g, r byte) *I420 {
	t.Helper()
	frame := NewVideoFrame(w, h, 0)
	frame.Fill(0, 0, w, h, b, g, r, 255)
	img, err := BGRAToI420(frame.Data, w, h, frame.Stride)
	require.NoError(t, err)
	return img
}

func TestCompositor_DrawCropsToVisibleSize(t *testing.T) {
	comp := NewCompositor(40, 40)
	white := solidI420(t, 32, 32, 255, 255, 255)

	require.NoError(t, comp.Draw(32, 32, 8, 8, white))

	snap := comp.Snapshot()
	assert.InDelta(t, 255, int(snap.RGBAAt(39, 39).R), 2)
	assert.InDelta(t, 255, int(snap.RGBAAt(32, 32).G), 2)
	assert.Equal(t, uint8(0), snap.RGBAAt(31, 31).R)
	assert.Equal(t, uint8(255), snap.RGBAAt(0, 0).A)
	assert.Equal(t, uint64(1), comp.DrawCount())
}

func TestCompositor_LaterDrawOverwrites(t *testing.T) {
	comp := NewCompositor(32, 32)
	red := solidI420(t, 16, 16, 0, 0, 255)
	blue := solidI420(t, 16, 16, 255, 0, 0)

	require.NoError(t, comp.Draw(0, 0, 16, 16, blue))
	require.NoError(t, comp.Draw(0, 0, 16, 16, red))

	px := comp.Snapshot().RGBAAt(8, 8)
	assert.Greater(t, int(px.R), 200)
	assert.Less(t, int(px.B), 40)
}

func TestCompositor_InvalidDraws(t *testing.T) {
	comp := NewCompositor(32, 32)
	img := solidI420(t, 16, 16, 0, 0, 0)

	assert.ErrorIs(t, comp.Draw(0, 0, 0, 16, img), ErrInvalidDimensions)
	assert.ErrorIs(t, comp.Draw(0, 0, 32, 32, img), ErrBufferTooSmall)
	assert.NoError(t, comp.Draw(100, 100, 16, 16, img))
	assert.Equal(t, uint64(0), comp.DrawCount())
}

func TestCompositor_NegativeSize(t *testing.T) {
	var comp *Compositor
	require.NotPanics(t, func() { comp = NewCompositor(-8, 16) })

	w, h := comp.Size()
	assert.Equal(t, 0, w)
	assert.Equal(t, 16, h)
	assert.NoError(t, comp.Draw(0, 0, 16, 16, solidI420(t, 16, 16, 0, 0, 0)))
	assert.Equal(t, uint64(0), comp.DrawCount())
	assert.Equal(t, 0, comp.Snapshot().Bounds().Dx())
}
