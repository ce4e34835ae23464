package motion

import (
	"testing"

	"github.com/opd-ai/tilecast/av/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paddedFrame(width, height, padding int) *video.VideoFrame {
	stride := width*video.BytesPerPixel + padding
	return &video.VideoFrame{
		Data:   make([]byte, height*stride),
		Width:  width,
		Height: height,
		Stride: stride,
	}
}

func TestDetector_FirstFrameAlwaysMotion(t *testing.T) {
	d := NewDetector()
	frame := video.NewVideoFrame(64, 64, 0)

	assert.False(t, d.HasPrevious())
	assert.True(t, d.HasMotionInFrame(frame, 0, 0, 32, 32))
	assert.True(t, d.HasMotion(frame.Data, frame.Stride, 0, 0, 64, 64))
}

func TestDetector_IdenticalFrameIsStatic(t *testing.T) {
	d := NewDetector()
	frame := paddedFrame(64, 64, 20)
	frame.Fill(0, 0, 64, 64, 10, 200, 30, 255)

	d.UpdatePreviousFrame(frame)
	require.True(t, d.HasPrevious())

	for _, origin := range [][2]int{{0, 0}, {32, 0}, {0, 32}, {32, 32}} {
		assert.False(t, d.HasMotionInFrame(frame, origin[0], origin[1], 32, 32))
	}
}

func TestDetector_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		pixels     int  // changed pixels in a 20x20 (400 px) region
		delta      byte // per-channel change applied to B, G and R
		wantMotion bool
	}{
		{name: "below_ratio", pixels: 20, delta: 100, wantMotion: false},
		{name: "above_ratio", pixels: 21, delta: 100, wantMotion: true},
		{name: "delta_at_threshold", pixels: 400, delta: 10, wantMotion: false},
		{name: "delta_above_threshold", pixels: 400, delta: 11, wantMotion: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			prev := video.NewVideoFrame(20, 20, 0)
			d.UpdatePreviousFrame(prev)

			cur := video.NewVideoFrame(20, 20, 1)
			for i := 0; i < tt.pixels; i++ {
				off := i * video.BytesPerPixel
				cur.Data[off] = tt.delta
				cur.Data[off+1] = tt.delta
				cur.Data[off+2] = tt.delta
			}
			assert.Equal(t, tt.wantMotion, d.HasMotionInFrame(cur, 0, 0, 20, 20))
		})
	}
}

func TestDetector_AlphaIgnored(t *testing.T) {
	d := NewDetector()
	prev := video.NewVideoFrame(16, 16, 0)
	d.UpdatePreviousFrame(prev)

	cur := video.NewVideoFrame(16, 16, 1)
	for i := 3; i < len(cur.Data); i += video.BytesPerPixel {
		cur.Data[i] = 255
	}
	assert.False(t, d.HasMotionInFrame(cur, 0, 0, 16, 16))
}

func TestDetector_ComparesCoLocatedRegion(t *testing.T) {
	d := NewDetector()
	prev := paddedFrame(64, 32, 8)
	d.UpdatePreviousFrame(prev)

	cur := paddedFrame(64, 32, 8)
	cur.Fill(32, 0, 32, 32, 255, 255, 255, 255)

	assert.False(t, d.HasMotionInFrame(cur, 0, 0, 32, 32))
	assert.True(t, d.HasMotionInFrame(cur, 32, 0, 32, 32))
}

func TestDetector_DimensionChangeForcesMotion(t *testing.T) {
	d := NewDetector()
	d.UpdatePreviousFrame(video.NewVideoFrame(32, 32, 0))

	bigger := video.NewVideoFrame(64, 64, 1)
	assert.True(t, d.HasMotionInFrame(bigger, 0, 0, 16, 16))

	d.UpdatePreviousFrame(bigger)
	w, h := d.PreviousSize()
	assert.Equal(t, 64, w)
	assert.Equal(t, 64, h)
	assert.False(t, d.HasMotionInFrame(bigger, 48, 48, 16, 16))
}

func TestDetector_OutOfBoundsRegionIsMotion(t *testing.T) {
	d := NewDetector()
	frame := video.NewVideoFrame(32, 32, 0)
	d.UpdatePreviousFrame(frame)

	assert.True(t, d.HasMotion(frame.Data, frame.Stride, 24, 24, 16, 16))
}

func TestDetector_UpdateCopiesPixels(t *testing.T) {
	d := NewDetector()
	frame := video.NewVideoFrame(16, 16, 0)
	d.UpdatePreviousFrame(frame)

	// Mutating the caller's buffer must not affect the stored copy.
	frame.Fill(0, 0, 16, 16, 200, 200, 200, 255)
	assert.True(t, d.HasMotionInFrame(frame, 0, 0, 16, 16))
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector()
	frame := video.NewVideoFrame(16, 16, 0)
	d.UpdatePreviousFrame(frame)
	require.False(t, d.HasMotionInFrame(frame, 0, 0, 16, 16))

	d.Reset()
	assert.False(t, d.HasPrevious())
	assert.True(t, d.HasMotionInFrame(frame, 0, 0, 16, 16))
}
