package main

import (
	"context"
	"time"

	"github.com/opd-ai/tilecast/av/video"
)

// syntheticSource renders a mostly static desktop: a fixed gradient
// background, a window whose content scrolls, and a cursor-sized block
// moving across the screen.
type syntheticSource struct {
	width      int
	height     int
	background []byte
	frame      int
}

func newSyntheticSource(width, height int) *syntheticSource {
	bg := video.NewVideoFrame(width, height, 0)
	for y := 0; y < height; y++ {
		off := bg.PixelOffset(0, y)
		for x := 0; x < width; x++ {
			bg.Data[off] = byte(64 + y*128/height)
			bg.Data[off+1] = byte(48 + x*96/width)
			bg.Data[off+2] = 40
			bg.Data[off+3] = 255
			off += video.BytesPerPixel
		}
	}
	return &syntheticSource{width: width, height: height, background: bg.Data}
}

// Next renders the next frame stamped with timestampUs.
func (s *syntheticSource) Next(timestampUs int64) *video.VideoFrame {
	f := video.NewVideoFrame(s.width, s.height, timestampUs)
	copy(f.Data, s.background)

	// Scrolling window in the upper left quarter.
	winW, winH := s.width/4, s.height/4
	f.Fill(winW/4, winH/4, winW, winH, 230, 230, 230, 255)
	for line := 0; line < winH; line += 12 {
		y := winH/4 + (line+s.frame*2)%winH
		f.Fill(winW/4+8, y, winW-16, 4, 40, 40, 40, 255)
	}

	// Moving block.
	const size = 24
	x := (s.frame * 8) % max(1, s.width-size)
	y := s.height/2 + (s.frame*3)%max(1, s.height/2-size)
	f.Fill(x, y, size, size, 20, 60, 220, 255)

	s.frame++
	return f
}

// frames delivers frames at fps until ctx is done. Frames the consumer is
// not ready for are skipped.
func (s *syntheticSource) frames(ctx context.Context, fps int) <-chan *video.VideoFrame {
	out := make(chan *video.VideoFrame, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
		start := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				frame := s.Next(now.Sub(start).Microseconds())
				select {
				case out <- frame:
				default:
				}
			}
		}
	}()
	return out
}
