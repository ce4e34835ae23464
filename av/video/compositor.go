package video

import (
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

// Compositor maintains the viewer-side canvas that decoded tiles are drawn
// into.
//
// Draw is last-writer-wins per pixel: a tile simply replaces what was at
// its position, so the canvas tolerates dropped and reordered tiles.
type Compositor struct {
	mu     sync.RWMutex
	width  int
	height int
	canvas []byte // packed RGBA, stride width*4
	draws  uint64
}

// NewCompositor creates a canvas of the given size, initially opaque black.
// Negative sizes are treated as zero.
func NewCompositor(width, height int) *Compositor {
	logrus.WithFields(logrus.Fields{
		"function": "NewCompositor",
		"width":    width,
		"height":   height,
	}).Info("Creating tile compositor")

	width, height = max(width, 0), max(height, 0)
	canvas := make([]byte, width*height*BytesPerPixel)
	for i := 3; i < len(canvas); i += BytesPerPixel {
		canvas[i] = 255
	}
	return &Compositor{
		width:  width,
		height: height,
		canvas: canvas,
	}
}

// Draw converts a decoded tile to RGBA, crops it to its visible w x h
// size and writes it at (x, y). Pixels falling outside the canvas are
// discarded.
func (c *Compositor) Draw(x, y, w, h int, img *I420) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("visible size %dx%d: %w", w, h, ErrInvalidDimensions)
	}
	if img == nil || img.Width < w || img.Height < h {
		return fmt.Errorf("decoded tile smaller than visible %dx%d: %w", w, h, ErrBufferTooSmall)
	}
	rgba, err := I420ToRGBA(img)
	if err != nil {
		return fmt.Errorf("tile conversion failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	x1, y1 := min(x+w, c.width), min(y+h, c.height)
	x0, y0 := max(x, 0), max(y, 0)
	if x0 >= x1 || y0 >= y1 {
		logrus.WithFields(logrus.Fields{
			"function": "Compositor.Draw",
			"x":        x,
			"y":        y,
		}).Debug("Tile lies outside canvas, ignoring")
		return nil
	}
	srcStride := img.Width * BytesPerPixel
	for row := y0; row < y1; row++ {
		src := rgba[(row-y)*srcStride+(x0-x)*BytesPerPixel:]
		dst := c.canvas[(row*c.width+x0)*BytesPerPixel:]
		copy(dst[:(x1-x0)*BytesPerPixel], src)
	}
	c.draws++
	return nil
}

// Snapshot returns a copy of the current canvas.
func (c *Compositor) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	copy(out.Pix, c.canvas)
	return out
}

// Size returns the canvas dimensions.
func (c *Compositor) Size() (width, height int) {
	return c.width, c.height
}

// DrawCount returns how many tiles have been drawn.
func (c *Compositor) DrawCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draws
}
