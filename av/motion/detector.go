// Package motion classifies frame regions as changed or static relative to
// the previously processed frame.
//
// The Detector owns a copy of the last fully processed frame. Classification
// compares the co-located pixels of the current frame against that copy; the
// copy is only replaced by UpdatePreviousFrame, which the pipeline calls once
// after every tile of a frame has been classified.
package motion

import (
	"github.com/opd-ai/tilecast/av/video"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPixelThreshold is the per-pixel |dR|+|dG|+|dB| a pixel must
	// exceed to count as changed (out of a possible 765).
	DefaultPixelThreshold = 30

	// DefaultRatioThreshold is the fraction of changed pixels a region must
	// exceed to be classified as having motion.
	DefaultRatioThreshold = 0.05
)

// Detector holds the previous frame and classifies regions against it.
type Detector struct {
	pixelThreshold int
	ratioThreshold float64

	previous []byte // packed BGRA, stride width*4
	width    int
	height   int
	hasFrame bool
}

// NewDetector creates a detector with the default thresholds.
func NewDetector() *Detector {
	return NewDetectorWithThresholds(DefaultPixelThreshold, DefaultRatioThreshold)
}

// NewDetectorWithThresholds creates a detector with custom thresholds.
func NewDetectorWithThresholds(pixelThreshold int, ratioThreshold float64) *Detector {
	logrus.WithFields(logrus.Fields{
		"function":        "NewDetectorWithThresholds",
		"pixel_threshold": pixelThreshold,
		"ratio_threshold": ratioThreshold,
	}).Debug("Creating motion detector")

	return &Detector{
		pixelThreshold: pixelThreshold,
		ratioThreshold: ratioThreshold,
	}
}

// HasPrevious reports whether a previous frame has been stored.
func (d *Detector) HasPrevious() bool {
	return d.hasFrame
}

// PreviousSize returns the dimensions of the stored previous frame.
func (d *Detector) PreviousSize() (width, height int) {
	return d.width, d.height
}

// HasMotion classifies the width x height region at (x, y) of the current
// frame pixels cur, whose rows are stride bytes apart and start at the
// region's top-left pixel.
//
// It returns true when no previous frame exists, when the region does not
// lie inside the stored previous frame, or when more than the ratio
// threshold of its pixels changed by more than the pixel threshold.
func (d *Detector) HasMotion(cur []byte, stride, x, y, width, height int) bool {
	if !d.hasFrame {
		return true
	}
	if width <= 0 || height <= 0 || x < 0 || y < 0 || x+width > d.width || y+height > d.height {
		return true
	}

	changed := countChanged(cur, stride, d.previous[(y*d.width+x)*video.BytesPerPixel:],
		d.width*video.BytesPerPixel, width, height, d.pixelThreshold)
	return float64(changed)/float64(width*height) > d.ratioThreshold
}

// HasMotionInFrame classifies a region of a full frame. A frame whose
// dimensions differ from the stored previous frame always has motion.
func (d *Detector) HasMotionInFrame(frame *video.VideoFrame, x, y, width, height int) bool {
	if d.hasFrame && (frame.Width != d.width || frame.Height != d.height) {
		return true
	}
	return d.HasMotion(frame.Data[frame.PixelOffset(x, y):], frame.Stride, x, y, width, height)
}

// UpdatePreviousFrame replaces the stored previous frame with a copy of
// frame. The buffer is resized first if the frame dimensions changed.
func (d *Detector) UpdatePreviousFrame(frame *video.VideoFrame) {
	if frame.Width != d.width || frame.Height != d.height {
		logrus.WithFields(logrus.Fields{
			"function":   "Detector.UpdatePreviousFrame",
			"old_width":  d.width,
			"old_height": d.height,
			"new_width":  frame.Width,
			"new_height": frame.Height,
		}).Debug("Resizing previous frame buffer")

		d.width = frame.Width
		d.height = frame.Height
		d.previous = make([]byte, frame.Width*frame.Height*video.BytesPerPixel)
	}

	rowBytes := frame.Width * video.BytesPerPixel
	if frame.Stride == rowBytes {
		copy(d.previous, frame.Data[:frame.Height*rowBytes])
	} else {
		for row := 0; row < frame.Height; row++ {
			src := frame.Data[row*frame.Stride : row*frame.Stride+rowBytes]
			copy(d.previous[row*rowBytes:], src)
		}
	}
	d.hasFrame = true
}

// Reset forgets the previous frame so the next classification reports
// motion everywhere.
func (d *Detector) Reset() {
	d.previous = nil
	d.width = 0
	d.height = 0
	d.hasFrame = false
}

// countChanged returns how many pixels of a width x height region differ by
// more than threshold in the sum of absolute B, G and R differences.
func countChanged(cur []byte, curStride int, prev []byte, prevStride, width, height, threshold int) int {
	changed := 0
	for row := 0; row < height; row++ {
		c := cur[row*curStride:]
		p := prev[row*prevStride:]
		for col := 0; col < width; col++ {
			o := col * video.BytesPerPixel
			sum := absDiff(c[o], p[o]) + absDiff(c[o+1], p[o+1]) + absDiff(c[o+2], p[o+2])
			if sum > threshold {
				changed++
			}
		}
	}
	return changed
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
