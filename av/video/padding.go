package video

import (
	"fmt"
)

// ExtractTile copies the w x h region at (x, y) out of frame into a packed
// BGRA buffer of outW x outH pixels.
//
// When the region is smaller than the output size, the missing columns
// repeat the region's last column and the missing rows repeat its last row.
// Replicated edges keep the padding cheap to encode and invisible once the
// decoder crops back to w x h.
func ExtractTile(frame *VideoFrame, x, y, w, h, outW, outH int) ([]byte, error) {
	dst := make([]byte, outW*outH*BytesPerPixel)
	if err := ExtractTileInto(dst, frame, x, y, w, h, outW, outH); err != nil {
		return nil, err
	}
	return dst, nil
}

// ExtractTileInto is ExtractTile writing into dst, which must hold at least
// outW*outH*4 bytes.
func ExtractTileInto(dst []byte, frame *VideoFrame, x, y, w, h, outW, outH int) error {
	if w <= 0 || h <= 0 || outW < w || outH < h {
		return fmt.Errorf("tile %dx%d into %dx%d: %w", w, h, outW, outH, ErrInvalidDimensions)
	}
	if x < 0 || y < 0 || x+w > frame.Width || y+h > frame.Height {
		return fmt.Errorf("tile %dx%d at (%d,%d) in %dx%d frame: %w",
			w, h, x, y, frame.Width, frame.Height, ErrOutOfBounds)
	}
	rowBytes := outW * BytesPerPixel
	if len(dst) < outH*rowBytes {
		return fmt.Errorf("tile buffer holds %d bytes, need %d: %w", len(dst), outH*rowBytes, ErrBufferTooSmall)
	}

	visible := w * BytesPerPixel
	for row := 0; row < h; row++ {
		src := frame.Data[frame.PixelOffset(x, y+row):]
		out := dst[row*rowBytes : (row+1)*rowBytes]
		copy(out, src[:visible])
		last := out[visible-BytesPerPixel : visible]
		for off := visible; off < rowBytes; off += BytesPerPixel {
			copy(out[off:], last)
		}
	}
	lastRow := dst[(h-1)*rowBytes : h*rowBytes]
	for row := h; row < outH; row++ {
		copy(dst[row*rowBytes:], lastRow)
	}
	return nil
}
