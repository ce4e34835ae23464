package video

import (
	"fmt"
)

// clamp8 saturates an intermediate colour value to the byte range.
func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func rgbToY(r, g, b int) byte {
	return clamp8(((66*r + 129*g + 25*b + 128) >> 8) + 16)
}

func rgbToU(r, g, b int) byte {
	return clamp8(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
}

func rgbToV(r, g, b int) byte {
	return clamp8(((112*r - 94*g - 18*b + 128) >> 8) + 128)
}

// BGRAToI420 converts packed BGRA pixels to a newly allocated planar
// YUV 4:2:0 image.
//
// Luma uses the fixed-point BT.601 studio-swing coefficients. Each chroma
// sample is computed from the average colour of its 2x2 block; blocks cut
// by an odd right or bottom edge average the pixels that exist.
func BGRAToI420(src []byte, width, height, stride int) (*I420, error) {
	if err := checkSource(src, width, height, stride); err != nil {
		return nil, err
	}
	img := NewI420(width, height)
	if err := BGRAToI420Into(img, src, width, height, stride); err != nil {
		return nil, err
	}
	return img, nil
}

func checkSource(src []byte, width, height, stride int) error {
	if err := checkGeometry(width, height, stride); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if need := requiredBytes(width, height, stride); len(src) < need {
		return fmt.Errorf("source holds %d bytes, need %d: %w", len(src), need, ErrBufferTooSmall)
	}
	return nil
}

// BGRAToI420Into is BGRAToI420 writing into an existing image whose size
// must match width and height.
func BGRAToI420Into(dst *I420, src []byte, width, height, stride int) error {
	if err := checkSource(src, width, height, stride); err != nil {
		return err
	}
	if dst == nil || dst.Width != width || dst.Height != height {
		return fmt.Errorf("destination does not match %dx%d source: %w", width, height, ErrInvalidDimensions)
	}
	if err := dst.Validate(); err != nil {
		return err
	}

	for y := 0; y < height; y++ {
		row := src[y*stride:]
		yRow := dst.Y[y*dst.YStride:]
		for x := 0; x < width; x++ {
			p := x * BytesPerPixel
			yRow[x] = rgbToY(int(row[p+2]), int(row[p+1]), int(row[p]))
		}
	}

	cw, ch := ChromaSize(width, height)
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var r, g, b, n int
			for dy := 0; dy < 2; dy++ {
				y := cy*2 + dy
				if y >= height {
					break
				}
				for dx := 0; dx < 2; dx++ {
					x := cx*2 + dx
					if x >= width {
						break
					}
					p := y*stride + x*BytesPerPixel
					b += int(src[p])
					g += int(src[p+1])
					r += int(src[p+2])
					n++
				}
			}
			r, g, b = (r+n/2)/n, (g+n/2)/n, (b+n/2)/n
			dst.U[cy*dst.UStride+cx] = rgbToU(r, g, b)
			dst.V[cy*dst.VStride+cx] = rgbToV(r, g, b)
		}
	}
	return nil
}

// I420ToRGBA converts a planar YUV 4:2:0 image to packed R,G,B,A pixels
// with a stride of Width*4.
//
// Chroma is upsampled by nearest neighbour and the BT.601 inverse matrix is
// applied in fixed point. Alpha is always 255.
func I420ToRGBA(img *I420) ([]byte, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, img.Width*img.Height*BytesPerPixel)
	for y := 0; y < img.Height; y++ {
		yRow := img.Y[y*img.YStride:]
		uRow := img.U[(y/2)*img.UStride:]
		vRow := img.V[(y/2)*img.VStride:]
		o := y * img.Width * BytesPerPixel
		for x := 0; x < img.Width; x++ {
			c := 298 * (int(yRow[x]) - 16)
			d := int(uRow[x/2]) - 128
			e := int(vRow[x/2]) - 128
			out[o] = clamp8((c + 409*e + 128) >> 8)
			out[o+1] = clamp8((c - 100*d - 208*e + 128) >> 8)
			out[o+2] = clamp8((c + 516*d + 128) >> 8)
			out[o+3] = 255
			o += BytesPerPixel
		}
	}
	return out, nil
}
