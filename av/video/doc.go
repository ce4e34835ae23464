// Package video provides the pixel-level building blocks of the tiled
// screen-sharing pipeline.
//
// This package holds the captured frame type consumed by the pipeline, the
// planar YUV 4:2:0 image handed to the codecs, BT.601 color conversion in
// both directions, edge-tile padding and the decode-side compositor.
//
// # Architecture Overview
//
// The pixel path through the pipeline:
//
//	Encoding: BGRA VideoFrame → Tile Extraction (+ edge padding) → BGRAToI420 → Codec
//	Decoding: Codec → I420 → I420ToRGBA → Compositor (crop + draw at x,y)
//
// # Video Frames
//
// A VideoFrame is one captured image in packed B,G,R,A byte order with a
// row stride that may include padding:
//
//	frame := &video.VideoFrame{
//	    Data:        pixels,    // len >= (Height-1)*Stride + Width*4
//	    Width:       1920,
//	    Height:      1080,
//	    Stride:      1920 * 4,
//	    TimestampUs: captureTime,
//	}
//	if err := frame.Validate(); err != nil {
//	    return err
//	}
//
// The pipeline reads a VideoFrame synchronously and never retains Data.
//
// # Color Conversion
//
// BGRAToI420 converts packed pixels to planar YUV 4:2:0 using fixed-point
// BT.601 coefficients with 2x2 chroma averaging:
//
//	img, err := video.BGRAToI420(tile, 128, 128, 128*4)
//
// I420ToRGBA is the inverse, upsampling chroma by nearest neighbour with
// alpha fixed at 255. The round trip is lossy but close for smooth content.
//
// # Edge Tiles
//
// Tiles at the right and bottom edges of a frame can be smaller than the
// configured tile size. ExtractTile copies a tile out of a frame and pads it
// to the full tile size by replicating its last column and row, so every
// codec session always receives images of one fixed size. Decoders crop the
// decoded image back to the visible tile size.
//
// # Compositing
//
// The Compositor maintains a viewer-side RGBA canvas. Each decoded tile is
// drawn over whatever the canvas held at that position, so dropped or
// reordered tiles only leave stale content behind:
//
//	comp := video.NewCompositor(1920, 1080)
//	err := comp.Draw(x, y, visibleW, visibleH, decoded)
//	snapshot := comp.Snapshot()
package video
