// Package tilecast turns captured screen frames into a stream of
// independently encoded tiles, picking a codec per tile from whether the
// tile changed since the previous frame.
//
// Static regions go to a high-compression codec (VP9) and changing regions
// go to a low-latency codec (H.264). Each emitted tile carries a pipeline
// wide sequence id so a viewer can detect drops.
//
// # Getting Started
//
//	options := tilecast.NewOptions()
//	options.TileWidth, options.TileHeight = 128, 128
//
//	enc, err := tilecast.New(options, func(tile *tilecast.EncodedTile) {
//	    send(tile)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enc.Close()
//
//	for frame := range frames {
//	    if err := enc.ProcessFrame(frame); err != nil {
//	        log.Printf("frame dropped: %v", err)
//	    }
//	}
//
// # Pipeline
//
// ProcessFrame runs Partition, then for each tile Classify, Select,
// Convert, Encode and Package, and finally stores the frame as the motion
// reference. Tiles are handed to the sink synchronously in row-major order.
//
// # Edge Tiles
//
// Tiles on the right and bottom edges of a frame whose size is not a
// multiple of the tile size are padded to the full tile size by repeating
// their last column and row. EncodedTile.Width and Height give the visible
// part; decoders crop to it, see codec.Decoder and video.Compositor.
//
// # Errors
//
// Malformed frames are rejected with ErrInvalidFrame before any tile is
// processed. A codec whose encoder could not be created is disabled for
// the pipeline's lifetime and its tiles carry empty payloads; CodecStatus
// reports the cause.
package tilecast
