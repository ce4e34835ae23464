package tilecast

import (
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/motion"
	"github.com/opd-ai/tilecast/av/tiling"
	"github.com/opd-ai/tilecast/av/video"
	"github.com/sirupsen/logrus"
)

// TiledEncoder is the per-frame tiling and encoding pipeline.
//
// All methods are safe for concurrent use; frames are processed one at a
// time in call order.
type TiledEncoder struct {
	mu sync.Mutex

	options     Options
	sink        Sink
	partitioner *tiling.Partitioner
	detector    *motion.Detector
	selector    codec.Selector
	pool        *codec.Pool

	// Reused per tile: padded BGRA pixels and their planar conversion.
	tileBuf []byte
	img     *video.I420

	nextSeq uint32
	stats   Stats
	closed  bool
}

// New creates a TiledEncoder delivering tiles to sink. A nil options
// selects NewOptions().
func New(options *Options, sink Sink) (*TiledEncoder, error) {
	if options == nil {
		options = NewOptions()
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"tile_width":   options.TileWidth,
		"tile_height":  options.TileHeight,
		"frame_width":  options.FrameWidth,
		"frame_height": options.FrameHeight,
		"hysteresis":   options.Hysteresis,
	}).Info("Creating tiled encoder")

	partitioner, err := tiling.NewPartitioner(options.TileWidth, options.TileHeight)
	if err != nil {
		return nil, err
	}

	e := &TiledEncoder{
		options:     *options,
		sink:        sink,
		partitioner: partitioner,
		detector:    motion.NewDetectorWithThresholds(options.PixelThreshold, options.MotionRatio),
		selector:    codec.NewSelector(options.Hysteresis),
	}
	e.openPool(options.TileWidth, options.TileHeight)
	return e, nil
}

func (e *TiledEncoder) openPool(tileWidth, tileHeight int) {
	e.pool = codec.NewPool(tileWidth, tileHeight,
		e.options.HighCompression, e.options.LowLatency, e.options.SessionFactory)
	e.tileBuf = make([]byte, tileWidth*tileHeight*video.BytesPerPixel)
	e.img = video.NewI420(tileWidth, tileHeight)
}

// ProcessFrame tiles, classifies and encodes one frame, handing every tile
// to the sink before returning. The frame is not retained.
//
// A malformed frame is rejected with ErrInvalidFrame before any tile is
// emitted and does not become the motion reference.
func (e *TiledEncoder) ProcessFrame(frame *video.VideoFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := frame.Validate(); err != nil {
		e.stats.FramesRejected++
		logrus.WithFields(logrus.Fields{
			"function": "TiledEncoder.ProcessFrame",
			"error":    err.Error(),
		}).Warn("Rejecting malformed frame")
		return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}

	start := time.Now()
	if frame.Width != e.options.FrameWidth || frame.Height != e.options.FrameHeight {
		logrus.WithFields(logrus.Fields{
			"function":        "TiledEncoder.ProcessFrame",
			"frame_width":     frame.Width,
			"frame_height":    frame.Height,
			"expected_width":  e.options.FrameWidth,
			"expected_height": e.options.FrameHeight,
		}).Debug("Frame size differs from configured size")
	}

	regions, err := e.partitioner.Partition(frame.Width, frame.Height)
	if err != nil {
		e.stats.FramesRejected++
		return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}

	tileWidth, tileHeight := e.partitioner.TileSize()
	for _, region := range regions {
		tile, err := e.encodeRegion(frame, region, tileWidth, tileHeight)
		if err != nil {
			// Unreachable for a validated frame; the reference frame is
			// left untouched so the next frame is still compared to N-1.
			return err
		}
		e.sink(tile)
	}

	e.detector.UpdatePreviousFrame(frame)

	e.stats.FramesProcessed++
	e.stats.LastFrameDuration = time.Since(start)

	logrus.WithFields(logrus.Fields{
		"function":  "TiledEncoder.ProcessFrame",
		"tiles":     len(regions),
		"timestamp": frame.TimestampUs,
		"duration":  e.stats.LastFrameDuration.String(),
	}).Debug("Frame processed")
	return nil
}

func (e *TiledEncoder) encodeRegion(frame *video.VideoFrame, region tiling.Region, tileWidth, tileHeight int) (*EncodedTile, error) {
	hasMotion := e.detector.HasMotionInFrame(frame, region.X, region.Y, region.Width, region.Height)
	selected := e.selector.Select(region, hasMotion)

	err := video.ExtractTileInto(e.tileBuf, frame, region.X, region.Y, region.Width, region.Height, tileWidth, tileHeight)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", region, err)
	}
	if err := video.BGRAToI420Into(e.img, e.tileBuf, tileWidth, tileHeight, tileWidth*video.BytesPerPixel); err != nil {
		return nil, fmt.Errorf("converting %s: %w", region, err)
	}

	payload := e.pool.Encode(selected, e.img)

	tile := &EncodedTile{
		Sequence:    e.nextSeq,
		X:           region.X,
		Y:           region.Y,
		Width:       region.Width,
		Height:      region.Height,
		Codec:       selected,
		HasMotion:   hasMotion,
		Payload:     payload,
		TimestampUs: frame.TimestampUs,
	}
	e.stats.LastSequence = e.nextSeq
	e.nextSeq++

	e.stats.TilesEmitted++
	e.stats.TilesByCodec[selected]++
	if hasMotion {
		e.stats.MotionTiles++
	}
	if len(payload) == 0 {
		e.stats.EmptyPayloads++
	}
	e.stats.PayloadBytes += uint64(len(payload))
	return tile, nil
}

// SetTileSize changes the tile size. Both encoder sessions are destroyed
// and recreated at the new size and per-position codec history is cleared.
// The motion reference is kept; sequence ids continue.
func (e *TiledEncoder) SetTileSize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := video.ValidateTileSize(width, height); err != nil {
		return err
	}
	partitioner, err := tiling.NewPartitioner(width, height)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "TiledEncoder.SetTileSize",
		"old_width":  e.options.TileWidth,
		"old_height": e.options.TileHeight,
		"new_width":  width,
		"new_height": height,
	}).Info("Recreating encoder sessions for new tile size")

	if err := e.pool.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "TiledEncoder.SetTileSize",
			"error":    err.Error(),
		}).Warn("Error closing previous encoder sessions")
	}

	e.partitioner = partitioner
	e.options.TileWidth = width
	e.options.TileHeight = height
	e.selector.Reset()
	e.openPool(width, height)
	return nil
}

// TileSize returns the current tile size.
func (e *TiledEncoder) TileSize() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.partitioner.TileSize()
}

// CodecStatus returns nil if codec c can encode, or the reason it cannot.
func (e *TiledEncoder) CodecStatus(c codec.Codec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Status(c)
}

// CodecStats returns the encoder pool counters of codec c.
func (e *TiledEncoder) CodecStats(c codec.Codec) codec.PathStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Stats(c)
}

// Stats returns a snapshot of the pipeline counters.
func (e *TiledEncoder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close releases both encoder sessions. It is safe to call more than once.
func (e *TiledEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	logrus.WithFields(logrus.Fields{
		"function":         "TiledEncoder.Close",
		"frames_processed": e.stats.FramesProcessed,
		"tiles_emitted":    e.stats.TilesEmitted,
	}).Info("Closing tiled encoder")

	return e.pool.Close()
}
