package tilecast

import (
	"time"

	"github.com/opd-ai/tilecast/av/codec"
)

// Stats summarizes the activity of a TiledEncoder.
type Stats struct {
	FramesProcessed uint64
	FramesRejected  uint64
	TilesEmitted    uint64
	MotionTiles     uint64

	// TilesByCodec counts emitted tiles per codec, indexed by codec.Codec.
	TilesByCodec [2]uint64

	EmptyPayloads uint64
	PayloadBytes  uint64

	LastSequence      uint32
	LastFrameDuration time.Duration
}

// Tiles returns the number of tiles emitted with codec c.
func (s Stats) Tiles(c codec.Codec) uint64 {
	if !c.Valid() {
		return 0
	}
	return s.TilesByCodec[c]
}
