package tilecast

import (
	"fmt"

	"github.com/opd-ai/tilecast/av/codec"
)

// EncodedTile is one encoded tile of one frame.
//
// The sink takes ownership; the encoder never touches a tile again after
// delivering it.
type EncodedTile struct {
	Sequence uint32 // pipeline wide, strictly increasing

	X      int
	Y      int
	Width  int // visible width, at most the tile width
	Height int // visible height, at most the tile height

	Codec     codec.Codec
	HasMotion bool

	// Payload is codec native: Annex-B NAL units for LowLatency, one VP9
	// frame for HighCompression. It is empty when the codec produced no
	// output for this tile.
	Payload []byte

	TimestampUs int64
}

// Empty reports whether the tile carries no payload.
func (t *EncodedTile) Empty() bool {
	return len(t.Payload) == 0
}

func (t *EncodedTile) String() string {
	return fmt.Sprintf("tile #%d %dx%d@(%d,%d) %s %d bytes",
		t.Sequence, t.Width, t.Height, t.X, t.Y, t.Codec, len(t.Payload))
}

// Sink receives encoded tiles in emission order. It runs on the goroutine
// calling ProcessFrame and must not call back into the encoder.
type Sink func(tile *EncodedTile)
