package wire

import (
	"sync"

	"github.com/google/uuid"
	"github.com/opd-ai/tilecast"
)

// Batcher collects the tiles of one frame and turns them into a Frame.
//
// Its Sink is handed to tilecast.New; after ProcessFrame returns, Flush
// yields the batch for that frame.
type Batcher struct {
	mu       sync.Mutex
	streamID string
	nextID   uint64
	width    uint32
	height   uint32
	tiles    []Tile
}

// NewBatcher creates a batcher with a random stream id.
func NewBatcher() *Batcher {
	return NewBatcherWithStreamID(uuid.NewString())
}

// NewBatcherWithStreamID creates a batcher with a fixed stream id.
func NewBatcherWithStreamID(streamID string) *Batcher {
	return &Batcher{streamID: streamID}
}

// StreamID returns the id stamped on every frame.
func (b *Batcher) StreamID() string {
	return b.streamID
}

// Sink implements tilecast.Sink.
func (b *Batcher) Sink(tile *tilecast.EncodedTile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tiles = append(b.tiles, TileFromEncoded(tile))
}

// Flush returns the collected tiles as a frame of the given size and
// starts a new batch. It returns nil when no tile was collected.
func (b *Batcher) Flush(width, height int, timestampUs int64) *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.tiles) == 0 {
		return nil
	}
	f := &Frame{
		FrameID:   b.nextID,
		Width:     uint32(width),
		Height:    uint32(height),
		StreamID:  b.streamID,
		Tiles:     b.tiles,
		TileCount: uint32(len(b.tiles)),
		Timestamp: timestampUs,
	}
	b.nextID++
	b.tiles = nil
	return f
}
