// Package wire encodes batches of encoded tiles as protobuf messages.
//
// Messages are written with protowire against this schema:
//
//	message Frame {
//	  uint64 frame_id   = 1;
//	  uint32 width      = 2;
//	  uint32 height     = 3;
//	  string stream_id  = 4;
//	  repeated Tile tiles = 5;
//	  uint32 tile_count = 6;
//	  int64  timestamp  = 7; // capture time, microseconds
//	}
//
//	message Tile {
//	  uint32 tile_id    = 1; // pipeline sequence id
//	  uint32 x          = 2;
//	  uint32 y          = 3;
//	  uint32 width      = 4;
//	  uint32 height     = 5;
//	  Codec  codec      = 6; // 0 HIGH_COMPRESSION, 1 LOW_LATENCY
//	  bool   has_motion = 7;
//	  bytes  data       = 8;
//	  uint32 size       = 9;
//	  int64  timestamp  = 10;
//	}
//
// Unknown fields are skipped on decode so the schema can grow.
//
// tilecast.proto is the schema source. FileDescriptor exposes it at run
// time and DescriptorSet serializes it for viewers that decode with
// reflection instead of generated code. Frame and Tile keep a hand-written
// protowire codec so batching appends into reused buffers; it emits the
// same bytes as a deterministic proto.Marshal of the schema's messages.
package wire

import (
	"errors"
	"fmt"

	"github.com/opd-ai/tilecast"
	"github.com/opd-ai/tilecast/av/codec"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a message cannot be parsed.
var ErrMalformed = errors.New("malformed wire message")

const (
	frameFieldID        protowire.Number = 1
	frameFieldWidth     protowire.Number = 2
	frameFieldHeight    protowire.Number = 3
	frameFieldStreamID  protowire.Number = 4
	frameFieldTiles     protowire.Number = 5
	frameFieldTileCount protowire.Number = 6
	frameFieldTimestamp protowire.Number = 7
)

const (
	tileFieldID        protowire.Number = 1
	tileFieldX         protowire.Number = 2
	tileFieldY         protowire.Number = 3
	tileFieldWidth     protowire.Number = 4
	tileFieldHeight    protowire.Number = 5
	tileFieldCodec     protowire.Number = 6
	tileFieldHasMotion protowire.Number = 7
	tileFieldData      protowire.Number = 8
	tileFieldSize      protowire.Number = 9
	tileFieldTimestamp protowire.Number = 10
)

// Frame is the set of tiles produced for one captured frame.
type Frame struct {
	FrameID   uint64
	Width     uint32
	Height    uint32
	StreamID  string
	Tiles     []Tile
	TileCount uint32
	Timestamp int64
}

// Tile is the wire form of a tilecast.EncodedTile.
type Tile struct {
	TileID    uint32
	X         uint32
	Y         uint32
	Width     uint32
	Height    uint32
	Codec     codec.Codec
	HasMotion bool
	Data      []byte
	Size      uint32
	Timestamp int64
}

// TileFromEncoded converts a pipeline tile. Data aliases the payload.
func TileFromEncoded(t *tilecast.EncodedTile) Tile {
	return Tile{
		TileID:    t.Sequence,
		X:         uint32(t.X),
		Y:         uint32(t.Y),
		Width:     uint32(t.Width),
		Height:    uint32(t.Height),
		Codec:     t.Codec,
		HasMotion: t.HasMotion,
		Data:      t.Payload,
		Size:      uint32(len(t.Payload)),
		Timestamp: t.TimestampUs,
	}
}

// Encoded converts the tile back to pipeline form.
func (t Tile) Encoded() *tilecast.EncodedTile {
	return &tilecast.EncodedTile{
		Sequence:    t.TileID,
		X:           int(t.X),
		Y:           int(t.Y),
		Width:       int(t.Width),
		Height:      int(t.Height),
		Codec:       t.Codec,
		HasMotion:   t.HasMotion,
		Payload:     t.Data,
		TimestampUs: t.Timestamp,
	}
}

// AppendMarshal appends the encoding of f to b.
func (f *Frame) AppendMarshal(b []byte) []byte {
	b = appendVarint(b, frameFieldID, f.FrameID)
	b = appendVarint(b, frameFieldWidth, uint64(f.Width))
	b = appendVarint(b, frameFieldHeight, uint64(f.Height))
	if f.StreamID != "" {
		b = protowire.AppendTag(b, frameFieldStreamID, protowire.BytesType)
		b = protowire.AppendString(b, f.StreamID)
	}
	for i := range f.Tiles {
		b = protowire.AppendTag(b, frameFieldTiles, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Tiles[i].AppendMarshal(nil))
	}
	b = appendVarint(b, frameFieldTileCount, uint64(f.TileCount))
	b = appendVarint(b, frameFieldTimestamp, uint64(f.Timestamp))
	return b
}

// Marshal returns the encoding of f.
func (f *Frame) Marshal() []byte {
	return f.AppendMarshal(nil)
}

// AppendMarshal appends the encoding of t to b.
func (t *Tile) AppendMarshal(b []byte) []byte {
	b = appendVarint(b, tileFieldID, uint64(t.TileID))
	b = appendVarint(b, tileFieldX, uint64(t.X))
	b = appendVarint(b, tileFieldY, uint64(t.Y))
	b = appendVarint(b, tileFieldWidth, uint64(t.Width))
	b = appendVarint(b, tileFieldHeight, uint64(t.Height))
	b = appendVarint(b, tileFieldCodec, uint64(t.Codec))
	b = appendVarint(b, tileFieldHasMotion, protowire.EncodeBool(t.HasMotion))
	if len(t.Data) > 0 {
		b = protowire.AppendTag(b, tileFieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, t.Data)
	}
	b = appendVarint(b, tileFieldSize, uint64(t.Size))
	b = appendVarint(b, tileFieldTimestamp, uint64(t.Timestamp))
	return b
}

// appendVarint writes a varint field, omitting zero values as proto3 does.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Unmarshal parses a Frame. Tile data is copied out of b.
func (f *Frame) Unmarshal(b []byte) error {
	*f = Frame{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("frame tag", n)
		}
		b = b[n:]

		switch {
		case num == frameFieldStreamID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return malformed("stream_id", n)
			}
			f.StreamID = v
			b = b[n:]
		case num == frameFieldTiles && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return malformed("tiles", n)
			}
			var t Tile
			if err := t.Unmarshal(v); err != nil {
				return fmt.Errorf("tile %d: %w", len(f.Tiles), err)
			}
			f.Tiles = append(f.Tiles, t)
			b = b[n:]
		case typ == protowire.VarintType && num >= frameFieldID && num <= frameFieldTimestamp:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return malformed("frame varint", n)
			}
			f.setVarint(num, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed("unknown frame field", n)
			}
			b = b[n:]
		}
	}
	return nil
}

func (f *Frame) setVarint(num protowire.Number, v uint64) {
	switch num {
	case frameFieldID:
		f.FrameID = v
	case frameFieldWidth:
		f.Width = uint32(v)
	case frameFieldHeight:
		f.Height = uint32(v)
	case frameFieldTileCount:
		f.TileCount = uint32(v)
	case frameFieldTimestamp:
		f.Timestamp = int64(v)
	}
}

// Unmarshal parses a Tile. Data is copied out of b.
func (t *Tile) Unmarshal(b []byte) error {
	*t = Tile{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("tile tag", n)
		}
		b = b[n:]

		switch {
		case num == tileFieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return malformed("data", n)
			}
			t.Data = append([]byte(nil), v...)
			b = b[n:]
		case typ == protowire.VarintType && num >= tileFieldID && num <= tileFieldTimestamp:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return malformed("tile varint", n)
			}
			if err := t.setVarint(num, v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed("unknown tile field", n)
			}
			b = b[n:]
		}
	}
	return nil
}

func (t *Tile) setVarint(num protowire.Number, v uint64) error {
	switch num {
	case tileFieldID:
		t.TileID = uint32(v)
	case tileFieldX:
		t.X = uint32(v)
	case tileFieldY:
		t.Y = uint32(v)
	case tileFieldWidth:
		t.Width = uint32(v)
	case tileFieldHeight:
		t.Height = uint32(v)
	case tileFieldCodec:
		c := codec.Codec(v)
		if v > 0xff || !c.Valid() {
			return fmt.Errorf("codec %d: %w", v, codec.ErrUnknownCodec)
		}
		t.Codec = c
	case tileFieldHasMotion:
		t.HasMotion = protowire.DecodeBool(v)
	case tileFieldSize:
		t.Size = uint32(v)
	case tileFieldTimestamp:
		t.Timestamp = int64(v)
	}
	return nil
}

func malformed(what string, n int) error {
	return fmt.Errorf("%s: %w: %w", what, ErrMalformed, protowire.ParseError(n))
}
