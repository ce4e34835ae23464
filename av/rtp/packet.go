package rtp

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/opd-ai/tilecast"
	"github.com/opd-ai/tilecast/av/codec"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

const (
	// PayloadTypeLowLatency is the dynamic payload type of H.264 tiles.
	PayloadTypeLowLatency uint8 = 96
	// PayloadTypeHighCompression is the dynamic payload type of VP9 tiles.
	PayloadTypeHighCompression uint8 = 98

	// ClockRate is the RTP timestamp rate used for video.
	ClockRate = 90000

	// DefaultMTU leaves room for IP and UDP headers on common paths.
	DefaultMTU = 1200

	// DescriptorExtensionID is the header extension id of the tile
	// descriptor.
	DescriptorExtensionID uint8 = 1
	// TimestampExtensionID is the header extension id of the exact
	// capture time in microseconds.
	TimestampExtensionID uint8 = 2

	descriptorSize = 13
	timestampSize  = 8
	minPayloadRoom = 64
)

const (
	flagMotion byte = 1 << iota
	flagFirst
)

var (
	// ErrMTUTooSmall is returned when the MTU leaves no room for payload.
	ErrMTUTooSmall = errors.New("mtu too small")
	// ErrUnknownPayloadType is returned for packets of another stream.
	ErrUnknownPayloadType = errors.New("unknown rtp payload type")
	// ErrMissingDescriptor is returned for packets without a tile
	// descriptor extension.
	ErrMissingDescriptor = errors.New("missing tile descriptor")
	// ErrUnexpectedSSRC is returned for packets from a second source.
	ErrUnexpectedSSRC = errors.New("unexpected ssrc")
	// ErrTileOutOfRange is returned for tiles whose geometry does not fit
	// the 16-bit descriptor fields.
	ErrTileOutOfRange = errors.New("tile geometry out of descriptor range")
)

// PayloadType returns the RTP payload type of codec c.
func PayloadType(c codec.Codec) (uint8, error) {
	switch c {
	case codec.LowLatency:
		return PayloadTypeLowLatency, nil
	case codec.HighCompression:
		return PayloadTypeHighCompression, nil
	}
	return 0, fmt.Errorf("%s: %w", c, codec.ErrUnknownCodec)
}

// CodecForPayloadType is the inverse of PayloadType.
func CodecForPayloadType(pt uint8) (codec.Codec, error) {
	switch pt {
	case PayloadTypeLowLatency:
		return codec.LowLatency, nil
	case PayloadTypeHighCompression:
		return codec.HighCompression, nil
	}
	return 0, fmt.Errorf("payload type %d: %w", pt, ErrUnknownPayloadType)
}

type descriptor struct {
	sequence uint32
	x, y     uint16
	width    uint16
	height   uint16
	flags    byte
}

func (d descriptor) marshal() []byte {
	b := make([]byte, descriptorSize)
	binary.BigEndian.PutUint32(b[0:], d.sequence)
	binary.BigEndian.PutUint16(b[4:], d.x)
	binary.BigEndian.PutUint16(b[6:], d.y)
	binary.BigEndian.PutUint16(b[8:], d.width)
	binary.BigEndian.PutUint16(b[10:], d.height)
	b[12] = d.flags
	return b
}

func parseDescriptor(b []byte) (descriptor, error) {
	if len(b) < descriptorSize {
		return descriptor{}, fmt.Errorf("descriptor of %d bytes: %w", len(b), ErrMissingDescriptor)
	}
	return descriptor{
		sequence: binary.BigEndian.Uint32(b[0:]),
		x:        binary.BigEndian.Uint16(b[4:]),
		y:        binary.BigEndian.Uint16(b[6:]),
		width:    binary.BigEndian.Uint16(b[8:]),
		height:   binary.BigEndian.Uint16(b[10:]),
		flags:    b[12],
	}, nil
}

// TilePacketizer turns encoded tiles into RTP packets of one stream.
type TilePacketizer struct {
	mu             sync.Mutex
	ssrc           uint32
	sequenceNumber uint16
	mtu            int
}

// NewTilePacketizer creates a packetizer with a random SSRC. Packets,
// header and extension included, never exceed mtu bytes.
func NewTilePacketizer(mtu int) (*TilePacketizer, error) {
	if mtu < rtpHeaderOverhead()+minPayloadRoom {
		return nil, fmt.Errorf("mtu %d: %w", mtu, ErrMTUTooSmall)
	}

	ssrcBytes := make([]byte, 4)
	if _, err := rand.Read(ssrcBytes); err != nil {
		return nil, fmt.Errorf("failed to generate SSRC: %w", err)
	}
	ssrc := binary.BigEndian.Uint32(ssrcBytes)

	logrus.WithFields(logrus.Fields{
		"function": "NewTilePacketizer",
		"ssrc":     ssrc,
		"mtu":      mtu,
	}).Info("Tile packetizer created")

	return &TilePacketizer{ssrc: ssrc, mtu: mtu}, nil
}

// SSRC returns the stream's synchronization source.
func (p *TilePacketizer) SSRC() uint32 {
	return p.ssrc
}

func rtpHeaderOverhead() int {
	h := rtp.Header{Version: 2}
	_ = h.SetExtension(DescriptorExtensionID, make([]byte, descriptorSize))
	_ = h.SetExtension(TimestampExtensionID, make([]byte, timestampSize))
	return h.MarshalSize()
}

func fitsDescriptor(v int) bool {
	return v >= 0 && v <= math.MaxUint16
}

// Packetize splits tile into packets. A tile without payload becomes one
// packet with an empty payload so the receiver still sees its sequence id.
func (p *TilePacketizer) Packetize(tile *tilecast.EncodedTile) ([]*rtp.Packet, error) {
	pt, err := PayloadType(tile.Codec)
	if err != nil {
		return nil, err
	}
	if !fitsDescriptor(tile.X) || !fitsDescriptor(tile.Y) || !fitsDescriptor(tile.Width) || !fitsDescriptor(tile.Height) {
		return nil, fmt.Errorf("tile %d %dx%d at (%d,%d): %w",
			tile.Sequence, tile.Width, tile.Height, tile.X, tile.Y, ErrTileOutOfRange)
	}
	if tile.Codec == codec.LowLatency && logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"function":  "TilePacketizer.Packetize",
			"tile":      tile.Sequence,
			"nal_types": codec.NALTypes(tile.Payload),
		}).Debug("Low-latency tile NAL units")
	}

	desc := descriptor{
		sequence: tile.Sequence,
		x:        uint16(tile.X),
		y:        uint16(tile.Y),
		width:    uint16(tile.Width),
		height:   uint16(tile.Height),
	}
	if tile.HasMotion {
		desc.flags |= flagMotion
	}

	room := p.mtu - rtpHeaderOverhead()
	count := max(1, (len(tile.Payload)+room-1)/room)
	timestamp := uint32(tile.TimestampUs * ClockRate / 1_000_000)
	exactTime := make([]byte, timestampSize)
	binary.BigEndian.PutUint64(exactTime, uint64(tile.TimestampUs))

	p.mu.Lock()
	defer p.mu.Unlock()

	packets := make([]*rtp.Packet, 0, count)
	for i := 0; i < count; i++ {
		start := i * room
		end := min(start+room, len(tile.Payload))

		d := desc
		if i == 0 {
			d.flags |= flagFirst
		}
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == count-1,
				PayloadType:    pt,
				SequenceNumber: p.sequenceNumber,
				Timestamp:      timestamp,
				SSRC:           p.ssrc,
			},
			Payload: tile.Payload[start:end],
		}
		if err := pkt.Header.SetExtension(DescriptorExtensionID, d.marshal()); err != nil {
			return nil, fmt.Errorf("setting tile descriptor: %w", err)
		}
		if err := pkt.Header.SetExtension(TimestampExtensionID, exactTime); err != nil {
			return nil, fmt.Errorf("setting capture time: %w", err)
		}
		packets = append(packets, pkt)
		p.sequenceNumber++
	}

	logrus.WithFields(logrus.Fields{
		"function": "TilePacketizer.Packetize",
		"tile":     tile.Sequence,
		"packets":  len(packets),
		"bytes":    len(tile.Payload),
	}).Debug("Tile packetized")
	return packets, nil
}
