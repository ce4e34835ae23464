package rtp

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/opd-ai/tilecast"
	"github.com/opd-ai/tilecast/av/codec"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Statistics counts the packets and tiles seen by a depacketizer.
type Statistics struct {
	PacketsReceived uint64
	PacketsLost     uint64 // inferred from RTP sequence gaps
	TilesCompleted  uint64
	TilesDiscarded  uint64 // tiles missing at least one packet
	Bytes           uint64
}

type assembly struct {
	desc    descriptor
	codec   codec.Codec
	nextSeq uint16
	tsUs    int64
	payload []byte
}

// TileDepacketizer reassembles tiles from the packets of one RTP stream.
// The first SSRC seen is accepted; packets of other sources are rejected.
type TileDepacketizer struct {
	mu         sync.Mutex
	ssrc       uint32
	hasSSRC    bool
	lastSeq    uint16
	hasLastSeq bool
	current    *assembly
	droppedSeq uint32
	hasDropped bool
	stats      Statistics
}

// NewTileDepacketizer creates an empty depacketizer.
func NewTileDepacketizer() *TileDepacketizer {
	return &TileDepacketizer{}
}

// Push parses one RTP packet. It returns a tile when the packet completes
// one and nil otherwise.
func (d *TileDepacketizer) Push(raw []byte) (*tilecast.EncodedTile, error) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	return d.PushPacket(pkt)
}

// PushPacket is Push for an already parsed packet.
func (d *TileDepacketizer) PushPacket(pkt *rtp.Packet) (*tilecast.EncodedTile, error) {
	c, err := CodecForPayloadType(pkt.PayloadType)
	if err != nil {
		return nil, err
	}
	ext := pkt.GetExtension(DescriptorExtensionID)
	if ext == nil {
		return nil, ErrMissingDescriptor
	}
	desc, err := parseDescriptor(ext)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasSSRC {
		d.ssrc = pkt.SSRC
		d.hasSSRC = true
		logrus.WithFields(logrus.Fields{
			"function": "TileDepacketizer.PushPacket",
			"ssrc":     pkt.SSRC,
		}).Info("Accepted new SSRC for stream")
	} else if pkt.SSRC != d.ssrc {
		return nil, fmt.Errorf("expected %d, got %d: %w", d.ssrc, pkt.SSRC, ErrUnexpectedSSRC)
	}

	d.stats.PacketsReceived++
	d.stats.Bytes += uint64(len(pkt.Payload))
	if d.hasLastSeq {
		if gap := pkt.SequenceNumber - d.lastSeq - 1; gap != 0 && gap < 1<<15 {
			d.stats.PacketsLost += uint64(gap)
			logrus.WithFields(logrus.Fields{
				"function":          "TileDepacketizer.PushPacket",
				"expected_sequence": d.lastSeq + 1,
				"received_sequence": pkt.SequenceNumber,
			}).Debug("Sequence gap detected in RTP stream")
		}
	}
	d.lastSeq = pkt.SequenceNumber
	d.hasLastSeq = true

	if desc.flags&flagFirst != 0 {
		d.discard("superseded")
		d.current = &assembly{desc: desc, codec: c, nextSeq: pkt.SequenceNumber, tsUs: captureTime(pkt)}
	}

	cur := d.current
	if cur == nil || cur.desc.sequence != desc.sequence || cur.nextSeq != pkt.SequenceNumber {
		d.discard("missing packet")
		d.drop(desc.sequence)
		return nil, nil
	}
	cur.payload = append(cur.payload, pkt.Payload...)
	cur.nextSeq++

	if !pkt.Marker {
		return nil, nil
	}
	d.current = nil
	d.stats.TilesCompleted++

	tile := &tilecast.EncodedTile{
		Sequence:    cur.desc.sequence,
		X:           int(cur.desc.x),
		Y:           int(cur.desc.y),
		Width:       int(cur.desc.width),
		Height:      int(cur.desc.height),
		Codec:       cur.codec,
		HasMotion:   cur.desc.flags&flagMotion != 0,
		Payload:     cur.payload,
		TimestampUs: cur.tsUs,
	}
	return tile, nil
}

// captureTime prefers the microsecond extension and falls back to the
// 90 kHz RTP timestamp, which wraps after about 13.25 hours.
func captureTime(pkt *rtp.Packet) int64 {
	if ext := pkt.GetExtension(TimestampExtensionID); len(ext) >= timestampSize {
		return int64(binary.BigEndian.Uint64(ext))
	}
	return int64(pkt.Timestamp) * 1_000_000 / ClockRate
}

func (d *TileDepacketizer) discard(reason string) {
	if d.current == nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "TileDepacketizer.discard",
		"tile":     d.current.desc.sequence,
		"reason":   reason,
	}).Debug("Discarding incomplete tile")
	d.drop(d.current.desc.sequence)
	d.current = nil
}

// drop counts a lost tile once, however many of its packets arrive.
func (d *TileDepacketizer) drop(sequence uint32) {
	if d.hasDropped && d.droppedSeq == sequence {
		return
	}
	d.droppedSeq = sequence
	d.hasDropped = true
	d.stats.TilesDiscarded++
}

// Stats returns the depacketizer counters.
func (d *TileDepacketizer) Stats() Statistics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
