package rtp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/opd-ai/tilecast"
	"github.com/sirupsen/logrus"
)

// SenderStats counts what a Sender wrote.
type SenderStats struct {
	TilesSent   uint64
	PacketsSent uint64
	BytesSent   uint64
	SendErrors  uint64
}

// Sender packetizes tiles and writes them to one UDP peer.
type Sender struct {
	mu         sync.Mutex
	packetizer *TilePacketizer
	conn       net.PacketConn
	remoteAddr net.Addr
	ownsConn   bool
	stats      SenderStats
}

// NewSender writes packets through conn to remoteAddr.
func NewSender(conn net.PacketConn, remoteAddr net.Addr, mtu int) (*Sender, error) {
	if conn == nil {
		return nil, fmt.Errorf("connection cannot be nil")
	}
	if remoteAddr == nil {
		return nil, fmt.Errorf("remote address cannot be nil")
	}
	packetizer, err := NewTilePacketizer(mtu)
	if err != nil {
		return nil, err
	}
	return &Sender{packetizer: packetizer, conn: conn, remoteAddr: remoteAddr}, nil
}

// DialUDP opens an ephemeral local socket and returns a Sender to addr.
func DialUDP(addr string, mtu int) (*Sender, error) {
	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", addr, err)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("opening local socket: %w", err)
	}
	s, err := NewSender(conn, remote, mtu)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.ownsConn = true

	logrus.WithFields(logrus.Fields{
		"function":    "DialUDP",
		"remote_addr": remote.String(),
		"local_addr":  conn.LocalAddr().String(),
		"ssrc":        s.packetizer.SSRC(),
	}).Info("RTP sender ready")
	return s, nil
}

// Send packetizes tile and writes every packet.
func (s *Sender) Send(tile *tilecast.EncodedTile) error {
	packets, err := s.packetizer.Packetize(tile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			s.stats.SendErrors++
			return fmt.Errorf("failed to marshal RTP packet: %w", err)
		}
		if _, err := s.conn.WriteTo(raw, s.remoteAddr); err != nil {
			s.stats.SendErrors++
			return fmt.Errorf("failed to send RTP packet: %w", err)
		}
		s.stats.PacketsSent++
		s.stats.BytesSent += uint64(len(raw))
	}
	s.stats.TilesSent++
	return nil
}

// Sink adapts Send to tilecast.Sink; failures are logged.
func (s *Sender) Sink(tile *tilecast.EncodedTile) {
	if err := s.Send(tile); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Sender.Sink",
			"tile":     tile.Sequence,
			"error":    err.Error(),
		}).Warn("Failed to send tile over RTP")
	}
}

// Stats returns the sender counters.
func (s *Sender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close closes the socket if the Sender opened it.
func (s *Sender) Close() error {
	if s.ownsConn {
		return s.conn.Close()
	}
	return nil
}

// Receive reads packets from conn until ctx is done or conn fails and
// hands every completed tile to handler. Malformed packets are logged and
// skipped.
func Receive(ctx context.Context, conn net.PacketConn, d *TileDepacketizer, handler tilecast.Sink) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("reading RTP packet: %w", err)
		}
		tile, err := d.Push(append([]byte(nil), buf[:n]...))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Receive",
				"error":    err.Error(),
			}).Warn("Dropping RTP packet")
			continue
		}
		if tile != nil {
			handler(tile)
		}
	}
}
