package rtp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/opd-ai/tilecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSender_ReceiveOverLoopback(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	sender, err := DialUDP(listener.LocalAddr().String(), 400)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sender.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *tilecast.EncodedTile, 8)
	done := make(chan error, 1)
	go func() {
		done <- Receive(ctx, listener, NewTileDepacketizer(), func(tile *tilecast.EncodedTile) {
			received <- tile
		})
	}()

	want := testTile(3, 1500)
	sender.Sink(want)

	select {
	case got := <-received:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("tile not received")
	}

	stats := sender.Stats()
	assert.Equal(t, uint64(1), stats.TilesSent)
	assert.Greater(t, stats.PacketsSent, uint64(1))
	assert.Zero(t, stats.SendErrors)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not stop")
	}
}

func TestNewSender_Validation(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = NewSender(nil, conn.LocalAddr(), DefaultMTU)
	assert.Error(t, err)
	_, err = NewSender(conn, nil, DefaultMTU)
	assert.Error(t, err)
	_, err = NewSender(conn, conn.LocalAddr(), 10)
	assert.ErrorIs(t, err, ErrMTUTooSmall)

	s, err := NewSender(conn, conn.LocalAddr(), DefaultMTU)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
