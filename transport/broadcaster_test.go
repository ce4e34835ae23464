package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialViewer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestBroadcaster_DeliversToAllViewers(t *testing.T) {
	b := NewBroadcaster(4)
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = b.Close() })

	viewers := []*websocket.Conn{dialViewer(t, server), dialViewer(t, server)}
	require.Eventually(t, func() bool { return b.ClientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	n, err := b.Broadcast([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, ws := range viewers {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		typ, msg, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, typ)
		assert.Equal(t, []byte{1, 2, 3}, msg)
	}

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Messages)
	assert.Equal(t, uint64(2), stats.Delivered)
}

func TestBroadcaster_ViewerDisconnect(t *testing.T) {
	b := NewBroadcaster(0)
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = b.Close() })

	ws := dialViewer(t, server)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestBroadcaster_DropsForSlowViewer(t *testing.T) {
	b := NewBroadcaster(1)
	c := b.newClient(nil)
	require.NoError(t, b.register(c))

	n, err := b.Broadcast([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.Broadcast([]byte("b"))
	require.NoError(t, err)
	assert.Zero(t, n)

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, []byte("a"), <-c.send)
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster(1)
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	ws := dialViewer(t, server)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
	assert.Zero(t, b.ClientCount())
	assert.NoError(t, b.Close())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	_, err = b.Broadcast([]byte("late"))
	assert.ErrorIs(t, err, ErrBroadcasterClosed)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, _, err = websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
}
