// Package transport delivers marshaled frames to remote viewers.
//
// The Broadcaster is an http.Handler that upgrades viewer requests to
// WebSocket connections and fans every broadcast message out to them as a
// binary message. Each viewer has a bounded queue; when a viewer falls
// behind its messages are dropped so the capture pipeline never blocks.
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024

	// DefaultQueueSize is the number of frames buffered per viewer.
	DefaultQueueSize = 32
)

// ErrBroadcasterClosed is returned by operations on a closed Broadcaster.
var ErrBroadcasterClosed = errors.New("broadcaster is closed")

// BroadcastStats counts broadcaster activity.
type BroadcastStats struct {
	Clients   int
	Messages  uint64 // Broadcast calls
	Delivered uint64 // messages queued to a viewer
	Dropped   uint64 // messages dropped for slow viewers
}

// Broadcaster fans binary messages out to connected WebSocket viewers.
type Broadcaster struct {
	mu        sync.RWMutex
	upgrader  websocket.Upgrader
	clients   map[string]*client
	queueSize int
	closed    bool

	messages  uint64
	delivered uint64
	dropped   uint64
}

type client struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewBroadcaster creates a broadcaster buffering queueSize messages per
// viewer. Values below 1 select DefaultQueueSize.
func NewBroadcaster(queueSize int) *Broadcaster {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewBroadcaster",
		"queue_size": queueSize,
	}).Info("Creating WebSocket broadcaster")

	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[string]*client),
		queueSize: queueSize,
	}
}

func (b *Broadcaster) newClient(ws *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, b.queueSize),
		done: make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and registers the viewer.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		http.Error(w, ErrBroadcasterClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "Broadcaster.ServeHTTP",
			"remote_addr": r.RemoteAddr,
			"error":       err.Error(),
		}).Warn("WebSocket upgrade failed")
		return
	}

	c := b.newClient(ws)
	if err := b.register(c); err != nil {
		_ = ws.Close()
		return
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Broadcaster.ServeHTTP",
		"client_id":   c.id,
		"remote_addr": r.RemoteAddr,
	}).Info("Viewer connected")

	go b.writePump(c)
	go b.readPump(c)
}

func (b *Broadcaster) register(c *client) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBroadcasterClosed
	}
	b.clients[c.id] = c
	return nil
}

func (b *Broadcaster) unregister(c *client) {
	b.mu.Lock()
	_, ok := b.clients[c.id]
	delete(b.clients, c.id)
	b.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
	if ok {
		logrus.WithFields(logrus.Fields{
			"function":  "Broadcaster.unregister",
			"client_id": c.id,
		}).Info("Viewer disconnected")
	}
}

// Broadcast queues msg for every viewer and returns how many accepted it.
// The slice must not be modified afterwards.
func (b *Broadcaster) Broadcast(msg []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBroadcasterClosed
	}
	b.messages++

	queued := 0
	for _, c := range b.clients {
		select {
		case c.send <- msg:
			queued++
			b.delivered++
		default:
			b.dropped++
			logrus.WithFields(logrus.Fields{
				"function":  "Broadcaster.Broadcast",
				"client_id": c.id,
			}).Debug("Viewer queue full, dropping message")
		}
	}
	return queued, nil
}

func (b *Broadcaster) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		b.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":  "Broadcaster.writePump",
					"client_id": c.id,
					"error":     err.Error(),
				}).Debug("Write to viewer failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection's control frames flowing; viewers send
// nothing the broadcaster acts on.
func (b *Broadcaster) readPump(c *client) {
	defer b.unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"function":  "Broadcaster.readPump",
					"client_id": c.id,
					"error":     err.Error(),
				}).Debug("Viewer read error")
			}
			return
		}
	}
}

// ClientCount returns the number of connected viewers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stats returns the broadcaster counters.
func (b *Broadcaster) Stats() BroadcastStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BroadcastStats{
		Clients:   len(b.clients),
		Messages:  b.messages,
		Delivered: b.delivered,
		Dropped:   b.dropped,
	}
}

// Close disconnects every viewer and rejects new ones.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Broadcaster.Close",
		"clients":  len(clients),
	}).Info("Closing broadcaster")

	for _, c := range clients {
		if c.ws != nil {
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
		}
		b.unregister(c)
	}
	return nil
}
