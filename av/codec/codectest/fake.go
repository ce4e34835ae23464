// Package codectest provides in-memory codec sessions for tests that must
// not depend on the FFmpeg libraries.
//
// Fake payloads carry the session's tile size and the mean Y, U and V of
// the encoded image. Low-latency payloads are framed as one Annex-B IDR
// NAL unit; high-compression payloads start with the byte 'V'. A fake
// decoder turns a payload back into a flat image of those means.
package codectest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/video"
)

// ErrInjected is returned by sessions configured to fail.
var ErrInjected = errors.New("injected codec failure")

var annexBIDRPrefix = []byte{0, 0, 0, 1, 0x65}

// Factory creates fake sessions and records every session it created.
type Factory struct {
	mu sync.Mutex

	// FailInit makes session creation fail for the listed codecs.
	FailInit map[codec.Codec]bool
	// EmptyEvery makes every n-th Encode call of a session return no
	// payload. Zero disables it.
	EmptyEvery int

	Sessions []*Session
}

// New returns the codec.SessionFactory backed by f.
func (f *Factory) New(c codec.Codec, cfg codec.SessionConfig) (codec.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailInit[c] {
		return nil, fmt.Errorf("%s: %w", c, ErrInjected)
	}
	s := &Session{codec: c, config: cfg, emptyEvery: f.EmptyEvery}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

// Live returns the sessions that have not been closed.
func (f *Factory) Live() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	var live []*Session
	for _, s := range f.Sessions {
		if !s.Closed() {
			live = append(live, s)
		}
	}
	return live
}

// Session is a fake codec.Session.
type Session struct {
	mu         sync.Mutex
	codec      codec.Codec
	config     codec.SessionConfig
	emptyEvery int
	calls      int
	closed     bool
}

// Codec implements codec.Session.
func (s *Session) Codec() codec.Codec {
	return s.codec
}

// Config returns the configuration the session was created with.
func (s *Session) Config() codec.SessionConfig {
	return s.config
}

// Calls returns how many times Encode was called.
func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Encode implements codec.Session.
func (s *Session) Encode(img *video.I420) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("encode after close: %w", ErrInjected)
	}
	if img.Width != s.config.Width || img.Height != s.config.Height {
		return nil, codec.ErrSizeMismatch
	}
	s.calls++
	if s.emptyEvery > 0 && s.calls%s.emptyEvery == 0 {
		return nil, nil
	}

	body := make([]byte, 7)
	binary.BigEndian.PutUint16(body[0:], uint16(img.Width))
	binary.BigEndian.PutUint16(body[2:], uint16(img.Height))
	body[4] = mean(img.Y)
	body[5] = mean(img.U)
	body[6] = mean(img.V)

	if s.codec == codec.LowLatency {
		return append(append([]byte(nil), annexBIDRPrefix...), body...), nil
	}
	return append([]byte{'V'}, body...), nil
}

// Close implements codec.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func mean(plane []byte) byte {
	if len(plane) == 0 {
		return 0
	}
	sum := 0
	for _, v := range plane {
		sum += int(v)
	}
	return byte((sum + len(plane)/2) / len(plane))
}

// DecodeSession is a fake codec.DecodeSession for fake payloads.
type DecodeSession struct {
	codec codec.Codec
}

// NewDecodeSession implements codec.DecodeSessionFactory.
func NewDecodeSession(c codec.Codec) (codec.DecodeSession, error) {
	return &DecodeSession{codec: c}, nil
}

// Decode implements codec.DecodeSession.
func (d *DecodeSession) Decode(payload []byte) (*video.I420, error) {
	var body []byte
	switch d.codec {
	case codec.LowLatency:
		if len(payload) != len(annexBIDRPrefix)+7 || !codec.HasStartCode(payload) {
			return nil, fmt.Errorf("malformed low-latency payload: %w", ErrInjected)
		}
		body = payload[len(annexBIDRPrefix):]
	default:
		if len(payload) != 8 || payload[0] != 'V' {
			return nil, fmt.Errorf("malformed high-compression payload: %w", ErrInjected)
		}
		body = payload[1:]
	}

	w := int(binary.BigEndian.Uint16(body[0:]))
	h := int(binary.BigEndian.Uint16(body[2:]))
	img := video.NewI420(w, h)
	fill(img.Y, body[4])
	fill(img.U, body[5])
	fill(img.V, body[6])
	return img, nil
}

// Close implements codec.DecodeSession.
func (d *DecodeSession) Close() error {
	return nil
}

func fill(plane []byte, v byte) {
	for i := range plane {
		plane[i] = v
	}
}
