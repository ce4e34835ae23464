package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/tilecast/av/video"
	"github.com/sirupsen/logrus"
)

// Pool owns one persistent encoder session per codec, both fixed to the
// same tile size.
//
// Encode calls into one codec are serialized; the two codecs share no
// state and may be driven from different goroutines.
type Pool struct {
	width  int
	height int
	paths  [codecCount]*encodePath
}

type encodePath struct {
	mu      sync.Mutex
	codec   Codec
	config  SessionConfig
	session Session
	initErr error
	closed  bool

	frames   uint64
	empty    uint64
	failures uint64
	bytes    uint64
}

// PathStats reports the activity of one codec path.
type PathStats struct {
	Codec    Codec
	Enabled  bool
	Frames   uint64 // Encode calls routed to the path
	Empty    uint64 // calls that produced no payload
	Failures uint64 // calls where the session reported an error
	Bytes    uint64 // total payload bytes
}

// NewPool creates both encoder sessions at the given tile size.
//
// A session that fails to initialize is logged and its path disabled for
// the pool's lifetime; the other path is unaffected. Width and Height of
// the supplied configurations are overwritten with the tile size.
func NewPool(width, height int, high, low SessionConfig, factory SessionFactory) *Pool {
	logrus.WithFields(logrus.Fields{
		"function":    "NewPool",
		"tile_width":  width,
		"tile_height": height,
	}).Info("Creating encoder pool")

	if factory == nil {
		factory = NewFFmpegSession
	}

	p := &Pool{width: width, height: height}
	configs := [codecCount]SessionConfig{HighCompression: high, LowLatency: low}
	for _, c := range Codecs {
		cfg := configs[c]
		cfg.Width = width
		cfg.Height = height
		p.paths[c] = openPath(c, cfg, factory)
	}
	return p
}

func openPath(c Codec, cfg SessionConfig, factory SessionFactory) *encodePath {
	path := &encodePath{codec: c, config: cfg}

	err := cfg.Validate()
	if err == nil {
		path.session, err = factory(c, cfg)
		if err == nil && path.session == nil {
			err = fmt.Errorf("factory returned no session for %s: %w", c, ErrCodecDisabled)
		}
	}
	if err != nil {
		path.initErr = err
		path.session = nil
		logrus.WithFields(logrus.Fields{
			"function": "NewPool",
			"codec":    c.String(),
			"width":    cfg.Width,
			"height":   cfg.Height,
			"error":    err.Error(),
		}).Error("Failed to initialize encoder, codec path disabled")
		return path
	}

	logrus.WithFields(logrus.Fields{
		"function":          "NewPool",
		"codec":             c.String(),
		"bit_rate":          cfg.BitRate,
		"frame_rate":        cfg.FrameRate,
		"keyframe_interval": cfg.KeyframeInterval,
	}).Info("Encoder session initialized")
	return path
}

// TileSize returns the fixed resolution of both sessions.
func (p *Pool) TileSize() (width, height int) {
	return p.width, p.height
}

// Enabled reports whether the codec path has a live session.
func (p *Pool) Enabled(c Codec) bool {
	if !c.Valid() {
		return false
	}
	path := p.paths[c]
	path.mu.Lock()
	defer path.mu.Unlock()
	return path.session != nil && !path.closed
}

// Status returns nil for a live codec path, the initialization error for a
// disabled one, or ErrUnknownCodec.
func (p *Pool) Status(c Codec) error {
	if !c.Valid() {
		return fmt.Errorf("%s: %w", c, ErrUnknownCodec)
	}
	path := p.paths[c]
	path.mu.Lock()
	defer path.mu.Unlock()
	if path.initErr != nil {
		return fmt.Errorf("%s: %w: %w", c, ErrCodecDisabled, path.initErr)
	}
	if path.closed {
		return fmt.Errorf("%s closed: %w", c, ErrCodecDisabled)
	}
	return nil
}

// Encode runs img through the session of codec c and returns its payload.
//
// The payload is empty when the path is disabled, when img does not match
// the tile size, or when the session produced nothing for this call.
// Failures are logged, never returned.
func (p *Pool) Encode(c Codec, img *video.I420) []byte {
	if !c.Valid() {
		logrus.WithFields(logrus.Fields{
			"function": "Pool.Encode",
			"codec":    c.String(),
		}).Warn("Encode requested for unknown codec")
		return nil
	}

	path := p.paths[c]
	path.mu.Lock()
	defer path.mu.Unlock()

	path.frames++
	if path.session == nil || path.closed {
		path.empty++
		return nil
	}
	if img == nil || img.Width != p.width || img.Height != p.height {
		path.empty++
		path.failures++
		logrus.WithFields(logrus.Fields{
			"function":    "Pool.Encode",
			"codec":       c.String(),
			"tile_width":  p.width,
			"tile_height": p.height,
			"error":       ErrSizeMismatch.Error(),
		}).Warn("Image rejected by encoder pool")
		return nil
	}

	payload, err := path.session.Encode(img)
	if err != nil {
		path.empty++
		path.failures++
		logrus.WithFields(logrus.Fields{
			"function": "Pool.Encode",
			"codec":    c.String(),
			"error":    err.Error(),
		}).Warn("Encode produced no data")
		return nil
	}
	if len(payload) == 0 {
		path.empty++
		return nil
	}
	path.bytes += uint64(len(payload))
	return payload
}

// Stats returns the activity counters of a codec path.
func (p *Pool) Stats(c Codec) PathStats {
	if !c.Valid() {
		return PathStats{Codec: c}
	}
	path := p.paths[c]
	path.mu.Lock()
	defer path.mu.Unlock()
	return PathStats{
		Codec:    c,
		Enabled:  path.session != nil && !path.closed,
		Frames:   path.frames,
		Empty:    path.empty,
		Failures: path.failures,
		Bytes:    path.bytes,
	}
}

// Close destroys both sessions. Further Encode calls return empty payloads.
func (p *Pool) Close() error {
	logrus.WithFields(logrus.Fields{
		"function": "Pool.Close",
	}).Info("Closing encoder pool")

	var errs []error
	for _, path := range p.paths {
		path.mu.Lock()
		if path.session != nil && !path.closed {
			if err := path.session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s session: %w", path.codec, err))
			}
		}
		path.closed = true
		path.mu.Unlock()
	}
	return errors.Join(errs...)
}
