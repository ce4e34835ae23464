package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/opd-ai/tilecast/av/video"
	"github.com/sirupsen/logrus"
)

// DecodeSession is one live decoder instance.
//
// Decode returns nil without error when the decoder needs more input
// before it can produce a picture.
type DecodeSession interface {
	Decode(payload []byte) (*video.I420, error)
	Close() error
}

// DecodeSessionFactory creates a decoder for a codec.
type DecodeSessionFactory func(c Codec) (DecodeSession, error)

// Decoder is the receive-side counterpart of Pool: one persistent decoder
// per codec.
type Decoder struct {
	mu       sync.Mutex
	sessions [codecCount]DecodeSession
	initErrs [codecCount]error
}

// NewDecoder creates both decoders. A decoder that fails to initialize is
// logged and its codec reported through Decode errors.
func NewDecoder(factory DecodeSessionFactory) *Decoder {
	if factory == nil {
		factory = NewFFmpegDecodeSession
	}
	d := &Decoder{}
	for _, c := range Codecs {
		s, err := factory(c)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewDecoder",
				"codec":    c.String(),
				"error":    err.Error(),
			}).Error("Failed to initialize decoder")
			d.initErrs[c] = err
			continue
		}
		d.sessions[c] = s
	}
	return d
}

// Decode decodes one tile payload with the decoder of codec c. Empty
// payloads decode to nothing.
func (d *Decoder) Decode(c Codec, payload []byte) (*video.I420, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%s: %w", c, ErrUnknownCodec)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.sessions[c]
	if s == nil {
		return nil, fmt.Errorf("%s decoder: %w: %v", c, ErrCodecDisabled, d.initErrs[c])
	}
	return s.Decode(payload)
}

// Close releases both decoders.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for i, s := range d.sessions {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		d.sessions[i] = nil
	}
	return errors.Join(errs...)
}

// ffmpegDecodeSession decodes payloads with an FFmpeg decoder.
type ffmpegDecodeSession struct {
	codec Codec
	ctx   *astiav.CodecContext
	frame *astiav.Frame
	pkt   *astiav.Packet
}

// NewFFmpegDecodeSession opens the FFmpeg VP9 or H.264 decoder.
func NewFFmpegDecodeSession(c Codec) (DecodeSession, error) {
	ffmpegLogOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelError)
	})

	var id astiav.CodecID
	switch c {
	case HighCompression:
		id = astiav.CodecIDVp9
	case LowLatency:
		id = astiav.CodecIDH264
	default:
		return nil, fmt.Errorf("%s: %w", c, ErrUnknownCodec)
	}

	dec := astiav.FindDecoder(id)
	if dec == nil {
		return nil, fmt.Errorf("%s decoder: %w", c, ErrEncoderNotFound)
	}
	s := &ffmpegDecodeSession{codec: c}
	if s.ctx = astiav.AllocCodecContext(dec); s.ctx == nil {
		return nil, fmt.Errorf("allocating %s decoder context: %w", c, ErrCodecDisabled)
	}
	if err := s.ctx.Open(dec, nil); err != nil {
		s.Close()
		return nil, fmt.Errorf("opening %s decoder: %w", c, err)
	}
	s.frame = astiav.AllocFrame()
	s.pkt = astiav.AllocPacket()
	return s, nil
}

// Decode implements DecodeSession.
func (s *ffmpegDecodeSession) Decode(payload []byte) (*video.I420, error) {
	if err := s.pkt.FromData(payload); err != nil {
		return nil, fmt.Errorf("wrapping %s payload: %w", s.codec, err)
	}
	defer s.pkt.Unref()

	if err := s.ctx.SendPacket(s.pkt); err != nil {
		return nil, fmt.Errorf("sending %s payload: %w", s.codec, err)
	}
	if err := s.ctx.ReceiveFrame(s.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		return nil, fmt.Errorf("receiving %s picture: %w", s.codec, err)
	}
	defer s.frame.Unref()

	if s.frame.PixelFormat() != astiav.PixelFormatYuv420P {
		return nil, fmt.Errorf("%s decoder produced %s, want yuv420p: %w",
			s.codec, s.frame.PixelFormat(), ErrInvalidConfig)
	}
	data, err := s.frame.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("copying %s picture: %w", s.codec, err)
	}
	return video.I420FromPacked(data, s.frame.Width(), s.frame.Height())
}

// Close implements DecodeSession.
func (s *ffmpegDecodeSession) Close() error {
	if s.pkt != nil {
		s.pkt.Free()
		s.pkt = nil
	}
	if s.frame != nil {
		s.frame.Free()
		s.frame = nil
	}
	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}
