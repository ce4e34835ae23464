package codec

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/opd-ai/tilecast/av/video"
	"github.com/sirupsen/logrus"
)

// FFmpeg encoder names for each codec.
const (
	EncoderVP9  = "libvpx-vp9"
	EncoderH264 = "libx264"
)

// noForcedKeyframes is used as GOP size when keyframe forcing is disabled;
// libvpx maps the GOP size to its maximum keyframe distance.
const noForcedKeyframes = 1 << 30

var ffmpegLogOnce sync.Once

// ffmpegSession is an encoder session backed by an FFmpeg codec context.
type ffmpegSession struct {
	codec  Codec
	config SessionConfig
	ctx    *astiav.CodecContext
	frame  *astiav.Frame
	pkt    *astiav.Packet
	pts    int64
}

// NewFFmpegSession opens an FFmpeg encoder for c: libvpx-vp9 for the
// high-compression codec and libx264 for the low-latency codec.
func NewFFmpegSession(c Codec, cfg SessionConfig) (Session, error) {
	ffmpegLogOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelError)
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	name, options, err := encoderSetup(c, cfg)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewFFmpegSession",
		"codec":    c.String(),
		"encoder":  name,
		"width":    cfg.Width,
		"height":   cfg.Height,
		"bit_rate": cfg.BitRate,
	}).Info("Opening FFmpeg encoder")

	enc := astiav.FindEncoderByName(name)
	if enc == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrEncoderNotFound)
	}

	s := &ffmpegSession{codec: c, config: cfg}
	if s.ctx = astiav.AllocCodecContext(enc); s.ctx == nil {
		return nil, fmt.Errorf("allocating %s context: %w", name, ErrCodecDisabled)
	}
	s.ctx.SetWidth(cfg.Width)
	s.ctx.SetHeight(cfg.Height)
	s.ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
	s.ctx.SetTimeBase(astiav.NewRational(1, cfg.FrameRate))
	s.ctx.SetFramerate(astiav.NewRational(cfg.FrameRate, 1))
	s.ctx.SetBitRate(int64(cfg.BitRate))
	s.ctx.SetMaxBFrames(0)
	if cfg.KeyframeInterval > 0 {
		s.ctx.SetGopSize(cfg.KeyframeInterval)
	} else {
		s.ctx.SetGopSize(noForcedKeyframes)
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	for k, v := range options {
		if err := dict.Set(k, v, astiav.NewDictionaryFlags()); err != nil {
			s.Close()
			return nil, fmt.Errorf("setting %s option %s=%s: %w", name, k, v, err)
		}
	}

	if err := s.ctx.Open(enc, dict); err != nil {
		s.Close()
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	s.frame = astiav.AllocFrame()
	s.frame.SetWidth(cfg.Width)
	s.frame.SetHeight(cfg.Height)
	s.frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := s.frame.AllocBuffer(0); err != nil {
		s.Close()
		return nil, fmt.Errorf("allocating %s picture: %w", name, err)
	}
	s.pkt = astiav.AllocPacket()

	return s, nil
}

// encoderSetup returns the FFmpeg encoder name and private options for a
// codec configuration.
func encoderSetup(c Codec, cfg SessionConfig) (string, map[string]string, error) {
	options := make(map[string]string)
	var name string

	switch c {
	case HighCompression:
		name = EncoderVP9
		options["lag-in-frames"] = "0"
		options["auto-alt-ref"] = "0"
		if cfg.Realtime {
			options["deadline"] = "realtime"
			options["cpu-used"] = "8"
		}
		if cfg.ErrorResilient {
			options["error-resilient"] = "default"
		}
	case LowLatency:
		name = EncoderH264
		if cfg.Preset != "" {
			options["preset"] = cfg.Preset
		}
		if cfg.Tune != "" {
			options["tune"] = cfg.Tune
		}
		if cfg.Profile != "" {
			options["profile"] = cfg.Profile
		}
		options["intra-refresh"] = strconv.FormatBool(cfg.IntraRefresh)
	default:
		return "", nil, fmt.Errorf("%s: %w", c, ErrUnknownCodec)
	}

	for k, v := range cfg.Options {
		options[k] = v
	}
	return name, options, nil
}

// Codec implements Session.
func (s *ffmpegSession) Codec() Codec {
	return s.codec
}

// Encode implements Session.
//
// For the low-latency codec every packet the encoder emits for this call is
// appended in order, forming one Annex-B payload. For the high-compression
// codec the first packet is the payload; with zero lag there is at most one.
func (s *ffmpegSession) Encode(img *video.I420) ([]byte, error) {
	if img.Width != s.config.Width || img.Height != s.config.Height {
		return nil, fmt.Errorf("%dx%d into %dx%d session: %w",
			img.Width, img.Height, s.config.Width, s.config.Height, ErrSizeMismatch)
	}
	if err := s.frame.MakeWritable(); err != nil {
		return nil, fmt.Errorf("making picture writable: %w", err)
	}
	if err := s.frame.Data().SetBytes(img.Packed(), 1); err != nil {
		return nil, fmt.Errorf("copying picture: %w", err)
	}
	s.frame.SetPts(s.pts)
	s.pts++

	if err := s.ctx.SendFrame(s.frame); err != nil {
		return nil, fmt.Errorf("sending picture to %s: %w", s.codec, err)
	}

	var payload []byte
	packets := 0
	for {
		if err := s.ctx.ReceivePacket(s.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				break
			}
			return payload, fmt.Errorf("receiving %s packet: %w", s.codec, err)
		}
		packets++
		if s.codec == LowLatency || packets == 1 {
			payload = append(payload, s.pkt.Data()...)
		}
		s.pkt.Unref()
	}

	if packets > 1 && s.codec == HighCompression {
		logrus.WithFields(logrus.Fields{
			"function": "ffmpegSession.Encode",
			"codec":    s.codec.String(),
			"packets":  packets,
		}).Warn("Encoder emitted extra packets, keeping the first")
	}
	return payload, nil
}

// Close implements Session.
func (s *ffmpegSession) Close() error {
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
