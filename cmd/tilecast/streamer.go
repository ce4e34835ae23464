package main

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/opd-ai/tilecast"
	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/rtp"
	"github.com/opd-ai/tilecast/av/video"
	"github.com/opd-ai/tilecast/config"
	"github.com/opd-ai/tilecast/transport"
	"github.com/opd-ai/tilecast/wire"
	"github.com/sirupsen/logrus"
)

// streamer connects the encoder to its outputs.
type streamer struct {
	encoder     *tilecast.TiledEncoder
	batcher     *wire.Batcher
	compressor  *wire.Compressor // nil when compression is off
	broadcaster *transport.Broadcaster
	rtpSender   *rtp.Sender // nil when RTP is off
}

// newStreamer builds the pipeline described by cfg. A nil factory uses the
// FFmpeg encoders.
func newStreamer(cfg *config.Config, factory codec.SessionFactory) (*streamer, error) {
	s := &streamer{
		batcher:     wire.NewBatcher(),
		broadcaster: transport.NewBroadcaster(cfg.Server.QueueSize),
	}

	if cfg.Server.Compression {
		c, err := wire.NewCompressor(zstd.SpeedFastest)
		if err != nil {
			return nil, err
		}
		s.compressor = c
	}
	if cfg.RTP.Destination != "" {
		sender, err := rtp.DialUDP(cfg.RTP.Destination, cfg.RTP.MTU)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("rtp output: %w", err)
		}
		s.rtpSender = sender
	}

	opts := cfg.Options()
	opts.SessionFactory = factory
	enc, err := tilecast.New(opts, s.sink)
	if err != nil {
		s.close()
		return nil, err
	}
	s.encoder = enc

	for _, c := range codec.Codecs {
		if err := enc.CodecStatus(c); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "newStreamer",
				"codec":    c.String(),
				"error":    err.Error(),
			}).Warn("Codec unavailable, its tiles will carry no payload")
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "newStreamer",
		"stream_id":   s.batcher.StreamID(),
		"compression": s.compressor != nil,
		"rtp":         s.rtpSender != nil,
	}).Info("Streamer ready")
	return s, nil
}

func (s *streamer) sink(tile *tilecast.EncodedTile) {
	s.batcher.Sink(tile)
	if s.rtpSender != nil {
		s.rtpSender.Sink(tile)
	}
}

// handleFrame encodes one frame and broadcasts its batch.
func (s *streamer) handleFrame(frame *video.VideoFrame) error {
	if err := s.encoder.ProcessFrame(frame); err != nil {
		return err
	}
	batch := s.batcher.Flush(frame.Width, frame.Height, frame.TimestampUs)
	if batch == nil {
		return nil
	}
	_, err := s.broadcaster.Broadcast(s.compressor.MarshalFrame(batch))
	return err
}

// run consumes frames until the channel closes or ctx is done.
func (s *streamer) run(ctx context.Context, frames <-chan *video.VideoFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := s.handleFrame(frame); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "streamer.run",
					"error":    err.Error(),
				}).Warn("Frame not streamed")
			}
		}
	}
}

func (s *streamer) close() {
	if s.encoder != nil {
		stats := s.encoder.Stats()
		logrus.WithFields(logrus.Fields{
			"function":       "streamer.close",
			"frames":         stats.FramesProcessed,
			"tiles":          stats.TilesEmitted,
			"low_latency":    stats.Tiles(codec.LowLatency),
			"high_compress":  stats.Tiles(codec.HighCompression),
			"empty_payloads": stats.EmptyPayloads,
			"payload_bytes":  stats.PayloadBytes,
		}).Info("Stream finished")
		_ = s.encoder.Close()
	}
	_ = s.broadcaster.Close()
	if s.compressor != nil {
		s.compressor.Close()
	}
	if s.rtpSender != nil {
		_ = s.rtpSender.Close()
	}
}
