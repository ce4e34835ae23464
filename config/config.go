// Package config loads the tilecast service configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opd-ai/tilecast"
	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/rtp"
	"github.com/opd-ai/tilecast/transport"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Tile            SizeConfig    `yaml:"tile"`
	Frame           FrameConfig   `yaml:"frame"`
	Motion          MotionConfig  `yaml:"motion"`
	HighCompression EncoderConfig `yaml:"high_compression"`
	LowLatency      EncoderConfig `yaml:"low_latency"`
	Server          ServerConfig  `yaml:"server"`
	RTP             RTPConfig     `yaml:"rtp"`
	Log             LogConfig     `yaml:"log"`
}

// SizeConfig is a width and height in pixels.
type SizeConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// FrameConfig describes the capture source.
type FrameConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"` // capture rate of the frame source
}

// MotionConfig tunes motion classification and codec switching.
type MotionConfig struct {
	PixelThreshold int     `yaml:"pixel_threshold"` // per-pixel |dR|+|dG|+|dB|, 0..765
	Ratio          float64 `yaml:"ratio"`           // changed pixel fraction
	Hysteresis     int     `yaml:"hysteresis"`      // 0 or 1 disables it
}

// EncoderConfig holds the settings of one codec path.
type EncoderConfig struct {
	BitRate          int               `yaml:"bitrate"`
	FrameRate        int               `yaml:"frame_rate"`
	KeyframeInterval int               `yaml:"keyframe_interval"`
	ErrorResilient   bool              `yaml:"error_resilient"`
	Realtime         bool              `yaml:"realtime"`
	IntraRefresh     bool              `yaml:"intra_refresh"`
	Preset           string            `yaml:"preset,omitempty"`
	Tune             string            `yaml:"tune,omitempty"`
	Profile          string            `yaml:"profile,omitempty"`
	Options          map[string]string `yaml:"options,omitempty"`
}

// ServerConfig configures the WebSocket endpoint.
type ServerConfig struct {
	Listen      string `yaml:"listen"`
	Path        string `yaml:"path"`
	QueueSize   int    `yaml:"queue_size"`
	Compression bool   `yaml:"compression"` // zstd-compress frame messages
}

// RTPConfig configures the optional RTP output. An empty Destination
// disables it.
type RTPConfig struct {
	Destination string `yaml:"destination"`
	MTU         int    `yaml:"mtu"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used for absent keys.
func Default() *Config {
	opts := tilecast.NewOptions()
	return &Config{
		Tile:            SizeConfig{Width: opts.TileWidth, Height: opts.TileHeight},
		Frame:           FrameConfig{Width: opts.FrameWidth, Height: opts.FrameHeight, FPS: 30},
		Motion:          MotionConfig{PixelThreshold: opts.PixelThreshold, Ratio: opts.MotionRatio},
		HighCompression: fromSessionConfig(opts.HighCompression),
		LowLatency:      fromSessionConfig(opts.LowLatency),
		Server: ServerConfig{
			Listen:    ":8080",
			Path:      "/stream",
			QueueSize: transport.DefaultQueueSize,
		},
		RTP: RTPConfig{MTU: rtp.DefaultMTU},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func fromSessionConfig(c codec.SessionConfig) EncoderConfig {
	return EncoderConfig{
		BitRate:          c.BitRate,
		FrameRate:        c.FrameRate,
		KeyframeInterval: c.KeyframeInterval,
		ErrorResilient:   c.ErrorResilient,
		Realtime:         c.Realtime,
		IntraRefresh:     c.IntraRefresh,
		Preset:           c.Preset,
		Tune:             c.Tune,
		Profile:          c.Profile,
		Options:          c.Options,
	}
}

func (e EncoderConfig) sessionConfig() codec.SessionConfig {
	return codec.SessionConfig{
		FrameRate:        e.FrameRate,
		BitRate:          e.BitRate,
		KeyframeInterval: e.KeyframeInterval,
		ErrorResilient:   e.ErrorResilient,
		Realtime:         e.Realtime,
		IntraRefresh:     e.IntraRefresh,
		Preset:           e.Preset,
		Tune:             e.Tune,
		Profile:          e.Profile,
		Options:          e.Options,
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Options().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Frame.FPS <= 0 {
		return fmt.Errorf("%w: frame fps %d", ErrInvalidConfig, c.Frame.FPS)
	}
	for name, e := range map[string]EncoderConfig{"high_compression": c.HighCompression, "low_latency": c.LowLatency} {
		s := e.sessionConfig()
		s.Width, s.Height = c.Tile.Width, c.Tile.Height
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server listen address is empty", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("%w: server path %q must start with /", ErrInvalidConfig, c.Server.Path)
	}
	if c.RTP.Destination != "" && c.RTP.MTU <= 0 {
		return fmt.Errorf("%w: rtp mtu %d", ErrInvalidConfig, c.RTP.MTU)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// Options converts the pipeline settings to tilecast.Options.
func (c *Config) Options() *tilecast.Options {
	opts := tilecast.NewOptions()
	opts.TileWidth = c.Tile.Width
	opts.TileHeight = c.Tile.Height
	opts.FrameWidth = c.Frame.Width
	opts.FrameHeight = c.Frame.Height
	opts.HighCompression = c.HighCompression.sessionConfig()
	opts.LowLatency = c.LowLatency.sessionConfig()
	opts.Hysteresis = c.Motion.Hysteresis
	opts.PixelThreshold = c.Motion.PixelThreshold
	opts.MotionRatio = c.Motion.Ratio
	return opts
}

// ApplyLogging configures the standard logrus logger.
func (c *Config) ApplyLogging() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if c.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
