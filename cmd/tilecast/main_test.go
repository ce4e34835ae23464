package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/opd-ai/tilecast/av/codec"
	"github.com/opd-ai/tilecast/av/codec/codectest"
	"github.com/opd-ai/tilecast/av/video"
	"github.com/opd-ai/tilecast/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func testConfig(t *testing.T, compression bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Frame.Width, cfg.Frame.Height = 256, 256
	cfg.Server.Compression = compression
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig(&cliConfig{listen: ":9999", logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = loadConfig(&cliConfig{logLevel: "chatty"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSyntheticSource(t *testing.T) {
	src := newSyntheticSource(320, 240)
	a := src.Next(0)
	b := src.Next(33_333)

	require.NoError(t, a.Validate())
	assert.Equal(t, int64(33_333), b.TimestampUs)
	assert.NotEqual(t, a.Data, b.Data, "consecutive frames differ")
	// The lower right corner is background in both frames.
	off := a.PixelOffset(319, 239)
	assert.Equal(t, a.Data[off:off+4], b.Data[off:off+4])
}

func TestSyntheticSource_Frames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frames := newSyntheticSource(64, 64).frames(ctx, 100)

	select {
	case f := <-frames:
		assert.Equal(t, 64, f.Width)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame delivered")
	}
	cancel()
	for range frames {
	}
}

func TestStreamer_BroadcastsFrames(t *testing.T) {
	for _, compression := range []bool{false, true} {
		name := "plain"
		if compression {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			f := &codectest.Factory{}
			s, err := newStreamer(testConfig(t, compression), f.New)
			require.NoError(t, err)
			t.Cleanup(s.close)

			server := httptest.NewServer(s.broadcaster)
			t.Cleanup(server.Close)
			ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ws.Close() })
			require.Eventually(t, func() bool { return s.broadcaster.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

			frame := video.NewVideoFrame(256, 256, 500)
			frame.Fill(0, 0, 256, 256, 90, 90, 90, 255)
			require.NoError(t, s.handleFrame(frame))
			require.NoError(t, s.handleFrame(frame))

			for i, want := range []codec.Codec{codec.LowLatency, codec.HighCompression} {
				require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
				_, msg, err := ws.ReadMessage()
				require.NoError(t, err)

				got, err := s.compressor.UnmarshalFrame(msg)
				require.NoError(t, err)
				assert.Equal(t, uint64(i), got.FrameID)
				assert.Equal(t, uint32(256), got.Width)
				assert.Equal(t, uint32(4), got.TileCount)
				assert.Equal(t, s.batcher.StreamID(), got.StreamID)
				require.Len(t, got.Tiles, 4)
				for _, tile := range got.Tiles {
					assert.Equal(t, want, tile.Codec)
					assert.NotEmpty(t, tile.Data)
				}
			}
		})
	}
}

func TestStreamer_RejectsMalformedFrame(t *testing.T) {
	f := &codectest.Factory{}
	s, err := newStreamer(testConfig(t, false), f.New)
	require.NoError(t, err)
	t.Cleanup(s.close)

	err = s.handleFrame(&video.VideoFrame{Width: 0})
	assert.Error(t, err)
	assert.Nil(t, s.batcher.Flush(0, 0, 0))
}


func TestSchemaPath(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{name: "default_path", stream: "/stream", want: "/stream/schema"},
		{name: "trailing_slash", stream: "/stream/", want: "/stream/schema"},
		{name: "root", stream: "/", want: "/schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schemaPath(tt.stream))
		})
	}
}

func TestSchemaHandler(t *testing.T) {
	srv := httptest.NewServer(schemaHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var set descriptorpb.FileDescriptorSet
	require.NoError(t, proto.Unmarshal(body, &set))
	require.Len(t, set.GetFile(), 1)
	assert.Equal(t, "tilecast.wire", set.GetFile()[0].GetPackage())
}
