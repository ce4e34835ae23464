package wire

import (
	"bytes"
	"testing"

	"github.com/opd-ai/tilecast/av/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestFileDescriptor_FieldNumbers(t *testing.T) {
	fd, err := FileDescriptor()
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName("tilecast.wire"), fd.Package())

	tests := []struct {
		message string
		field   protoreflect.Name
		number  protoreflect.FieldNumber
	}{
		{message: "Frame", field: "frame_id", number: protoreflect.FieldNumber(frameFieldID)},
		{message: "Frame", field: "stream_id", number: protoreflect.FieldNumber(frameFieldStreamID)},
		{message: "Frame", field: "tiles", number: protoreflect.FieldNumber(frameFieldTiles)},
		{message: "Frame", field: "timestamp", number: protoreflect.FieldNumber(frameFieldTimestamp)},
		{message: "Tile", field: "tile_id", number: protoreflect.FieldNumber(tileFieldID)},
		{message: "Tile", field: "codec", number: protoreflect.FieldNumber(tileFieldCodec)},
		{message: "Tile", field: "data", number: protoreflect.FieldNumber(tileFieldData)},
		{message: "Tile", field: "timestamp", number: protoreflect.FieldNumber(tileFieldTimestamp)},
	}

	for _, tt := range tests {
		t.Run(tt.message+"_"+string(tt.field), func(t *testing.T) {
			md := fd.Messages().ByName(protoreflect.Name(tt.message))
			require.NotNil(t, md)
			field := md.Fields().ByName(tt.field)
			require.NotNil(t, field)
			assert.Equal(t, tt.number, field.Number())
		})
	}

	codecs := fd.Enums().ByName("Codec").Values()
	assert.Equal(t, protoreflect.EnumNumber(codec.HighCompression), codecs.ByName("HIGH_COMPRESSION").Number())
	assert.Equal(t, protoreflect.EnumNumber(codec.LowLatency), codecs.ByName("LOW_LATENCY").Number())
}

func TestFrame_MatchesProtoEncoding(t *testing.T) {
	negative := sampleFrame()
	negative.Timestamp = -5
	negative.Tiles[0].Timestamp = -5

	tests := []struct {
		name  string
		frame *Frame
	}{
		{name: "sample_frame", frame: sampleFrame()},
		{name: "empty_frame", frame: &Frame{}},
		{name: "negative_timestamps", frame: negative},
	}

	fd, err := FileDescriptor()
	require.NoError(t, err)
	frameDesc := fd.Messages().ByName("Frame")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ours := tt.frame.Marshal()

			msg := dynamicpb.NewMessage(frameDesc)
			require.NoError(t, proto.Unmarshal(ours, msg))
			fields := frameDesc.Fields()
			assert.Equal(t, tt.frame.FrameID, msg.Get(fields.ByName("frame_id")).Uint())
			assert.Equal(t, tt.frame.StreamID, msg.Get(fields.ByName("stream_id")).String())
			assert.Equal(t, tt.frame.Timestamp, msg.Get(fields.ByName("timestamp")).Int())

			tiles := msg.Get(fields.ByName("tiles")).List()
			require.Equal(t, len(tt.frame.Tiles), tiles.Len())
			tileFields := fd.Messages().ByName("Tile").Fields()
			for i, want := range tt.frame.Tiles {
				got := tiles.Get(i).Message()
				assert.Equal(t, uint64(want.TileID), got.Get(tileFields.ByName("tile_id")).Uint())
				assert.Equal(t, protoreflect.EnumNumber(want.Codec), got.Get(tileFields.ByName("codec")).Enum())
				assert.Equal(t, want.HasMotion, got.Get(tileFields.ByName("has_motion")).Bool())
				assert.True(t, bytes.Equal(want.Data, got.Get(tileFields.ByName("data")).Bytes()))
			}

			theirs, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(ours, theirs), "ours %x, proto %x", ours, theirs)

			var back Frame
			require.NoError(t, back.Unmarshal(theirs))
			assert.Equal(t, *tt.frame, back)
		})
	}
}

func TestDescriptorSet(t *testing.T) {
	raw, err := DescriptorSet()
	require.NoError(t, err)

	var set descriptorpb.FileDescriptorSet
	require.NoError(t, proto.Unmarshal(raw, &set))
	files, err := protodesc.NewFiles(&set)
	require.NoError(t, err)

	desc, err := files.FindDescriptorByName("tilecast.wire.Tile")
	require.NoError(t, err)
	assert.Equal(t, 10, desc.(protoreflect.MessageDescriptor).Fields().Len())
}
