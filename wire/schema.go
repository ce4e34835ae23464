package wire

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

var (
	schemaOnce sync.Once
	schemaFile protoreflect.FileDescriptor
	schemaErr  error
)

// FileDescriptor returns the descriptor of tilecast.proto.
func FileDescriptor() (protoreflect.FileDescriptor, error) {
	schemaOnce.Do(func() {
		schemaFile, schemaErr = protodesc.NewFile(schemaProto(), nil)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("building wire schema: %w", schemaErr)
		}
	})
	return schemaFile, schemaErr
}

// DescriptorSet returns tilecast.proto as a serialized FileDescriptorSet,
// the form protoc emits with --descriptor_set_out. Viewers load it to
// decode frames without generated code.
func DescriptorSet() ([]byte, error) {
	fd, err := FileDescriptor()
	if err != nil {
		return nil, err
	}
	set := &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{protodesc.ToFileDescriptorProto(fd)},
	}
	return proto.Marshal(set)
}

// schemaProto mirrors tilecast.proto. Frame and Tile encode against it
// field for field.
func schemaProto() *descriptorpb.FileDescriptorProto {
	scalar := func(name string, num protowire.Number, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(int32(num)),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   typ.Enum(),
		}
	}
	typed := func(f *descriptorpb.FieldDescriptorProto, typeName string) *descriptorpb.FieldDescriptorProto {
		f.TypeName = proto.String(typeName)
		return f
	}

	tiles := typed(scalar("tiles", frameFieldTiles, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE), ".tilecast.wire.Tile")
	tiles.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("tilecast.proto"),
		Package: proto.String("tilecast.wire"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{GoPackage: proto.String("github.com/opd-ai/tilecast/wire")},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Codec"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("HIGH_COMPRESSION"), Number: proto.Int32(0)},
				{Name: proto.String("LOW_LATENCY"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Frame"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalar("frame_id", frameFieldID, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
					scalar("width", frameFieldWidth, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("height", frameFieldHeight, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("stream_id", frameFieldStreamID, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					tiles,
					scalar("tile_count", frameFieldTileCount, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("timestamp", frameFieldTimestamp, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				},
			},
			{
				Name: proto.String("Tile"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalar("tile_id", tileFieldID, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("x", tileFieldX, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("y", tileFieldY, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("width", tileFieldWidth, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("height", tileFieldHeight, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					typed(scalar("codec", tileFieldCodec, descriptorpb.FieldDescriptorProto_TYPE_ENUM), ".tilecast.wire.Codec"),
					scalar("has_motion", tileFieldHasMotion, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					scalar("data", tileFieldData, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					scalar("size", tileFieldSize, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
					scalar("timestamp", tileFieldTimestamp, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				},
			},
		},
	}
}
