package msgs

import (
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"

	fx "github.com/robotalks/edgenode/pkg/framework"
)

// Schema identifiers.
const (
	StringSchema = "std_msgs/msg/String"
	BoolSchema   = "std_msgs/msg/Bool"
	Int32Schema  = "std_msgs/msg/Int32"
)

// String is a text message.
type String struct {
	wrappers.StringValue
}

// NewString creates a String with data.
func NewString(data string) *String {
	return &String{StringValue: wrappers.StringValue{Value: data}}
}

// NewMessage implements Message.
func (m *String) NewMessage() fx.Message { return &String{} }

// SchemaID implements SerializableMessage.
func (m *String) SchemaID() string { return StringSchema }

// Serializable implements SerializableMessage.
func (m *String) Serializable() proto.Message { return &m.StringValue }

// Bool is a boolean message.
type Bool struct {
	wrappers.BoolValue
}

// NewBool creates a Bool with data.
func NewBool(data bool) *Bool {
	return &Bool{BoolValue: wrappers.BoolValue{Value: data}}
}

// NewMessage implements Message.
func (m *Bool) NewMessage() fx.Message { return &Bool{} }

// SchemaID implements SerializableMessage.
func (m *Bool) SchemaID() string { return BoolSchema }

// Serializable implements SerializableMessage.
func (m *Bool) Serializable() proto.Message { return &m.BoolValue }

// Int32 is a 32-bit integer message.
type Int32 struct {
	wrappers.Int32Value
}

// NewInt32 creates an Int32 with data.
func NewInt32(data int32) *Int32 {
	return &Int32{Int32Value: wrappers.Int32Value{Value: data}}
}

// NewMessage implements Message.
func (m *Int32) NewMessage() fx.Message { return &Int32{} }

// SchemaID implements SerializableMessage.
func (m *Int32) SchemaID() string { return Int32Schema }

// Serializable implements SerializableMessage.
func (m *Int32) Serializable() proto.Message { return &m.Int32Value }
