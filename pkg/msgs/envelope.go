package msgs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/any"

	fx "github.com/robotalks/edgenode/pkg/framework"
)

// TypeURLPrefix prefixes schema IDs in envelope type URLs.
const TypeURLPrefix = "type.robotalks.io/"

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	fx.Message
	SchemaID() string
	Serializable() proto.Message
}

// Schemas are the known schema IDs mapped to their messages.
var Schemas = map[string]SerializableMessage{
	StringSchema: (*String)(nil),
	BoolSchema:   (*Bool)(nil),
	Int32Schema:  (*Int32)(nil),
}

var (
	// ErrNotSerializable indicates the message is not serializable.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrSchemaMismatch indicates a message doesn't match the expected schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// UnknownSchemaError indicates an unregistered schema ID.
type UnknownSchemaError struct {
	SchemaID string
}

// Error implements error.
func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown schema: %q", e.SchemaID)
}

// LookupSchema finds the registered message for a schema ID.
func LookupSchema(schemaID string) (SerializableMessage, error) {
	msg, ok := Schemas[schemaID]
	if !ok {
		return nil, &UnknownSchemaError{SchemaID: schemaID}
	}
	return msg, nil
}

// Envelope wraps an encoded message with its schema.
type Envelope struct {
	any.Any
}

// EnvelopeFrom creates an Envelope from a serializable message.
func EnvelopeFrom(msg fx.Message) (*Envelope, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Envelope{Any: any.Any{TypeUrl: TypeURLPrefix + s.SchemaID(), Value: data}}, nil
}

// SchemaID extracts the schema ID from the type URL.
func (e *Envelope) SchemaID() string {
	return strings.TrimPrefix(e.TypeUrl, TypeURLPrefix)
}

// Decode decodes the envelope into the actual message.
func (e *Envelope) Decode() (SerializableMessage, error) {
	msgType, err := LookupSchema(e.SchemaID())
	if err != nil {
		return nil, err
	}
	msg := msgType.NewMessage().(SerializableMessage)
	if err := proto.Unmarshal(e.Value, msg.Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the envelope to bytes.
func (e *Envelope) Encode() ([]byte, error) {
	return proto.Marshal(&e.Any)
}

// DecodeEnvelope decodes bytes into an Envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := proto.Unmarshal(data, &env.Any); err != nil {
		return nil, err
	}
	return &env, nil
}

// Encode encodes a message into envelope bytes.
func Encode(msg fx.Message) ([]byte, error) {
	env, err := EnvelopeFrom(msg)
	if err != nil {
		return nil, err
	}
	return env.Encode()
}

// Decode decodes envelope bytes into a message.
func Decode(data []byte) (SerializableMessage, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	return env.Decode()
}

// DecodeAs decodes envelope bytes and requires the given schema.
func DecodeAs(data []byte, schemaID string) (SerializableMessage, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if id := env.SchemaID(); id != schemaID {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrSchemaMismatch, id, schemaID)
	}
	return env.Decode()
}

// Format renders a message for display.
func Format(msg SerializableMessage) string {
	return fmt.Sprintf("[%s] %s", msg.SchemaID(), msg.Serializable().String())
}
