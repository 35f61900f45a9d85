package rmw

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// DefaultMaxMessageSize is the default send/receive buffer size in bytes.
// It equals the data limit of a single serial frame.
const DefaultMaxMessageSize = 127

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// MaxMessageSize sizes the send buffer.
	MaxMessageSize int
}

// Publisher sends messages of one schema on one topic.
type Publisher struct {
	node      *Node
	schemaID  string
	topic     string
	buf       []byte
	published uint64
}

// NewPublisher creates a publisher and advertises its topic.
func (n *Node) NewPublisher(schemaID, topic string, opts *PublisherOptions) (*Publisher, error) {
	if _, err := msgs.LookupSchema(schemaID); err != nil {
		return nil, &Error{Op: OpPublisherInit, Err: err}
	}
	fqtn, err := ResolveTopic(n.namespace, topic)
	if err != nil {
		return nil, &Error{Op: OpPublisherInit, Err: err}
	}
	size := DefaultMaxMessageSize
	if opts != nil && opts.MaxMessageSize > 0 {
		size = opts.MaxMessageSize
	}
	alloc := n.support.Allocator
	if err := alloc.Reserve(KindPublisher); err != nil {
		return nil, &Error{Op: OpPublisherInit, Err: err}
	}
	p := &Publisher{
		node:     n,
		schemaID: schemaID,
		topic:    fqtn,
		buf:      make([]byte, 0, size),
	}
	if err := n.support.Transport.Advertise(TransportTopic(fqtn)); err != nil {
		alloc.Release(KindPublisher)
		return nil, &Error{Op: OpPublisherInit, Err: err}
	}
	glog.V(2).Infof("PUB %s [%s]", fqtn, schemaID)
	return p, nil
}

// Topic gets the fully qualified topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// SchemaID gets the schema.
func (p *Publisher) SchemaID() string {
	return p.schemaID
}

// Published returns the number of successful publishes.
func (p *Publisher) Published() uint64 {
	return p.published
}

// Publish encodes msg into the send buffer and hands it to the transport.
// It doesn't wait for acknowledgment.
func (p *Publisher) Publish(msg fx.Message) error {
	s, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return &Error{Op: OpPublish, Err: msgs.ErrNotSerializable}
	}
	if s.SchemaID() != p.schemaID {
		return &Error{Op: OpPublish, Err: msgs.ErrSchemaMismatch}
	}
	data, err := msgs.Encode(s)
	if err != nil {
		return &Error{Op: OpPublish, Err: err}
	}
	if len(data) > cap(p.buf) {
		return &Error{Op: OpPublish, Err: &msgs.OverflowError{Capacity: cap(p.buf), Len: len(data)}}
	}
	p.buf = append(p.buf[:0], data...)
	if err := p.node.support.Transport.Publish(TransportTopic(p.topic), p.buf); err != nil {
		return &Error{Op: OpPublish, Err: err}
	}
	p.published++
	return nil
}
