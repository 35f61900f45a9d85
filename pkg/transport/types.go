// Package transport defines the link between a node and the messaging
// fabric. Implementations carry opaque envelope bytes per topic.
package transport

import (
	"context"
	"errors"
	"io"
)

// Handler is the callback when a payload is received on a topic.
// It may be invoked from any goroutine.
type Handler func(topic string, payload []byte)

// Transport moves envelope bytes between a node and the fabric.
type Transport interface {
	// Connect brings the session up. It fails if the agent is unreachable.
	Connect(ctx context.Context) error
	// Publish sends payload on topic without waiting for acknowledgment.
	Publish(topic string, payload []byte) error
	// Subscribe registers h for payloads on topic.
	Subscribe(topic string, h Handler) (io.Closer, error)
	// Advertise declares a topic the node will publish on.
	Advertise(topic string) error
	// Announce publishes the node presence with its metadata.
	Announce(name string, meta []byte) error
	// Close releases the transport.
	Close() error
}

var (
	// ErrNotConnected indicates the transport session is down.
	ErrNotConnected = errors.New("transport not connected")
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)
