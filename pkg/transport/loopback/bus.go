// Package loopback provides an in-memory Transport. Payloads published are
// recorded and delivered synchronously to local subscribers.
package loopback

import (
	"context"
	"io"
	"sync"

	"github.com/robotalks/edgenode/pkg/transport"
)

// Published is a recorded publish.
type Published struct {
	Topic   string
	Payload []byte
}

// Bus implements transport.Transport in memory.
type Bus struct {
	// ConnectErr, when set, is returned by Connect.
	ConnectErr error
	// PublishErr, when set, is returned by Publish.
	PublishErr error

	lock       sync.Mutex
	connected  bool
	closed     bool
	connects   int
	subs       map[string][]*subscription
	published  []Published
	advertised []string
	announced  map[string][]byte
}

type subscription struct {
	bus     *Bus
	topic   string
	handler transport.Handler
}

// New creates a Bus.
func New() *Bus {
	return &Bus{
		subs:      make(map[string][]*subscription),
		announced: make(map[string][]byte),
	}
}

// Connect implements Transport.
func (b *Bus) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.connects++
	if b.closed {
		return transport.ErrClosed
	}
	if b.ConnectErr != nil {
		return b.ConnectErr
	}
	b.connected = true
	return nil
}

// Publish implements Transport.
func (b *Bus) Publish(topic string, payload []byte) error {
	b.lock.Lock()
	if !b.connected {
		b.lock.Unlock()
		return transport.ErrNotConnected
	}
	if err := b.PublishErr; err != nil {
		b.lock.Unlock()
		return err
	}
	data := append([]byte(nil), payload...)
	b.published = append(b.published, Published{Topic: topic, Payload: data})
	b.lock.Unlock()
	b.deliver(topic, data)
	return nil
}

// Subscribe implements Transport.
func (b *Bus) Subscribe(topic string, h transport.Handler) (io.Closer, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.connected {
		return nil, transport.ErrNotConnected
	}
	sub := &subscription{bus: b, topic: topic, handler: h}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub, nil
}

// Advertise implements Transport.
func (b *Bus) Advertise(topic string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.connected {
		return transport.ErrNotConnected
	}
	b.advertised = append(b.advertised, topic)
	return nil
}

// Announce implements Transport.
func (b *Bus) Announce(name string, meta []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.connected {
		return transport.ErrNotConnected
	}
	b.announced[name] = append([]byte(nil), meta...)
	return nil
}

// Close implements Transport.
func (b *Bus) Close() error {
	b.lock.Lock()
	b.connected, b.closed = false, true
	b.lock.Unlock()
	return nil
}

// Inject delivers a payload to local subscribers as if it came from a peer.
func (b *Bus) Inject(topic string, payload []byte) {
	b.deliver(topic, append([]byte(nil), payload...))
}

// Published returns all recorded publishes.
func (b *Bus) Published() []Published {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Published(nil), b.published...)
}

// Advertised returns advertised topics in order.
func (b *Bus) Advertised() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.advertised...)
}

// Announced returns the metadata announced for a node name.
func (b *Bus) Announced(name string) ([]byte, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	meta, ok := b.announced[name]
	return meta, ok
}

// Connects returns the number of Connect calls.
func (b *Bus) Connects() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.connects
}

// Subscribers returns the number of subscriptions on topic.
func (b *Bus) Subscribers(topic string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) deliver(topic string, payload []byte) {
	b.lock.Lock()
	subs := append([]*subscription(nil), b.subs[topic]...)
	b.lock.Unlock()
	for _, sub := range subs {
		sub.handler(topic, payload)
	}
}

// Close unsubscribes.
func (s *subscription) Close() error {
	b := s.bus
	b.lock.Lock()
	defer b.lock.Unlock()
	lst := b.subs[s.topic]
	for i, sub := range lst {
		if sub == s {
			b.subs[s.topic] = append(lst[:i], lst[i+1:]...)
			break
		}
	}
	if len(b.subs[s.topic]) == 0 {
		delete(b.subs, s.topic)
	}
	return nil
}
