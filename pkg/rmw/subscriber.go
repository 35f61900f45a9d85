package rmw

import (
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// SubscriberOptions configures a Subscriber.
type SubscriberOptions struct {
	// Depth is the number of unread messages kept; older ones are dropped.
	Depth int
	// MaxMessageSize sizes each receive buffer slot. Larger payloads are
	// dropped.
	MaxMessageSize int
}

// Subscriber receives messages of one schema on one topic. Payloads are
// queued from transport goroutines and decoded in Take on the executor.
type Subscriber struct {
	node     *Node
	schemaID string
	topic    string
	handler  fx.MessageHandler
	policy   fx.TriggerPolicy
	depth    int
	maxSize  int
	closer   io.Closer

	queue   [][]byte
	dropped uint64
	notify  func()
	lock    sync.Mutex
}

// NewSubscriber creates a subscriber delivering to handler.
func (n *Node) NewSubscriber(schemaID, topic string, handler fx.MessageHandler, policy fx.TriggerPolicy, opts *SubscriberOptions) (*Subscriber, error) {
	if _, err := msgs.LookupSchema(schemaID); err != nil {
		return nil, &Error{Op: OpSubscriptionInit, Err: err}
	}
	fqtn, err := ResolveTopic(n.namespace, topic)
	if err != nil {
		return nil, &Error{Op: OpSubscriptionInit, Err: err}
	}
	s := &Subscriber{
		node:     n,
		schemaID: schemaID,
		topic:    fqtn,
		handler:  handler,
		policy:   policy,
		depth:    1,
		maxSize:  DefaultMaxMessageSize,
	}
	if opts != nil {
		if opts.Depth > 0 {
			s.depth = opts.Depth
		}
		if opts.MaxMessageSize > 0 {
			s.maxSize = opts.MaxMessageSize
		}
	}
	alloc := n.support.Allocator
	if err := alloc.Reserve(KindSubscription); err != nil {
		return nil, &Error{Op: OpSubscriptionInit, Err: err}
	}
	if s.closer, err = n.support.Transport.Subscribe(TransportTopic(fqtn), s.receive); err != nil {
		alloc.Release(KindSubscription)
		return nil, &Error{Op: OpSubscriptionInit, Err: err}
	}
	glog.V(2).Infof("SUB %s [%s]", fqtn, schemaID)
	return s, nil
}

// Topic gets the fully qualified topic.
func (s *Subscriber) Topic() string {
	return s.topic
}

// SchemaID gets the schema.
func (s *Subscriber) SchemaID() string {
	return s.schemaID
}

// Dropped returns the number of payloads dropped for size or overrun.
func (s *Subscriber) Dropped() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dropped
}

// Take implements Readable.
func (s *Subscriber) Take() (fx.Message, bool, error) {
	s.lock.Lock()
	if len(s.queue) == 0 {
		s.lock.Unlock()
		return nil, false, nil
	}
	payload := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.lock.Unlock()

	msg, err := msgs.DecodeAs(payload, s.schemaID)
	if err != nil {
		return nil, false, &Error{Op: OpTake, Err: err}
	}
	return msg, true, nil
}

// Pending implements Readable.
func (s *Subscriber) Pending() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.queue) > 0
}

// MessageHandler implements Readable.
func (s *Subscriber) MessageHandler() fx.MessageHandler {
	return s.handler
}

// TriggerPolicy implements Readable.
func (s *Subscriber) TriggerPolicy() fx.TriggerPolicy {
	return s.policy
}

// SetNotifier implements Readable.
func (s *Subscriber) SetNotifier(fn func()) {
	s.lock.Lock()
	s.notify = fn
	s.lock.Unlock()
}

// Close unsubscribes from the transport.
func (s *Subscriber) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Subscriber) receive(_ string, payload []byte) {
	if len(payload) > s.maxSize {
		s.lock.Lock()
		s.dropped++
		s.lock.Unlock()
		glog.Warningf("%s: drop %d bytes exceeding receive buffer %d", s.topic, len(payload), s.maxSize)
		return
	}
	data := append(make([]byte, 0, len(payload)), payload...)
	s.lock.Lock()
	if len(s.queue) >= s.depth {
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, data)
	notify := s.notify
	s.lock.Unlock()
	if notify != nil {
		notify()
	}
}
