// Package mqtt implements the network transport on an MQTT broker.
//
// Topics map one to one onto broker topics under an optional prefix taken
// from the broker URL path. Node metadata is retained at <node>/meta and
// cleared by the broker's will when the node goes away.
package mqtt

import (
	"context"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/edgenode/pkg/transport"
)

// DefaultConnectTimeout is the default time to wait for the broker.
const DefaultConnectTimeout = 5 * time.Second

// MetaSuffix is appended to a node name to form its metadata topic.
const MetaSuffix = "/meta"

// Transport implements transport.Transport over a Queue.
type Transport struct {
	Queue          *Queue
	ConnectTimeout time.Duration
}

// NewTransport creates a Transport for the broker URL. When nodeName is not
// empty, a will clearing its retained metadata is registered.
func NewTransport(brokerURL, nodeName string) (*Transport, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("edge-" + uuid.New().String()[:8])
	}
	if nodeName != "" {
		opts.SetWill(topicPrefix+nodeName+MetaSuffix, "", 1, true)
	}
	return &Transport{
		Queue:          NewQueue(opts, topicPrefix),
		ConnectTimeout: DefaultConnectTimeout,
	}, nil
}

// Connect implements Transport.
func (t *Transport) Connect(ctx context.Context) error {
	return t.wait(ctx, t.Queue.Connect())
}

// Publish implements Transport. The payload is copied as the caller reuses
// its buffer.
func (t *Transport) Publish(topic string, payload []byte) error {
	if !t.Queue.Client.IsConnected() {
		return transport.ErrNotConnected
	}
	data := append(make([]byte, 0, len(payload)), payload...)
	t.Queue.Pub(topic, data)
	return nil
}

// Subscribe implements Transport.
func (t *Transport) Subscribe(topic string, h transport.Handler) (io.Closer, error) {
	sub := t.Queue.Sub(topic, h)
	if err := t.wait(context.Background(), sub.Token); err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

// Advertise implements Transport. MQTT has no publisher declaration.
func (t *Transport) Advertise(topic string) error {
	glog.V(4).Infof("advertise %q", topic)
	return nil
}

// Announce implements Transport.
func (t *Transport) Announce(name string, meta []byte) error {
	return t.wait(context.Background(), t.Queue.PubWith(name+MetaSuffix, meta, 1, true))
}

// Close implements Transport.
func (t *Transport) Close() error {
	return t.Queue.Close()
}

func (t *Transport) wait(ctx context.Context, token paho.Token) error {
	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	doneCh := make(chan bool, 1)
	go func() {
		doneCh <- token.WaitTimeout(timeout)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ok := <-doneCh:
		if !ok {
			return ErrTimeout
		}
	}
	return token.Error()
}
