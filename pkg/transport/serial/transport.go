package serial

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/edgenode/pkg/transport"
)

// DefaultConnectTimeout is the default time Connect waits for the first
// synchronization.
const DefaultConnectTimeout = 2 * time.Second

// Transport implements transport.Transport over a FIFO. Topics are bound to
// stream ids by declarations which are replayed on every resync.
type Transport struct {
	FIFO           *FIFO
	ConnectTimeout time.Duration

	lock      sync.Mutex
	ready     bool
	readyCh   chan struct{}
	closed    bool
	cancel    context.CancelFunc
	runErrCh  chan error
	announce  []*Frame
	decls     []Declaration
	nextID    byte
	published map[string]byte
	handlers  map[byte]*streamSub
}

type streamSub struct {
	transport *Transport
	stream    byte
	topic     string
	handler   transport.Handler
}

// NewTransport creates a Transport on a byte channel.
func NewTransport(ch io.ReadWriter) *Transport {
	t := &Transport{
		FIFO:           NewFIFO(ch),
		ConnectTimeout: DefaultConnectTimeout,
		readyCh:        make(chan struct{}, 1),
		nextID:         1,
		published:      make(map[string]byte),
		handlers:       make(map[byte]*streamSub),
	}
	t.FIFO.OnState = t.stateChanged
	t.FIFO.OnFrame = t.frameReceived
	return t
}

// Connect starts the FIFO and waits for the first synchronization.
func (t *Transport) Connect(ctx context.Context) error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return transport.ErrClosed
	}
	if t.cancel == nil {
		runCtx, cancel := context.WithCancel(context.Background())
		t.cancel, t.runErrCh = cancel, make(chan error, 1)
		go func() {
			t.runErrCh <- t.FIFO.Run(runCtx)
		}()
	}
	ready := t.ready
	t.lock.Unlock()
	if ready {
		return nil
	}

	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	select {
	case <-t.readyCh:
		return nil
	case err := <-t.runErrCh:
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	case <-time.After(timeout):
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements Transport.
func (t *Transport) Publish(topic string, payload []byte) error {
	t.lock.Lock()
	stream, ok := t.published[topic]
	t.lock.Unlock()
	if !ok {
		var err error
		if stream, err = t.declare(OpAdvertise, topic); err != nil {
			return err
		}
	}
	if err := t.FIFO.Send(DataFrame(stream, payload)); err != nil {
		if err == ErrNotReady {
			return transport.ErrNotConnected
		}
		return err
	}
	return nil
}

// Subscribe implements Transport.
func (t *Transport) Subscribe(topic string, h transport.Handler) (io.Closer, error) {
	stream, err := t.declare(OpSubscribe, topic)
	if err != nil {
		return nil, err
	}
	sub := &streamSub{transport: t, stream: stream, topic: topic, handler: h}
	t.lock.Lock()
	t.handlers[stream] = sub
	t.lock.Unlock()
	return sub, nil
}

// Advertise implements Transport.
func (t *Transport) Advertise(topic string) error {
	t.lock.Lock()
	_, ok := t.published[topic]
	t.lock.Unlock()
	if ok {
		return nil
	}
	_, err := t.declare(OpAdvertise, topic)
	return err
}

// Announce implements Transport.
func (t *Transport) Announce(name string, meta []byte) error {
	frames, err := AnnounceFrames(name, meta)
	if err != nil {
		return err
	}
	t.lock.Lock()
	t.announce = frames
	t.lock.Unlock()
	return t.sendAll(frames)
}

// Close stops the FIFO and closes the channel when it is a Closer.
func (t *Transport) Close() error {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.closed, t.ready = true, false
	cancel := t.cancel
	t.lock.Unlock()
	if cancel != nil {
		cancel()
	}
	if c, ok := t.FIFO.Channel.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Transport) declare(op byte, topic string) (byte, error) {
	t.lock.Lock()
	if t.nextID > MaxStreamID {
		t.lock.Unlock()
		return 0, ErrNoStreams
	}
	d := Declaration{Op: op, Stream: t.nextID, Topic: topic}
	frame, err := d.Frame()
	if err != nil {
		t.lock.Unlock()
		return 0, err
	}
	t.nextID++
	t.decls = append(t.decls, d)
	if op == OpAdvertise {
		t.published[topic] = d.Stream
	}
	t.lock.Unlock()
	glog.V(2).Infof("stream %d bound to %q", d.Stream, topic)
	return d.Stream, t.send(frame)
}

// send delivers a control frame now when possible. While the channel is
// syncing it's delivered by the replay after resync.
func (t *Transport) send(frame *Frame) error {
	err := t.FIFO.Send(frame)
	if err == ErrNotReady {
		return nil
	}
	return err
}

func (t *Transport) sendAll(frames []*Frame) error {
	for _, frame := range frames {
		if err := t.send(frame); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) replay() error {
	t.lock.Lock()
	frames := make([]*Frame, 0, len(t.announce)+len(t.decls))
	for _, f := range t.announce {
		frames = append(frames, &Frame{Code: f.Code, Data: f.Data})
	}
	for _, d := range t.decls {
		if f, err := d.Frame(); err == nil {
			frames = append(frames, f)
		}
	}
	t.lock.Unlock()
	return t.sendAll(frames)
}

func (t *Transport) stateChanged(ctx context.Context, state SyncState) {
	ready := state.IsReady()
	t.lock.Lock()
	wasReady := t.ready
	t.ready = ready
	t.lock.Unlock()
	switch {
	case wasReady && !ready:
		glog.Warning("serial channel lost sync")
		return
	case wasReady || !ready:
		return
	}
	glog.Info("serial channel synchronized")
	if err := t.replay(); err != nil {
		glog.Warningf("replay declarations error: %v", err)
	}
	select {
	case t.readyCh <- struct{}{}:
	default:
	}
}

func (t *Transport) frameReceived(ctx context.Context, frame *Frame) {
	if frame.IsControl() {
		glog.V(4).Infof("ignore control frame %s", frame)
		return
	}
	t.lock.Lock()
	sub := t.handlers[frame.Nibble()]
	t.lock.Unlock()
	if sub == nil {
		glog.V(2).Infof("drop frame for unbound stream %d", frame.Nibble())
		return
	}
	sub.handler(sub.topic, frame.Data)
}

// Close unbinds the handler. The stream id stays reserved.
func (s *streamSub) Close() error {
	t := s.transport
	t.lock.Lock()
	if t.handlers[s.stream] == s {
		delete(t.handlers, s.stream)
	}
	t.lock.Unlock()
	return nil
}
