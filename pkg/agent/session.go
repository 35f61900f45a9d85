package agent

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/edgenode/pkg/transport"
	"github.com/robotalks/edgenode/pkg/transport/serial"
)

// Session bridges one node attached over a byte channel.
type Session struct {
	FIFO   *serial.FIFO
	Uplink transport.Transport

	lock      sync.Mutex
	name      string
	meta      []byte
	announced bool
	streams   map[byte]string
	subs      map[byte]io.Closer
	ready     bool
	forwarded uint64
	dropped   uint64
}

// NewSession creates a Session on a node channel.
func NewSession(ch io.ReadWriter, uplink transport.Transport) *Session {
	s := &Session{
		FIFO:    serial.NewFIFO(ch),
		Uplink:  uplink,
		streams: make(map[byte]string),
		subs:    make(map[byte]io.Closer),
	}
	s.FIFO.OnFrame = s.frameReceived
	s.FIFO.OnState = s.stateChanged
	return s
}

// Name gets the announced node name, "" before announcement.
func (s *Session) Name() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.name
}

// Topics returns the topics the node publishes on, by stream id.
func (s *Session) Topics() map[byte]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	topics := make(map[byte]string, len(s.streams))
	for id, topic := range s.streams {
		topics[id] = topic
	}
	return topics
}

// Stats returns the number of data frames forwarded upward and dropped.
func (s *Session) Stats() (forwarded, dropped uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.forwarded, s.dropped
}

// Run serves the node until the channel fails or ctx is done. The node
// presence is withdrawn on return.
func (s *Session) Run(ctx context.Context) error {
	err := s.FIFO.Run(ctx)
	s.lock.Lock()
	name, announced := s.name, s.announced
	s.announced = false
	s.lock.Unlock()
	s.unbind()
	if announced {
		if err := s.Uplink.Announce(name, nil); err != nil {
			glog.Warningf("withdraw %s: %v", name, err)
		}
		glog.Infof("node %s detached", name)
	}
	return err
}

// unbind drops all stream bindings. The node declares them again after
// every resync.
func (s *Session) unbind() {
	s.lock.Lock()
	subs := s.subs
	s.subs = make(map[byte]io.Closer)
	s.streams = make(map[byte]string)
	s.lock.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (s *Session) stateChanged(ctx context.Context, state serial.SyncState) {
	ready := state.IsReady()
	s.lock.Lock()
	wasReady := s.ready
	s.ready = ready
	s.lock.Unlock()
	if wasReady && !ready {
		glog.V(2).Infof("node %q lost sync", s.Name())
		s.unbind()
	}
}

func (s *Session) frameReceived(ctx context.Context, f *serial.Frame) {
	if !f.IsControl() {
		s.forward(f)
		return
	}
	switch op := f.Nibble(); op {
	case serial.OpAnnounce:
		s.lock.Lock()
		s.name, s.meta = string(f.Data), nil
		s.lock.Unlock()
	case serial.OpMeta, serial.OpMetaEnd:
		s.lock.Lock()
		s.meta = append(s.meta, f.Data...)
		name, meta := s.name, s.meta
		if op == serial.OpMetaEnd {
			s.meta = nil
		}
		s.lock.Unlock()
		if op == serial.OpMetaEnd {
			s.announce(name, meta)
		}
	case serial.OpAdvertise:
		d, err := serial.ParseDeclaration(f)
		if err != nil {
			glog.Warningf("advertise: %v", err)
			return
		}
		s.lock.Lock()
		s.streams[d.Stream] = d.Topic
		s.lock.Unlock()
		glog.V(2).Infof("PUB %s stream %d", d.Topic, d.Stream)
	case serial.OpSubscribe:
		d, err := serial.ParseDeclaration(f)
		if err != nil {
			glog.Warningf("subscribe: %v", err)
			return
		}
		s.subscribe(d)
	default:
		glog.V(4).Infof("ignore control frame %s", f)
	}
}

func (s *Session) announce(name string, meta []byte) {
	if name == "" {
		glog.Warning("metadata without announcement")
		return
	}
	if err := s.Uplink.Announce(name, meta); err != nil {
		glog.Errorf("announce %s: %v", name, err)
		return
	}
	s.lock.Lock()
	s.announced = true
	s.lock.Unlock()
	glog.Infof("node %s attached", name)
}

func (s *Session) subscribe(d serial.Declaration) {
	stream := d.Stream
	sub, err := s.Uplink.Subscribe(d.Topic, func(topic string, payload []byte) {
		if err := s.FIFO.Send(serial.DataFrame(stream, payload)); err != nil {
			glog.V(2).Infof("forward %s to stream %d: %v", topic, stream, err)
		}
	})
	if err != nil {
		glog.Errorf("subscribe %s: %v", d.Topic, err)
		return
	}
	s.lock.Lock()
	prev := s.subs[stream]
	s.subs[stream] = sub
	s.lock.Unlock()
	if prev != nil {
		prev.Close()
	}
	glog.V(2).Infof("SUB %s stream %d", d.Topic, stream)
}

func (s *Session) forward(f *serial.Frame) {
	s.lock.Lock()
	topic, ok := s.streams[f.Nibble()]
	if !ok {
		s.dropped++
	}
	s.lock.Unlock()
	if !ok {
		glog.V(2).Infof("drop frame for unbound stream %d", f.Nibble())
		return
	}
	if err := s.Uplink.Publish(topic, f.Data); err != nil {
		glog.Warningf("publish %s: %v", topic, err)
		s.lock.Lock()
		s.dropped++
		s.lock.Unlock()
		return
	}
	s.lock.Lock()
	s.forwarded++
	s.lock.Unlock()
}
