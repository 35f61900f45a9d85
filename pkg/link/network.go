package link

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/transport"
)

// NetworkLink associates with a network, then creates the transport.
type NetworkLink struct {
	Associator   Associator
	Credentials  Credentials
	PollInterval time.Duration
	SettleDelay  time.Duration
	Clock        fx.Clock
	// Dial creates the transport once associated.
	Dial func() (transport.Transport, error)
}

// Establish implements Link. It polls the association silently until
// connected, so an absent network keeps the device waiting here.
func (l *NetworkLink) Establish(ctx context.Context) (transport.Transport, error) {
	clock := l.Clock
	if clock == nil {
		clock = fx.SystemClock()
	}
	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	settle := l.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	if err := l.Associator.Begin(l.Credentials); err != nil {
		glog.V(4).Infof("associate %q: %v", l.Credentials.SSID, err)
	}
	for polls := 1; ; polls++ {
		status := l.Associator.Status()
		if status == StatusConnected {
			break
		}
		glog.V(4).Infof("association %s, poll %d", status, polls)
		if err := fx.Sleep(ctx, clock, interval); err != nil {
			return nil, err
		}
		if status == StatusFailed {
			if err := l.Associator.Begin(l.Credentials); err != nil {
				glog.V(4).Infof("associate %q: %v", l.Credentials.SSID, err)
			}
		}
	}
	glog.Infof("network %q associated", l.Credentials.SSID)

	t, err := l.Dial()
	if err != nil {
		return nil, err
	}
	if err := fx.Sleep(ctx, clock, settle); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// DialAssociator considers the network associated once the agent address
// accepts TCP connections. It suits hosts where the network is managed by
// the OS.
type DialAssociator struct {
	Timeout time.Duration

	lock  sync.Mutex
	addr  string
	began bool
}

// Begin implements Associator.
func (a *DialAssociator) Begin(cred Credentials) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.addr, a.began = cred.AgentAddr, true
	return nil
}

// Status implements Associator.
func (a *DialAssociator) Status() Status {
	a.lock.Lock()
	addr, began := a.addr, a.began
	a.lock.Unlock()
	if !began {
		return StatusIdle
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return StatusConnecting
	}
	conn.Close()
	return StatusConnected
}
