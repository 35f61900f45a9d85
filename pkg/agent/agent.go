// Package agent bridges nodes attached over serial channels to the MQTT
// fabric. Each channel carries one node: its announcement becomes retained
// metadata, its published streams are forwarded upward and its
// subscriptions are forwarded down.
package agent

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/link"
	"github.com/robotalks/edgenode/pkg/transport"
)

// Agent serves node channels.
type Agent struct {
	Uplink transport.Transport

	lock     sync.Mutex
	sessions map[*Session]struct{}
}

// New creates an Agent on a connected uplink.
func New(uplink transport.Transport) *Agent {
	return &Agent{Uplink: uplink, sessions: make(map[*Session]struct{})}
}

// Serve bridges a node channel until it fails or ctx is done. The channel is
// closed on return.
func (a *Agent) Serve(ctx context.Context, ch io.ReadWriteCloser) error {
	s := NewSession(ch, a.Uplink)
	a.lock.Lock()
	a.sessions[s] = struct{}{}
	a.lock.Unlock()
	defer func() {
		a.lock.Lock()
		delete(a.sessions, s)
		a.lock.Unlock()
	}()
	closeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-closeCtx.Done()
		ch.Close()
	}()
	err := s.Run(closeCtx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Nodes returns the names of attached nodes which have announced.
func (a *Agent) Nodes() []string {
	a.lock.Lock()
	defer a.lock.Unlock()
	var names []string
	for s := range a.sessions {
		if name := s.Name(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// WebsocketHandler serves node channels over websocket, each connection
// standing in for a UART.
func (a *Agent) WebsocketHandler(ctx context.Context) websocket.Handler {
	return func(conn *websocket.Conn) {
		glog.Infof("channel from %s", conn.Request().RemoteAddr)
		if err := a.Serve(ctx, link.NewWSChannel(conn)); err != nil && ctx.Err() == nil {
			glog.V(2).Infof("channel from %s closed: %v", conn.Request().RemoteAddr, err)
		}
	}
}

// ChannelServer keeps one device channel served. The channel is reopened
// every PollInterval after it fails or can't be opened.
type ChannelServer struct {
	Agent        *Agent
	Channel      string
	PollInterval time.Duration
	// Open opens the channel, link.OpenChannel when nil.
	Open func(string) (io.ReadWriteCloser, error)
}

// Run implements Runnable.
func (c *ChannelServer) Run(ctx context.Context) error {
	open := c.Open
	if open == nil {
		open = link.OpenChannel
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = link.DefaultPollInterval
	}
	for {
		ch, err := open(c.Channel)
		if err == nil {
			glog.Infof("serving %s", c.Channel)
			err = c.Agent.Serve(ctx, ch)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.V(2).Infof("channel %s: %v", c.Channel, err)
		if err := fx.Sleep(ctx, fx.SystemClock(), interval); err != nil {
			return err
		}
	}
}
