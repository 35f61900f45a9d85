// Package link brings up the channel to the agent before any messaging
// entity exists. Establishing a link never fails on its own: association
// and channel opening are retried at a fixed interval until they succeed or
// the context is done.
package link

import (
	"context"
	"time"

	"github.com/robotalks/edgenode/pkg/transport"
)

// Default bootstrap timing.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultSettleDelay  = 2 * time.Second
)

// Link establishes the channel to the agent and returns the transport
// bound to it. The transport is not connected yet.
type Link interface {
	Establish(ctx context.Context) (transport.Transport, error)
}

// Credentials are used to associate with a network.
type Credentials struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	// AgentAddr is the host:port of the agent or broker.
	AgentAddr string `yaml:"agent"`
}

// Status is the association status.
type Status int

// Association statuses.
const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Associator joins a network.
type Associator interface {
	// Begin starts association. It doesn't wait.
	Begin(Credentials) error
	// Status polls the association status.
	Status() Status
}

// SimLink returns a prepared transport immediately.
type SimLink struct {
	Transport transport.Transport
}

// Establish implements Link.
func (l *SimLink) Establish(ctx context.Context) (transport.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Transport, nil
}
