// Package device assembles a node: it brings up the link, creates the
// messaging entities of a profile and runs the executor forever. A failure
// while creating the entities diverts into the error loop for good.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/edgenode/pkg/adapter"
	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/fault"
	"github.com/robotalks/edgenode/pkg/hal"
	"github.com/robotalks/edgenode/pkg/link"
	"github.com/robotalks/edgenode/pkg/msgs"
	"github.com/robotalks/edgenode/pkg/rmw"
	"github.com/robotalks/edgenode/pkg/transport"
	"github.com/robotalks/edgenode/pkg/transport/loopback"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
)

// Phase is the lifecycle phase of a Device.
type Phase int

// Phases in order. PhaseFault is terminal.
const (
	PhaseInit Phase = iota
	PhaseBootstrap
	PhaseContext
	PhaseEntities
	PhaseExecutor
	PhaseRunning
	PhaseFault
)

var phaseNames = []string{"init", "bootstrap", "context", "entities", "executor", "running", "fault"}

// String implements Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Device owns everything a node needs. Entities are created by Run.
type Device struct {
	Config *Config
	Clock  fx.Clock
	Board  hal.Board
	Link   link.Link
	Fault  *fault.Loop

	lock      sync.RWMutex
	phase     Phase
	cause     error
	transport transport.Transport
	support   *rmw.Support
	node      *rmw.Node
	executor  *fx.Executor

	publisher  *rmw.Publisher
	subscriber *rmw.Subscriber
	timer      *fx.Timer
	touch      *adapter.Touch
	counter    *adapter.Counter
	led        *adapter.LED
	ledReady   bool
}

// New creates a Device. The link is derived from the config when l is nil.
func New(conf *Config, board hal.Board, l link.Link, clock fx.Clock) (*Device, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = fx.SystemClock()
	}
	if l == nil {
		l = conf.NewLink(clock)
	}
	return &Device{
		Config: conf,
		Clock:  clock,
		Board:  board,
		Link:   l,
		Fault: &fault.Loop{
			Actuator:   board,
			Pin:        hal.Pin(conf.LEDPin),
			Interval:   conf.Fault.Interval,
			Clock:      clock,
			BlinkCodes: conf.Fault.BlinkCodes,
		},
	}, nil
}

// NewLink creates the link of the configured mode.
func (c *Config) NewLink(clock fx.Clock) link.Link {
	switch c.Link {
	case LinkSerial:
		return &link.SerialLink{
			Channel:      c.Channel,
			PollInterval: c.PollInterval,
			SettleDelay:  c.SettleDelay,
			Clock:        clock,
		}
	case LinkSim:
		return &link.SimLink{Transport: loopback.New()}
	}
	nodeTopic := rmw.TransportTopic(c.FullyQualifiedName())
	return &link.NetworkLink{
		Associator:   &link.DialAssociator{},
		Credentials:  c.Network,
		PollInterval: c.PollInterval,
		SettleDelay:  c.SettleDelay,
		Clock:        clock,
		Dial: func() (transport.Transport, error) {
			t, err := mqtt.NewTransport(c.BrokerURL, nodeTopic)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}
}

// FullyQualifiedName returns the node name with its namespace.
func (c *Config) FullyQualifiedName() string {
	name, err := rmw.ResolveTopic(c.Node.Namespace, c.Node.Name)
	if err != nil {
		return "/" + c.Node.Name
	}
	return name
}

// Phase gets the current phase.
func (d *Device) Phase() Phase {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.phase
}

// Cause gets the error which led to PhaseFault.
func (d *Device) Cause() error {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.cause
}

// Executor gets the executor once created.
func (d *Device) Executor() *fx.Executor {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.executor
}

// Transport gets the transport once the link is up.
func (d *Device) Transport() transport.Transport {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.transport
}

// Counter gets the counter adapter of the counter profile.
func (d *Device) Counter() *adapter.Counter {
	return d.counter
}

// Touch gets the touch adapter of the touch profile.
func (d *Device) Touch() *adapter.Touch {
	return d.touch
}

func (d *Device) setPhase(p Phase) {
	d.lock.Lock()
	d.phase = p
	d.lock.Unlock()
	glog.Infof("phase %s", p)
}

// Run runs the device. It returns only when ctx is done.
func (d *Device) Run(ctx context.Context) error {
	// the indicator must work before anything else can fail.
	d.configureLED()
	d.setPhase(PhaseBootstrap)
	t, err := d.Link.Establish(ctx)
	if err != nil {
		return err
	}
	if err := d.Setup(ctx, t); err != nil {
		d.lock.Lock()
		d.cause = err
		d.lock.Unlock()
		d.setPhase(PhaseFault)
		return d.Fault.Run(ctx, err)
	}

	d.setPhase(PhaseRunning)
	return d.executor.Spin(ctx, d.Config.SpinTimeout)
}

// Setup creates the messaging entities on the established transport. Each
// step depends on the previous one, the first failure is returned.
func (d *Device) Setup(ctx context.Context, t transport.Transport) error {
	conf := d.Config
	d.lock.Lock()
	d.transport = t
	d.lock.Unlock()

	d.setPhase(PhaseContext)
	alloc, err := rmw.NewAllocator(conf.Limits)
	if err != nil {
		return err
	}
	support, err := rmw.NewSupport(ctx, t, alloc, d.Clock)
	if err != nil {
		return err
	}
	d.support = support
	node, err := support.NewNode(conf.Node.Name, conf.Node.Namespace, d.nodeMeta())
	if err != nil {
		return err
	}
	d.node = node

	d.setPhase(PhaseEntities)
	d.configureLED()
	if conf.Profile == ProfileCounter {
		err = d.setupCounter()
	} else {
		err = d.setupTouch()
	}
	if err != nil {
		return err
	}

	d.setPhase(PhaseExecutor)
	executor, err := support.NewExecutor(conf.Capacity())
	if err != nil {
		return err
	}
	executor.SpinTimeout = conf.SpinTimeout
	d.lock.Lock()
	d.executor = executor
	d.lock.Unlock()
	if err := executor.AddTimer(d.timer); err != nil {
		return &rmw.Error{Op: rmw.OpExecutorAdd, Err: err}
	}
	if d.subscriber != nil {
		if err := executor.AddReadable(d.subscriber); err != nil {
			return &rmw.Error{Op: rmw.OpExecutorAdd, Err: err}
		}
	}
	if err := executor.Validate(); err != nil {
		return &rmw.Error{Op: rmw.OpExecutorAdd, Err: err}
	}
	return nil
}

func (d *Device) configureLED() {
	if d.ledReady {
		return
	}
	if err := d.Board.ConfigureOutput(hal.Pin(d.Config.LEDPin)); err != nil {
		glog.Warningf("configure LED %d: %v", d.Config.LEDPin, err)
		return
	}
	d.ledReady = true
}

func (d *Device) setupTouch() (err error) {
	conf := d.Config
	opts := &rmw.PublisherOptions{MaxMessageSize: conf.MessageSize()}
	if d.publisher, err = d.node.NewPublisher(msgs.StringSchema, conf.Touch.Topic, opts); err != nil {
		return err
	}
	d.touch = adapter.NewTouch(d.Board,
		hal.Pin(conf.Touch.SensorPin), hal.Pin(conf.LEDPin),
		conf.Touch.Threshold, conf.Touch.PayloadCapacity, d.publisher)
	d.timer, err = d.support.NewTimer(conf.Touch.Period, d.touch)
	return err
}

func (d *Device) setupCounter() (err error) {
	conf := d.Config
	opts := &rmw.PublisherOptions{MaxMessageSize: conf.MessageSize()}
	if d.publisher, err = d.node.NewPublisher(msgs.Int32Schema, conf.Counter.Topic, opts); err != nil {
		return err
	}
	d.led = &adapter.LED{Actuator: d.Board, Pin: hal.Pin(conf.LEDPin)}
	subOpts := &rmw.SubscriberOptions{MaxMessageSize: conf.MessageSize()}
	if d.subscriber, err = d.node.NewSubscriber(msgs.BoolSchema, conf.Counter.LEDTopic, d.led, fx.OnNewData, subOpts); err != nil {
		return err
	}
	d.counter = &adapter.Counter{Publisher: d.publisher}
	d.timer, err = d.support.NewTimer(conf.Counter.Period, d.counter)
	return err
}

func (d *Device) nodeMeta() rmw.NodeMeta {
	labels := map[string]string{"profile": d.Config.Profile, "link": d.Config.Link}
	for k, v := range d.Config.Node.Labels {
		labels[k] = v
	}
	return rmw.NodeMeta{
		Description: d.Config.Node.Description,
		MachineID:   MachineID(),
		Labels:      labels,
	}
}
