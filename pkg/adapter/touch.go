// Package adapter maps between the physical I/O of the device and messages.
// Handlers here run on the executor goroutine and never block.
package adapter

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/hal"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// State is the classified touch state.
type State int

// Touch states.
const (
	Idle State = iota
	Pressed
)

// String implements Stringer. The text is the published payload.
func (s State) String() string {
	if s == Pressed {
		return "PRESSED"
	}
	return "IDLE"
}

// Classify maps a sample to a State: a touched capacitive pad reads lower.
func Classify(sample, threshold int) State {
	if sample < threshold {
		return Pressed
	}
	return Idle
}

// Default touch settings.
const (
	DefaultThreshold       = 30
	DefaultPayloadCapacity = 20
)

// Publisher publishes messages.
type Publisher interface {
	Publish(fx.Message) error
}

// Touch samples a touch pad, mirrors it on the LED and publishes the state.
type Touch struct {
	Board     hal.Board
	SensorPin hal.Pin
	LEDPin    hal.Pin
	Threshold int
	Publisher Publisher

	payload *msgs.BoundedString
	last    State
	samples uint64
}

// NewTouch creates a Touch with the payload capacity in bytes.
func NewTouch(board hal.Board, sensor, led hal.Pin, threshold, capacity int, pub Publisher) *Touch {
	return &Touch{
		Board:     board,
		SensorPin: sensor,
		LEDPin:    led,
		Threshold: threshold,
		Publisher: pub,
		payload:   msgs.NewBoundedString(capacity),
	}
}

// HandleTimer implements TimerHandler.
func (t *Touch) HandleTimer(ctx context.Context, _ *fx.Timer, _ time.Duration) error {
	sample, err := t.Board.ReadSensor(t.SensorPin)
	if err != nil {
		return err
	}
	t.samples++
	state := Classify(sample, t.Threshold)
	if err := t.payload.Set(state.String()); err != nil {
		return err
	}
	if state != t.last {
		glog.V(2).Infof("touch %s (sample %d)", state, sample)
	}
	t.last = state
	if err := t.Board.WriteActuator(t.LEDPin, state == Pressed); err != nil {
		glog.Warningf("LED %d: %v", t.LEDPin, err)
	}
	return t.Publisher.Publish(t.payload.Message())
}

// State gets the last classified state.
func (t *Touch) State() State {
	return t.last
}

// Payload gets the payload buffer.
func (t *Touch) Payload() *msgs.BoundedString {
	return t.payload
}
