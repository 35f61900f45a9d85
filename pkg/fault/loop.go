// Package fault implements the terminal state of a device whose messaging
// stack could not be brought up: an indicator blinks until power off.
package fault

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/hal"
	"github.com/robotalks/edgenode/pkg/rmw"
)

// DefaultInterval is the default toggle interval.
const DefaultInterval = 100 * time.Millisecond

// codePause is the number of intervals between blink code repetitions.
const codePause = 8

// Loop blinks an indicator forever.
type Loop struct {
	Actuator hal.Actuator
	Pin      hal.Pin
	Interval time.Duration
	Clock    fx.Clock
	// BlinkCodes blinks Code(cause) times between pauses instead of
	// toggling steadily.
	BlinkCodes bool

	writes uint64
}

// Run enters the loop. It never returns unless ctx is done.
func (l *Loop) Run(ctx context.Context, cause error) error {
	glog.Errorf("fatal: %v", cause)
	clock := l.Clock
	if clock == nil {
		clock = fx.SystemClock()
	}
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if !l.BlinkCodes {
		for level := hal.High; ; level = level.Toggle() {
			l.write(level)
			if err := fx.Sleep(ctx, clock, interval); err != nil {
				return err
			}
		}
	}
	code := Code(cause)
	for {
		for i := 0; i < code; i++ {
			l.write(hal.High)
			if err := fx.Sleep(ctx, clock, interval); err != nil {
				return err
			}
			l.write(hal.Low)
			if err := fx.Sleep(ctx, clock, interval); err != nil {
				return err
			}
		}
		if err := fx.Sleep(ctx, clock, codePause*interval); err != nil {
			return err
		}
	}
}

// Writes returns the number of indicator writes.
func (l *Loop) Writes() uint64 {
	return l.writes
}

func (l *Loop) write(level hal.Level) {
	l.writes++
	if l.Actuator == nil {
		return
	}
	if err := l.Actuator.WriteActuator(l.Pin, level); err != nil && l.writes == 1 {
		glog.Warningf("fault indicator %d: %v", l.Pin, err)
	}
}

// Code maps a fatal error to a blink count identifying the failed step.
func Code(err error) int {
	switch rmw.OpOf(err) {
	case rmw.OpAllocatorInit:
		return 1
	case rmw.OpSupportInit:
		return 2
	case rmw.OpNodeInit:
		return 3
	case rmw.OpPublisherInit, rmw.OpSubscriptionInit:
		return 4
	case rmw.OpTimerInit:
		return 5
	case rmw.OpExecutorInit, rmw.OpExecutorAdd:
		return 6
	}
	return 7
}
