package framework

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

type systemClock struct {
	clockwork.Clock
}

func (c systemClock) Time() time.Time {
	return c.Now()
}

// SystemClock returns the Clock backed by the wall clock.
func SystemClock() Clock {
	return systemClock{Clock: clockwork.NewRealClock()}
}

// Sleep blocks for d on the clock. It returns ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// ManualClock is a Clock driven explicitly, for simulation and tests.
type ManualClock struct {
	// AutoAdvance moves the clock forward by d on each After(d) call,
	// making every wait return immediately in virtual time.
	AutoAdvance bool

	fake clockwork.FakeClock
}

// NewManualClock creates a ManualClock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{fake: clockwork.NewFakeClockAt(start)}
}

// Time implements TimeSource.
func (c *ManualClock) Time() time.Time {
	return c.fake.Now()
}

// After implements Clock.
func (c *ManualClock) After(d time.Duration) <-chan time.Time {
	if d > 0 && !c.AutoAdvance {
		return c.fake.After(d)
	}
	if d > 0 {
		c.fake.Advance(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.fake.Now()
	return ch
}

// Advance moves the clock forward and fires due waiters.
func (c *ManualClock) Advance(d time.Duration) {
	c.fake.Advance(d)
}

// BlockUntil blocks until n After calls are pending.
func (c *ManualClock) BlockUntil(n int) {
	c.fake.BlockUntil(n)
}
