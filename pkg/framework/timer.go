package framework

import (
	"context"
	"time"
)

// Timer fires its handler periodically when observed due by an Executor.
// A fire happens no earlier than its due time, and no later than the due
// time plus the executor's spin timeout.
type Timer struct {
	Handler TimerHandler

	clock    Clock
	period   time.Duration
	next     time.Time
	last     time.Time
	canceled bool
	fires    uint64
}

// NewTimer creates a Timer armed to first fire one period from now.
func NewTimer(clock Clock, period time.Duration, handler TimerHandler) (*Timer, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	t := &Timer{Handler: handler, clock: clock, period: period}
	t.Reset()
	return t, nil
}

// Period gets the timer period.
func (t *Timer) Period() time.Duration {
	return t.period
}

// Next gets the next due time.
func (t *Timer) Next() time.Time {
	return t.next
}

// Fires returns how many times the timer has fired.
func (t *Timer) Fires() uint64 {
	return t.fires
}

// IsDue reports whether the timer should fire at now.
func (t *Timer) IsDue(now time.Time) bool {
	return !t.canceled && !now.Before(t.next)
}

// Canceled reports whether the timer is canceled.
func (t *Timer) Canceled() bool {
	return t.canceled
}

// Cancel stops the timer from becoming due until Reset.
func (t *Timer) Cancel() {
	t.canceled = true
}

// Reset re-arms the timer one period from now.
func (t *Timer) Reset() {
	now := t.clock.Time()
	t.canceled = false
	t.last = now
	t.next = now.Add(t.period)
}

// until returns the duration from now to the next due time.
func (t *Timer) until(now time.Time) (time.Duration, bool) {
	if t.canceled {
		return 0, false
	}
	if d := t.next.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

func (t *Timer) fire(ctx context.Context, now time.Time) error {
	sinceLast := now.Sub(t.last)
	t.last = now
	// missed periods are skipped, the phase is kept.
	missed := now.Sub(t.next) / t.period
	t.next = t.next.Add((missed + 1) * t.period)
	t.fires++
	if h := t.Handler; h != nil {
		return h.HandleTimer(ctx, t, sinceLast)
	}
	return nil
}
