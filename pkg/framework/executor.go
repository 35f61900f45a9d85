package framework

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultSpinTimeout is the default maximum wait of one spin.
const DefaultSpinTimeout = 100 * time.Millisecond

// Executor dispatches timers and subscriptions cooperatively on the
// goroutine calling SpinSome. Callbacks never run concurrently, so state
// touched only from callbacks needs no locking.
type Executor struct {
	SpinTimeout time.Duration

	clock    Clock
	capacity int
	handles  []handle
	stats    ExecutorStats

	wakeUpCh chan struct{}
}

// ExecutorStats counts executor activity.
type ExecutorStats struct {
	Spins          uint64
	TimerFires     uint64
	Deliveries     uint64
	CallbackErrors uint64
	TakeErrors     uint64
}

type handle struct {
	timer    *Timer
	readable Readable
}

// NewExecutor creates an Executor accepting exactly capacity handles.
func NewExecutor(clock Clock, capacity int) (*Executor, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Executor{
		SpinTimeout: DefaultSpinTimeout,
		clock:       clock,
		capacity:    capacity,
		handles:     make([]handle, 0, capacity),
		wakeUpCh:    make(chan struct{}, 1),
	}, nil
}

// Capacity gets the declared capacity.
func (e *Executor) Capacity() int {
	return e.capacity
}

// Len gets the number of registered handles.
func (e *Executor) Len() int {
	return len(e.handles)
}

// Stats returns a snapshot of the counters.
func (e *Executor) Stats() ExecutorStats {
	return e.stats
}

// AddTimer registers a timer.
func (e *Executor) AddTimer(t *Timer) error {
	if len(e.handles) >= e.capacity {
		return ErrCapacityExceeded
	}
	e.handles = append(e.handles, handle{timer: t})
	return nil
}

// AddReadable registers a subscription.
func (e *Executor) AddReadable(r Readable) error {
	if len(e.handles) >= e.capacity {
		return ErrCapacityExceeded
	}
	e.handles = append(e.handles, handle{readable: r})
	r.SetNotifier(e.wakeUp)
	return nil
}

// Validate checks the registration set matches the declared capacity.
func (e *Executor) Validate() error {
	if len(e.handles) != e.capacity {
		return ErrCapacityMismatch
	}
	return nil
}

// SpinSome processes whatever is ready, waiting at most maxWait for
// something to become ready first. Each due timer and ready subscription is
// invoked at most once. maxWait of 0 never blocks.
func (e *Executor) SpinSome(ctx context.Context, maxWait time.Duration) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.stats.Spins++

	// a stale wake-up must not cut the next wait short.
	select {
	case <-e.wakeUpCh:
	default:
	}

	now := e.clock.Time()
	if !e.ready(now) && maxWait > 0 {
		wait := maxWait
		if d, ok := e.nextTimerIn(now); ok && d < wait {
			wait = d
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(wait):
		case <-e.wakeUpCh:
		}
		now = e.clock.Time()
	}
	e.dispatch(ctx, now)
	return nil
}

// Spin calls SpinSome until ctx is done.
func (e *Executor) Spin(ctx context.Context, maxWait time.Duration) error {
	if maxWait <= 0 {
		maxWait = DefaultSpinTimeout
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.SpinSome(ctx, maxWait); err != nil {
			return err
		}
	}
}

// Run implements Runnable.
func (e *Executor) Run(ctx context.Context) error {
	return e.Spin(ctx, e.SpinTimeout)
}

func (e *Executor) wakeUp() {
	select {
	case e.wakeUpCh <- struct{}{}:
	default:
	}
}

func (e *Executor) ready(now time.Time) bool {
	for _, h := range e.handles {
		if h.timer != nil && h.timer.IsDue(now) {
			return true
		}
		if h.readable != nil && h.readable.Pending() {
			return true
		}
	}
	return false
}

func (e *Executor) nextTimerIn(now time.Time) (next time.Duration, found bool) {
	for _, h := range e.handles {
		if h.timer == nil {
			continue
		}
		if d, ok := h.timer.until(now); ok && (!found || d < next) {
			next, found = d, true
		}
	}
	return
}

func (e *Executor) dispatch(ctx context.Context, now time.Time) {
	for _, h := range e.handles {
		if h.timer != nil {
			if !h.timer.IsDue(now) {
				continue
			}
			e.stats.TimerFires++
			if err := h.timer.fire(ctx, now); err != nil {
				e.stats.CallbackErrors++
				glog.Warningf("timer callback error: %v", err)
			}
			continue
		}
		e.deliver(ctx, h.readable)
	}
}

func (e *Executor) deliver(ctx context.Context, r Readable) {
	msg, ok, err := r.Take()
	if err != nil {
		e.stats.TakeErrors++
		glog.Warningf("take message error: %v", err)
	}
	if !ok {
		if r.TriggerPolicy() != Always {
			return
		}
		msg = nil
	}
	h := r.MessageHandler()
	if h == nil {
		return
	}
	e.stats.Deliveries++
	if err := h.HandleMessage(ctx, msg); err != nil {
		e.stats.CallbackErrors++
		glog.Warningf("subscription callback error: %v", err)
	}
}
