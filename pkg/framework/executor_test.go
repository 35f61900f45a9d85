package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type testReadable struct {
	policy   TriggerPolicy
	handler  MessageHandler
	notify   func()
	pending  []Message
	takeErr  error
	lock     sync.Mutex
	received []Message
}

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func newTestReadable() *testReadable {
	r := &testReadable{}
	r.handler = HandleMessageFunc(func(ctx context.Context, msg Message) error {
		r.received = append(r.received, msg)
		return nil
	})
	return r
}

func (r *testReadable) push(msg Message) {
	r.lock.Lock()
	r.pending = append(r.pending, msg)
	notify := r.notify
	r.lock.Unlock()
	if notify != nil {
		notify()
	}
}

func (r *testReadable) Take() (Message, bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.takeErr; err != nil {
		r.takeErr = nil
		return nil, false, err
	}
	if len(r.pending) == 0 {
		return nil, false, nil
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, true, nil
}

func (r *testReadable) Pending() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.pending) > 0
}

func (r *testReadable) MessageHandler() MessageHandler { return r.handler }
func (r *testReadable) TriggerPolicy() TriggerPolicy   { return r.policy }

func (r *testReadable) SetNotifier(fn func()) {
	r.lock.Lock()
	r.notify = fn
	r.lock.Unlock()
}

type timerRecorder struct {
	fires []time.Duration
	err   error
}

func (r *timerRecorder) HandleTimer(ctx context.Context, t *Timer, sinceLast time.Duration) error {
	r.fires = append(r.fires, sinceLast)
	return r.err
}

func TestExecutorCapacity(t *testing.T) {
	clock := NewManualClock(testEpoch)

	_, err := NewExecutor(clock, 0)
	require.Equal(t, ErrInvalidCapacity, err)

	testCases := []struct {
		name     string
		capacity int
		timers   int
		readers  int
		addErr   error
		validErr error
	}{
		{name: "exact timers", capacity: 2, timers: 2},
		{name: "exact mixed", capacity: 2, timers: 1, readers: 1},
		{name: "one too many", capacity: 1, timers: 1, readers: 1, addErr: ErrCapacityExceeded},
		{name: "too few", capacity: 3, timers: 1, readers: 1, validErr: ErrCapacityMismatch},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewExecutor(clock, tc.capacity)
			require.NoError(t, err)
			var addErr error
			for i := 0; i < tc.timers; i++ {
				tm, err := NewTimer(clock, time.Second, nil)
				require.NoError(t, err)
				if err := e.AddTimer(tm); err != nil {
					addErr = err
				}
			}
			for i := 0; i < tc.readers; i++ {
				if err := e.AddReadable(newTestReadable()); err != nil {
					addErr = err
				}
			}
			require.Equal(t, tc.addErr, addErr)
			require.Equal(t, tc.validErr, e.Validate())
		})
	}
}

func TestExecutorMismatchDispatchesNothing(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 2)
	require.NoError(t, err)
	var rec timerRecorder
	tm, err := NewTimer(clock, time.Millisecond, &rec)
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))

	clock.Advance(time.Second)
	require.Equal(t, ErrCapacityMismatch, e.SpinSome(context.Background(), 0))
	require.Empty(t, rec.fires)
	require.Equal(t, ErrCapacityMismatch, e.Spin(context.Background(), time.Millisecond))
}

func TestExecutorTimerSchedule(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	var rec timerRecorder
	tm, err := NewTimer(clock, 100*time.Millisecond, &rec)
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))
	ctx := context.Background()

	clock.Advance(99 * time.Millisecond)
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Empty(t, rec.fires, "fired before period")

	clock.Advance(time.Millisecond)
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Equal(t, []time.Duration{100 * time.Millisecond}, rec.fires)

	// at most once per spin, missed periods are skipped with phase kept.
	clock.Advance(350 * time.Millisecond)
	require.NoError(t, e.SpinSome(ctx, 0))
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Len(t, rec.fires, 2)
	require.Equal(t, testEpoch.Add(500*time.Millisecond), tm.Next())

	tm.Cancel()
	clock.Advance(time.Second)
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Len(t, rec.fires, 2)

	tm.Reset()
	require.Equal(t, clock.Time().Add(100*time.Millisecond), tm.Next())
}

func TestExecutorWaitsForTimer(t *testing.T) {
	clock := NewManualClock(testEpoch)
	clock.AutoAdvance = true
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	var rec timerRecorder
	tm, err := NewTimer(clock, 30*time.Millisecond, &rec)
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))

	// the wait is bounded by the next due time rather than maxWait.
	require.NoError(t, e.SpinSome(context.Background(), 100*time.Millisecond))
	require.Len(t, rec.fires, 1)
	require.Equal(t, testEpoch.Add(30*time.Millisecond), clock.Time())
}

func TestExecutorIdleSpinIsNoop(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 2)
	require.NoError(t, err)
	var rec timerRecorder
	tm, err := NewTimer(clock, time.Hour, &rec)
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))
	r := newTestReadable()
	require.NoError(t, e.AddReadable(r))

	for i := 0; i < 10; i++ {
		require.NoError(t, e.SpinSome(context.Background(), 0))
	}
	require.Empty(t, rec.fires)
	require.Empty(t, r.received)
	stats := e.Stats()
	require.Equal(t, uint64(10), stats.Spins)
	require.Zero(t, stats.TimerFires)
	require.Zero(t, stats.Deliveries)
}

func TestExecutorDelivery(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	r := newTestReadable()
	require.NoError(t, e.AddReadable(r))
	ctx := context.Background()

	r.push(&testMsg{val: 1})
	r.push(&testMsg{val: 2})
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Equal(t, []Message{&testMsg{val: 1}}, r.received, "at most once per spin")
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Equal(t, []Message{&testMsg{val: 1}, &testMsg{val: 2}}, r.received)
	require.NoError(t, e.SpinSome(ctx, 0))
	require.Len(t, r.received, 2)
}

func TestExecutorWakesOnMessage(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	r := newTestReadable()
	require.NoError(t, e.AddReadable(r))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.SpinSome(context.Background(), time.Hour)
	}()
	clock.BlockUntil(1)
	r.push(&testMsg{val: 7})
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("spin not woken up")
	}
	require.Equal(t, []Message{&testMsg{val: 7}}, r.received)
}

func TestExecutorAlwaysPolicy(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	r := newTestReadable()
	r.policy = Always
	require.NoError(t, e.AddReadable(r))

	require.NoError(t, e.SpinSome(context.Background(), 0))
	require.Equal(t, []Message{nil}, r.received)
}

func TestExecutorSoftErrors(t *testing.T) {
	clock := NewManualClock(testEpoch)
	e, err := NewExecutor(clock, 2)
	require.NoError(t, err)
	rec := timerRecorder{err: errors.New("publish failed")}
	tm, err := NewTimer(clock, time.Millisecond, &rec)
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))
	r := newTestReadable()
	r.takeErr = errors.New("bad payload")
	require.NoError(t, e.AddReadable(r))

	clock.Advance(time.Millisecond)
	require.NoError(t, e.SpinSome(context.Background(), 0))
	clock.Advance(time.Millisecond)
	require.NoError(t, e.SpinSome(context.Background(), 0))
	require.Len(t, rec.fires, 2, "timer keeps firing after callback errors")
	stats := e.Stats()
	require.Equal(t, uint64(2), stats.CallbackErrors)
	require.Equal(t, uint64(1), stats.TakeErrors)
}

func TestExecutorSpinStopsOnCancel(t *testing.T) {
	clock := NewManualClock(testEpoch)
	clock.AutoAdvance = true
	e, err := NewExecutor(clock, 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	tm, err := NewTimer(clock, 10*time.Millisecond, HandleTimerFunc(func(context.Context, *Timer, time.Duration) error {
		cancel()
		return nil
	}))
	require.NoError(t, err)
	require.NoError(t, e.AddTimer(tm))
	require.Equal(t, context.Canceled, e.Run(ctx))
	require.Equal(t, uint64(1), tm.Fires())
}

func TestNewTimerInvalidPeriod(t *testing.T) {
	_, err := NewTimer(SystemClock(), 0, nil)
	require.Equal(t, ErrInvalidPeriod, err)
}
