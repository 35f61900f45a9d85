package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/hal"
	"github.com/robotalks/edgenode/pkg/rmw"
)

var testEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// stopAfter cancels the context after n writes to the pin.
type stopAfter struct {
	*hal.SimBoard
	n      int
	cancel context.CancelFunc
}

func (s *stopAfter) WriteActuator(pin hal.Pin, level hal.Level) error {
	err := s.SimBoard.WriteActuator(pin, level)
	if len(s.History(pin)) >= s.n {
		s.cancel()
	}
	return err
}

func newStopAfter(n int) (*stopAfter, context.Context) {
	board := hal.NewSimBoard()
	board.ConfigureOutput(2)
	ctx, cancel := context.WithCancel(context.Background())
	return &stopAfter{SimBoard: board, n: n, cancel: cancel}, ctx
}

func TestLoopToggles(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	board, ctx := newStopAfter(6)
	l := &Loop{Actuator: board, Pin: 2, Clock: clock}
	err := l.Run(ctx, &rmw.Error{Op: rmw.OpSupportInit, Err: rmw.ErrTransportNotReady})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, []hal.Level{hal.High, hal.Low, hal.High, hal.Low, hal.High, hal.Low}, board.History(2))
	require.Equal(t, uint64(6), l.Writes())
	require.Equal(t, testEpoch.Add(5*DefaultInterval), clock.Time())
}

func TestLoopBlinkCodes(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	// two repetitions of code 3
	board, ctx := newStopAfter(12)
	l := &Loop{Actuator: board, Pin: 2, Clock: clock, BlinkCodes: true}
	err := l.Run(ctx, &rmw.Error{Op: rmw.OpNodeInit, Err: rmw.ErrInvalidName})
	require.Equal(t, context.Canceled, err)
	// 3 blinks, pause, 3 blinks with the last low level not waited.
	require.Equal(t, testEpoch.Add((6+codePause+5)*DefaultInterval), clock.Time())
}

func TestLoopWithoutActuator(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{Clock: clock, Interval: 10 * time.Millisecond}
	cancel()
	require.Equal(t, context.Canceled, l.Run(ctx, errors.New("boom")))
	require.Equal(t, uint64(1), l.Writes())
}

func TestCode(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{&rmw.Error{Op: rmw.OpAllocatorInit, Err: rmw.ErrBadAlloc}, 1},
		{&rmw.Error{Op: rmw.OpSupportInit, Err: rmw.ErrTransportNotReady}, 2},
		{&rmw.Error{Op: rmw.OpNodeInit, Err: rmw.ErrInvalidName}, 3},
		{&rmw.Error{Op: rmw.OpPublisherInit, Err: rmw.ErrBadAlloc}, 4},
		{&rmw.Error{Op: rmw.OpSubscriptionInit, Err: rmw.ErrBadAlloc}, 4},
		{&rmw.Error{Op: rmw.OpTimerInit, Err: fx.ErrInvalidPeriod}, 5},
		{&rmw.Error{Op: rmw.OpExecutorAdd, Err: fx.ErrCapacityExceeded}, 6},
		{fmt.Errorf("setup: %w", &rmw.Error{Op: rmw.OpExecutorInit, Err: fx.ErrCapacityMismatch}), 6},
		{errors.New("other"), 7},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.code, Code(tc.err), tc.err.Error())
	}
}
