package rmw

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/transport"
)

// Support binds the allocator, clock and transport shared by all entities.
type Support struct {
	Transport  transport.Transport
	Allocator  *Allocator
	Clock      fx.Clock
	SessionKey string
}

// NewSupport connects the transport and creates the Support.
func NewSupport(ctx context.Context, t transport.Transport, alloc *Allocator, clock fx.Clock) (*Support, error) {
	if alloc == nil {
		return nil, &Error{Op: OpSupportInit, Err: ErrBadAlloc}
	}
	if clock == nil {
		clock = fx.SystemClock()
	}
	if err := t.Connect(ctx); err != nil {
		return nil, &Error{Op: OpSupportInit, Err: fmt.Errorf("%w: %v", ErrTransportNotReady, err)}
	}
	s := &Support{
		Transport:  t,
		Allocator:  alloc,
		Clock:      clock,
		SessionKey: uuid.New().String(),
	}
	glog.Infof("session %s established", s.SessionKey)
	return s, nil
}

// NewTimer creates a timer on the support clock.
func (s *Support) NewTimer(period time.Duration, handler fx.TimerHandler) (*fx.Timer, error) {
	if err := s.Allocator.Reserve(KindTimer); err != nil {
		return nil, &Error{Op: OpTimerInit, Err: err}
	}
	t, err := fx.NewTimer(s.Clock, period, handler)
	if err != nil {
		s.Allocator.Release(KindTimer)
		return nil, &Error{Op: OpTimerInit, Err: err}
	}
	return t, nil
}

// NewExecutor creates an executor with a declared handle capacity.
func (s *Support) NewExecutor(capacity int) (*fx.Executor, error) {
	if err := s.Allocator.Reserve(KindExecutor); err != nil {
		return nil, &Error{Op: OpExecutorInit, Err: err}
	}
	e, err := fx.NewExecutor(s.Clock, capacity)
	if err != nil {
		s.Allocator.Release(KindExecutor)
		return nil, &Error{Op: OpExecutorInit, Err: err}
	}
	return e, nil
}

// Close closes the transport.
func (s *Support) Close() error {
	return s.Transport.Close()
}
