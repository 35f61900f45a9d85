package framework

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func waitCanceled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerWait(t *testing.T) {
	r := NewRunner()
	failure := errors.New("link down")
	r.Go(
		NamedRun("spin", RunnableFunc(waitCanceled)),
		RunnableFunc(func(context.Context) error { return nil }),
	)
	r.Stop()
	require.NoError(t, r.Wait())

	r = NewRunner()
	r.FailFast = true
	r.Go(
		NamedRun("spin", RunnableFunc(waitCanceled)),
		NamedRun("agent", RunnableFunc(func(context.Context) error { return failure })),
	)
	err := r.Wait()
	require.True(t, errors.Is(err, failure))
	require.True(t, strings.HasPrefix(err.Error(), "agent: "))
}

type countCloser struct {
	closes int32
	ch     chan struct{}
}

func (c *countCloser) Close() error {
	if atomic.AddInt32(&c.closes, 1) == 1 {
		close(c.ch)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &countCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.ch
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&c.closes))

	c = &countCloser{ch: make(chan struct{})}
	err = RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&c.closes))
}
