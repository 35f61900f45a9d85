package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message defines the abstract message delivered to a subscription handler.
type Message interface {
	// NewMessage creates an empty message.
	NewMessage() Message
}

// MessageHandler processes a message taken from a subscription.
type MessageHandler interface {
	HandleMessage(context.Context, Message) error
}

// HandleMessageFunc is the func form of MessageHandler.
type HandleMessageFunc func(context.Context, Message) error

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// TimerHandler is invoked when a timer fires. sinceLast is the time elapsed
// since the previous fire, or since the timer was armed for the first fire.
type TimerHandler interface {
	HandleTimer(ctx context.Context, t *Timer, sinceLast time.Duration) error
}

// HandleTimerFunc is the func form of TimerHandler.
type HandleTimerFunc func(context.Context, *Timer, time.Duration) error

// HandleTimer implements TimerHandler.
func (f HandleTimerFunc) HandleTimer(ctx context.Context, t *Timer, sinceLast time.Duration) error {
	return f(ctx, t, sinceLast)
}

// TimeSource provides the time for scheduling logic.
type TimeSource interface {
	Time() time.Time
}

// Clock is a TimeSource which can also wait.
type Clock interface {
	TimeSource
	// After returns a chan receiving the time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// TriggerPolicy decides when a subscription handler is invoked.
type TriggerPolicy int

const (
	// OnNewData invokes the handler only when an unread message is pending.
	OnNewData TriggerPolicy = iota
	// Always invokes the handler on every spin, with a nil message when
	// nothing is pending.
	Always
)

// Readable is an inbound message source dispatched by the Executor.
type Readable interface {
	// Take pops the oldest unread message. ok is false when nothing is pending.
	Take() (msg Message, ok bool, err error)
	// Pending reports whether an unread message is available.
	Pending() bool
	// MessageHandler gets the delivery callback.
	MessageHandler() MessageHandler
	// TriggerPolicy gets the delivery policy.
	TriggerPolicy() TriggerPolicy
	// SetNotifier installs a func called from any goroutine when data arrives.
	SetNotifier(func())
}
