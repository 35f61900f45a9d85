package rmw

import (
	"errors"
)

// Operations reported in Error.Op.
const (
	OpAllocatorInit    = "allocator_init"
	OpSupportInit      = "support_init"
	OpNodeInit         = "node_init"
	OpPublisherInit    = "publisher_init"
	OpSubscriptionInit = "subscription_init"
	OpTimerInit        = "timer_init"
	OpExecutorInit     = "executor_init"
	OpExecutorAdd      = "executor_add"
	OpPublish          = "publish"
	OpTake             = "take"
)

var (
	// ErrTransportNotReady indicates the agent could not be reached.
	ErrTransportNotReady = errors.New("transport not ready")
	// ErrBadAlloc indicates the allocator budget is exhausted.
	ErrBadAlloc = errors.New("allocation failed")
	// ErrInvalidName indicates an invalid node name or namespace.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidTopic indicates an invalid topic name.
	ErrInvalidTopic = errors.New("invalid topic name")
)

// Error is a failed middleware operation.
type Error struct {
	Op  string
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// OpOf returns the operation of the first *Error in err's chain.
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}
