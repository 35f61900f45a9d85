package adapter

import (
	"context"
	"time"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// Counter publishes an increasing value on every fire.
type Counter struct {
	Publisher Publisher

	value int32
}

// HandleTimer implements TimerHandler. The value advances even when
// publishing fails, and wraps around on overflow.
func (c *Counter) HandleTimer(ctx context.Context, _ *fx.Timer, _ time.Duration) error {
	err := c.Publisher.Publish(msgs.NewInt32(c.value))
	c.value++
	return err
}

// Value gets the next value to publish.
func (c *Counter) Value() int32 {
	return c.value
}
