package adapter

import (
	"context"
	"errors"
	"fmt"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/hal"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// ErrUnsupportedMessage indicates a command of an unexpected type.
var ErrUnsupportedMessage = errors.New("unsupported message")

// LED drives an output pin from command messages.
type LED struct {
	Actuator hal.Actuator
	Pin      hal.Pin

	commands uint64
}

// HandleMessage implements MessageHandler.
func (l *LED) HandleMessage(ctx context.Context, msg fx.Message) error {
	var level hal.Level
	switch m := msg.(type) {
	case *msgs.Bool:
		level = hal.Level(m.Value)
	case *msgs.Int32:
		level = m.Value != 0
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
	l.commands++
	return l.Actuator.WriteActuator(l.Pin, level)
}

// Commands returns the number of commands applied.
func (l *LED) Commands() uint64 {
	return l.commands
}
