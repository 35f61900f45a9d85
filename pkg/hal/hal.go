// Package hal abstracts the physical I/O of the device: sampled sensors and
// two-level actuators addressed by pin number.
package hal

import (
	"errors"
	"fmt"
)

// Pin identifies a physical pin.
type Pin int

// Level is an actuator output level.
type Level bool

// Output levels.
const (
	Low  Level = false
	High Level = true
)

// String implements Stringer.
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Toggle returns the opposite level.
func (l Level) Toggle() Level {
	return !l
}

// Sensor samples an analog input.
type Sensor interface {
	ReadSensor(Pin) (int, error)
}

// Actuator drives an output.
type Actuator interface {
	WriteActuator(Pin, Level) error
}

// Board is the complete physical I/O of a device.
type Board interface {
	Sensor
	Actuator
	ConfigureOutput(Pin) error
}

// ErrNoPin indicates the pin doesn't exist or isn't configured.
var ErrNoPin = errors.New("no such pin")

func noPin(pin Pin) error {
	return fmt.Errorf("%w: %d", ErrNoPin, pin)
}
