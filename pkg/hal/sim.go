package hal

import (
	"sync"
)

// SimBoard is an in-memory Board. Sensor samples are set by the caller,
// and every actuator write is recorded.
type SimBoard struct {
	lock    sync.Mutex
	samples map[Pin]int
	outputs map[Pin]Level
	history map[Pin][]Level
	reads   int
}

// NewSimBoard creates a SimBoard.
func NewSimBoard() *SimBoard {
	return &SimBoard{
		samples: make(map[Pin]int),
		outputs: make(map[Pin]Level),
		history: make(map[Pin][]Level),
	}
}

// SetSample sets the value read from a sensor pin.
func (b *SimBoard) SetSample(pin Pin, val int) {
	b.lock.Lock()
	b.samples[pin] = val
	b.lock.Unlock()
}

// ReadSensor implements Sensor.
func (b *SimBoard) ReadSensor(pin Pin) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	val, ok := b.samples[pin]
	if !ok {
		return 0, noPin(pin)
	}
	b.reads++
	return val, nil
}

// ConfigureOutput implements Board.
func (b *SimBoard) ConfigureOutput(pin Pin) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.outputs[pin]; !ok {
		b.outputs[pin] = Low
	}
	return nil
}

// WriteActuator implements Actuator.
func (b *SimBoard) WriteActuator(pin Pin, level Level) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.outputs[pin]; !ok {
		return noPin(pin)
	}
	b.outputs[pin] = level
	b.history[pin] = append(b.history[pin], level)
	return nil
}

// Output gets the current level of an output pin.
func (b *SimBoard) Output(pin Pin) Level {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.outputs[pin]
}

// History returns all levels written to pin in order.
func (b *SimBoard) History(pin Pin) []Level {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Level(nil), b.history[pin]...)
}

// Reads returns the number of sensor samples taken.
func (b *SimBoard) Reads() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.reads
}
