//go:build tinygo

package hal

import (
	"machine"
)

// MCUBoard drives the pins of the microcontroller. Sensor pins are sampled
// through the ADC and scaled down to 8 bits.
type MCUBoard struct {
	adcs map[Pin]machine.ADC
}

// NewMCUBoard creates an MCUBoard.
func NewMCUBoard() *MCUBoard {
	machine.InitADC()
	return &MCUBoard{adcs: make(map[Pin]machine.ADC)}
}

// ReadSensor implements Sensor.
func (b *MCUBoard) ReadSensor(pin Pin) (int, error) {
	adc, ok := b.adcs[pin]
	if !ok {
		adc = machine.ADC{Pin: machine.Pin(pin)}
		adc.Configure(machine.ADCConfig{})
		b.adcs[pin] = adc
	}
	return int(adc.Get() >> 8), nil
}

// ConfigureOutput implements Board.
func (b *MCUBoard) ConfigureOutput(pin Pin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

// WriteActuator implements Actuator.
func (b *MCUBoard) WriteActuator(pin Pin, level Level) error {
	machine.Pin(pin).Set(bool(level))
	return nil
}
