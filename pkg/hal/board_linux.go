//go:build linux && !tinygo

package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// SysfsBoard drives GPIO outputs through the periph host drivers and samples
// sensors from IIO raw channels.
type SysfsBoard struct {
	// Root is prepended to the sensor paths, "" in production.
	Root string
	// SensorPath is the IIO channel file pattern taking the pin number.
	SensorPath string
	// PinByName resolves a GPIO by name or number.
	PinByName func(string) gpio.PinIO

	lock    sync.Mutex
	outputs map[Pin]gpio.PinIO
}

// DefaultSensorPath reads the ADC channels of the first IIO device.
const DefaultSensorPath = "/sys/bus/iio/devices/iio:device0/in_voltage%d_raw"

// NewSysfsBoard loads the host drivers and creates a SysfsBoard on them.
func NewSysfsBoard() (*SysfsBoard, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return &SysfsBoard{SensorPath: DefaultSensorPath, PinByName: gpioreg.ByName}, nil
}

// ReadSensor implements Sensor.
func (b *SysfsBoard) ReadSensor(pin Pin) (int, error) {
	pattern := b.SensorPath
	if pattern == "" {
		pattern = DefaultSensorPath
	}
	data, err := os.ReadFile(filepath.Join(b.Root, fmt.Sprintf(pattern, int(pin))))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, noPin(pin)
		}
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// ConfigureOutput implements Board. The pin starts low.
func (b *SysfsBoard) ConfigureOutput(pin Pin) error {
	byName := b.PinByName
	if byName == nil {
		byName = gpioreg.ByName
	}
	p := byName(strconv.Itoa(int(pin)))
	if p == nil {
		return noPin(pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.outputs == nil {
		b.outputs = make(map[Pin]gpio.PinIO)
	}
	b.outputs[pin] = p
	return nil
}

// WriteActuator implements Actuator.
func (b *SysfsBoard) WriteActuator(pin Pin, level Level) error {
	b.lock.Lock()
	p, ok := b.outputs[pin]
	b.lock.Unlock()
	if !ok {
		return noPin(pin)
	}
	return p.Out(gpio.Level(level))
}
