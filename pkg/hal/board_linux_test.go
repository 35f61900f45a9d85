//go:build linux && !tinygo

package hal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestSysfsBoard(t *testing.T) {
	root := t.TempDir()
	iio := filepath.Join(root, "iio")
	require.NoError(t, os.MkdirAll(iio, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(iio, "in_voltage4_raw"), []byte("25\n"), 0644))

	led := &gpiotest.Pin{N: "GPIO2", Num: 2, L: gpio.High}
	b := &SysfsBoard{
		Root:       root,
		SensorPath: "/iio/in_voltage%d_raw",
		PinByName: func(name string) gpio.PinIO {
			if name == "2" {
				return led
			}
			return nil
		},
	}
	val, err := b.ReadSensor(4)
	require.NoError(t, err)
	require.Equal(t, 25, val)
	_, err = b.ReadSensor(5)
	require.True(t, errors.Is(err, ErrNoPin))

	require.True(t, errors.Is(b.WriteActuator(2, High), ErrNoPin), "not configured yet")
	require.NoError(t, b.ConfigureOutput(2))
	require.Equal(t, gpio.Low, led.Read())

	require.NoError(t, b.WriteActuator(2, High))
	require.Equal(t, gpio.High, led.Read())
	require.NoError(t, b.WriteActuator(2, Low))
	require.Equal(t, gpio.Low, led.Read())

	require.True(t, errors.Is(b.ConfigureOutput(7), ErrNoPin))
	require.True(t, errors.Is(b.WriteActuator(7, High), ErrNoPin))
}
