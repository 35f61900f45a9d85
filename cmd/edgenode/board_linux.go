//go:build linux && !tinygo

package main

import (
	"flag"
	"fmt"

	"github.com/robotalks/edgenode/pkg/device"
	"github.com/robotalks/edgenode/pkg/hal"
)

var (
	boardType  = "sim"
	sysfsRoot  string
	sensorPath = hal.DefaultSensorPath
	simSample  = 100
)

func setupBoardFlags() {
	flag.StringVar(&boardType, "board", boardType, "Board: sysfs (GPIO and IIO) or sim.")
	flag.StringVar(&sysfsRoot, "sysfs-root", sysfsRoot, "Prefix of the sensor paths.")
	flag.StringVar(&sensorPath, "sensor-path", sensorPath, "IIO channel file pattern taking the pin number.")
	flag.IntVar(&simSample, "sim-sample", simSample, "Sample returned by the simulated sensor.")
}

func newBoard(conf *device.Config) (hal.Board, error) {
	switch boardType {
	case "sysfs":
		board, err := hal.NewSysfsBoard()
		if err != nil {
			return nil, err
		}
		board.Root, board.SensorPath = sysfsRoot, sensorPath
		return board, nil
	case "sim":
		return newSimBoard(conf), nil
	}
	return nil, fmt.Errorf("unknown board %q", boardType)
}

func newSimBoard(conf *device.Config) *hal.SimBoard {
	board := hal.NewSimBoard()
	board.SetSample(hal.Pin(conf.Touch.SensorPin), simSample)
	return board
}
