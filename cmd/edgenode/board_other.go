//go:build !linux && !tinygo

package main

import (
	"flag"

	"github.com/robotalks/edgenode/pkg/device"
	"github.com/robotalks/edgenode/pkg/hal"
)

var simSample = 100

func setupBoardFlags() {
	flag.IntVar(&simSample, "sim-sample", simSample, "Sample returned by the simulated sensor.")
}

func newBoard(conf *device.Config) (hal.Board, error) {
	board := hal.NewSimBoard()
	board.SetSample(hal.Pin(conf.Touch.SensorPin), simSample)
	return board, nil
}
