//go:build tinygo

package main

import (
	"github.com/robotalks/edgenode/pkg/device"
	"github.com/robotalks/edgenode/pkg/hal"
)

func setupBoardFlags() {}

func newBoard(*device.Config) (hal.Board, error) {
	return hal.NewMCUBoard(), nil
}
