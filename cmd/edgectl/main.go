package main

import (
	"github.com/robotalks/edgenode/pkg/cli/sh"

	_ "github.com/robotalks/edgenode/pkg/cli/cmds/device"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
