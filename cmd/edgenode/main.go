package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/edgenode/pkg/device"
	fx "github.com/robotalks/edgenode/pkg/framework"
)

func init() {
	device.SetupFlags()
	setupBoardFlags()
}

func main() {
	flag.Parse()

	conf, err := device.Resolve()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	board, err := newBoard(conf)
	if err != nil {
		glog.Exitf("board: %v", err)
	}
	dev, err := device.New(conf, board, nil, nil)
	if err != nil {
		glog.Exitf("device: %v", err)
	}
	glog.Infof("%s node %s over %s link", conf.Profile, conf.FullyQualifiedName(), conf.Link)

	r := fx.NewRunner().HandleSignals()
	r.Go(fx.NamedRun("device", fx.RunnableFunc(dev.Run)))
	if err := r.Wait(); err != nil {
		glog.Exit(err)
	}
}
