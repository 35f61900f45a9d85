package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/edgenode/pkg/agent"
	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
)

var (
	brokerURL  = "mqtt://localhost:1883"
	channels   string
	listenAddr string
)

func init() {
	if val := os.Getenv("EDGE_BROKER_URL"); val != "" {
		brokerURL = val
	}
	flag.StringVar(&brokerURL, "broker", brokerURL, "MQTT broker URL.")
	flag.StringVar(&channels, "serial", channels, "Comma separated serial devices nodes are attached to.")
	flag.StringVar(&listenAddr, "listen", listenAddr, "Address serving node channels over websocket at /serial.")
}

func main() {
	flag.Parse()
	if channels == "" && listenAddr == "" {
		glog.Exit("-serial or -listen required")
	}

	uplink, err := mqtt.NewTransport(brokerURL, "")
	if err != nil {
		glog.Exitf("broker: %v", err)
	}
	r := fx.NewRunner().HandleSignals()
	if err := uplink.Connect(r.Context); err != nil {
		glog.Exitf("connect %s: %v", brokerURL, err)
	}
	defer uplink.Close()
	a := agent.New(uplink)

	for _, name := range strings.Split(channels, ",") {
		if name = strings.TrimSpace(name); name != "" {
			r.Go(fx.NamedRun(name, &agent.ChannelServer{Agent: a, Channel: name}))
		}
	}
	if listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/serial", a.WebsocketHandler(r.Context))
		server := &http.Server{Addr: listenAddr, Handler: mux}
		r.Go(fx.NamedRun("websocket", fx.RunnableFunc(func(ctx context.Context) error {
			glog.Infof("serving websocket on %s", listenAddr)
			return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
		})))
	}
	if err := r.Wait(); err != nil {
		glog.Exit(err)
	}
}
