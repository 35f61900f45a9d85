package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/edgenode/pkg/msgs"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
)

var (
	brokerURL = "mqtt://localhost:1883"
)

func init() {
	if val := os.Getenv("EDGE_BROKER_URL"); val != "" {
		brokerURL = val
	}
	flag.StringVar(&brokerURL, "broker", brokerURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(brokerURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", func(topic string, payload []byte) {
		if strings.HasSuffix(topic, mqtt.MetaSuffix) {
			if len(payload) == 0 {
				log.Printf("%s: gone", strings.TrimSuffix(topic, mqtt.MetaSuffix))
				return
			}
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		msg, err := msgs.Decode(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, msgs.Format(msg))
	})
	<-(chan struct{})(nil)
}
