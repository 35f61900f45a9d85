// Package device adds shell commands for the node profiles.
package device

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/edgenode/pkg/cli/sh"
	"github.com/robotalks/edgenode/pkg/msgs"
)

// Default topics of the node profiles, relative to the selected node.
const (
	LEDTopic     = "led"
	TouchTopic   = "touch_status"
	CounterTopic = "counter"
)

var (
	// LEDCmd switches the LED of a counter node.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "on|off [TOPIC]",
		Func: func(c *ishell.Context) {
			msg, topic, err := ParseLEDArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Publish(topic, msg); err != nil {
				c.Err(err)
			}
		},
	}

	// TouchCmd prints the next touch status.
	TouchCmd = ishell.Cmd{
		Name:    "touch",
		Aliases: []string{"t"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			c.Args = echoArgs(TouchTopic, c.Args)
			sh.EchoCmd.Func(c)
		},
	}

	// CounterCmd prints the next counter values.
	CounterCmd = ishell.Cmd{
		Name: "counter",
		Help: "[COUNT]",
		Func: func(c *ishell.Context) {
			c.Args = echoArgs(CounterTopic, c.Args)
			sh.EchoCmd.Func(c)
		},
	}
)

// ParseLEDArgs parses the arguments of the led command: on|off [TOPIC].
func ParseLEDArgs(args []string) (*msgs.Bool, string, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, "", fmt.Errorf("expect on|off [TOPIC]")
	}
	on, err := sh.ParseBool(args[0])
	if err != nil {
		return nil, "", err
	}
	topic := LEDTopic
	if len(args) > 1 {
		topic = args[1]
	}
	return msgs.NewBool(on), topic, nil
}

func echoArgs(topic string, args []string) []string {
	return append([]string{topic}, args...)
}

func init() {
	sh.AddCmds(
		&LEDCmd,
		&TouchCmd,
		&CounterCmd,
	)
}
