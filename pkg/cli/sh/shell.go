// Package sh is the interactive shell of edgectl. Commands talk to nodes
// through the MQTT broker the agent bridges them to.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/edgenode/pkg/msgs"
	"github.com/robotalks/edgenode/pkg/rmw"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	BrokerURL   string
	Timeout     time.Duration

	Shell *ishell.Shell
	Queue *mqtt.Queue
	// Namespace resolves relative topics, taken from the node in use.
	Namespace string
	Node      string
}

const (
	shellKey        = "$shell"
	unselectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	brokerURL  = "mqtt://localhost:1883"
	namespace  string
	timeout    = time.Second

	// commands
	commands = []*ishell.Cmd{
		&NodesCmd,
		&UseCmd,
		&PubCmd,
		&EchoCmd,
	}
)

func init() {
	if val := os.Getenv("EDGE_BROKER_URL"); val != "" {
		brokerURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&brokerURL, "broker", brokerURL, "MQTT broker URL.")
	flag.StringVar(&namespace, "ns", namespace, "Namespace of relative topics.")
	flag.DurationVar(&timeout, "timeout", timeout, "Broker operation and discovery timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		BrokerURL:   brokerURL,
		Timeout:     timeout,
		Namespace:   namespace,

		Shell: ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unselectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// NodeMeta decodes the announced metadata, leaving it empty when malformed.
func NodeMeta(info mqtt.NodeInfo) (meta rmw.NodeMeta) {
	json.Unmarshal(info.Meta, &meta)
	return
}

// FormatInfo prints NodeInfo into friendly string for display.
func FormatInfo(info mqtt.NodeInfo) string {
	var w bytes.Buffer
	meta := NodeMeta(info)
	fmt.Fprintf(&w, "%s", info.Name)
	if meta.Description != "" {
		fmt.Fprintf(&w, ": %s", meta.Description)
	}
	if profile := meta.Labels["profile"]; profile != "" {
		fmt.Fprintf(&w, " [%s]", profile)
	}
	return w.String()
}

// NamespaceOf returns the namespace part of a node name.
func NamespaceOf(node string) string {
	node = strings.Trim(node, "/")
	if pos := strings.LastIndex(node, "/"); pos >= 0 {
		return node[:pos]
	}
	return ""
}

// Topic resolves topic against the namespace in use into the broker topic.
func (s *Shell) Topic(topic string) (string, error) {
	fqtn, err := rmw.ResolveTopic(s.Namespace, topic)
	if err != nil {
		return "", err
	}
	return rmw.TransportTopic(fqtn), nil
}

// Connect connects the broker once.
func (s *Shell) Connect() (*mqtt.Queue, error) {
	if s.Queue != nil {
		return s.Queue, nil
	}
	q, err := mqtt.NewQueueFromURL(s.BrokerURL)
	if err != nil {
		return nil, err
	}
	if err := s.wait(q.Connect()); err != nil {
		return nil, err
	}
	s.Queue = q
	return q, nil
}

// Close disconnects the broker.
func (s *Shell) Close() {
	if s.Queue != nil {
		s.Queue.Close()
		s.Queue = nil
	}
}

type waiter interface {
	WaitTimeout(time.Duration) bool
	Error() error
}

func (s *Shell) wait(token waiter) error {
	if !token.WaitTimeout(s.Timeout) {
		return mqtt.ErrTimeout
	}
	return token.Error()
}

// Discover lists the nodes present on the broker.
func (s *Shell) Discover() ([]mqtt.NodeInfo, error) {
	q, err := s.Connect()
	if err != nil {
		return nil, err
	}
	return mqtt.Discover(context.Background(), q, s.Timeout)
}

// Use selects the node whose namespace resolves relative topics.
func (s *Shell) Use(node string) {
	s.Node = strings.Trim(node, "/")
	s.Namespace = NamespaceOf(s.Node)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Node))
}

// Publish encodes msg and publishes it on topic.
func (s *Shell) Publish(topic string, msg msgs.SerializableMessage) error {
	q, err := s.Connect()
	if err != nil {
		return err
	}
	name, err := s.Topic(topic)
	if err != nil {
		return err
	}
	payload, err := msgs.Encode(msg)
	if err != nil {
		return err
	}
	return s.wait(q.PubWith(name, payload, 1, false))
}

// Print prints a received message.
func (s *Shell) Print(c *ishell.Context, topic string, payload []byte) {
	msg, err := msgs.Decode(payload)
	if err != nil {
		c.Printf("%s: bad message: %v\n", topic, err)
		return
	}
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{
			"topic":  topic,
			"schema": msg.SchemaID(),
			"data":   msg.Serializable(),
		})
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Printf("%s: %s\n", topic, msgs.Format(msg))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// NodesCmd discovers nodes.
	NodesCmd = ishell.Cmd{
		Name:    "nodes",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.Discover()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				items := make([]map[string]interface{}, 0, len(infoList))
				for _, info := range infoList {
					items = append(items, map[string]interface{}{"name": info.Name, "meta": NodeMeta(info)})
				}
				out, err := json.Marshal(items)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No nodes found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// UseCmd selects a node.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "[NODE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Use(c.Args[0])
				return
			}
			infoList, err := s.Discover()
			if err != nil {
				c.Err(err)
				return
			}
			switch {
			case len(infoList) == 0:
				c.Err(fmt.Errorf("no node discovered"))
			case len(infoList) == 1:
				s.Use(infoList[0].Name)
			case !s.Interactive:
				c.Err(fmt.Errorf("more than 1 nodes discovered in non-interactive mode"))
			default:
				items := make([]string, len(infoList))
				for n, info := range infoList {
					items[n] = FormatInfo(info)
				}
				s.Use(infoList[s.Shell.MultiChoice(items, "Which one to use?")].Name)
			}
		},
	}

	// PubCmd publishes a message.
	PubCmd = ishell.Cmd{
		Name:    "pub",
		Aliases: []string{"p"},
		Help:    "TOPIC SCHEMA VALUE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("expect TOPIC SCHEMA VALUE"))
				return
			}
			msg, err := ParseValue(c.Args[1], strings.Join(c.Args[2:], " "))
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Publish(c.Args[0], msg); err != nil {
				c.Err(err)
			}
		},
	}

	// EchoCmd prints messages received on a topic.
	EchoCmd = ishell.Cmd{
		Name:    "echo",
		Aliases: []string{"watch", "w"},
		Help:    "TOPIC [COUNT]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("expect TOPIC"))
				return
			}
			count := 1
			if len(c.Args) > 1 {
				if _, err := fmt.Sscanf(c.Args[1], "%d", &count); err != nil || count <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[1]))
					return
				}
			}
			s := ShellFrom(c)
			q, err := s.Connect()
			if err != nil {
				c.Err(err)
				return
			}
			topic := c.Args[0]
			if !mqtt.IsWildcard(topic) {
				if topic, err = s.Topic(topic); err != nil {
					c.Err(err)
					return
				}
			}
			recvCh := make(chan [2][]byte, count)
			sub := q.Sub(topic, func(topic string, payload []byte) {
				select {
				case recvCh <- [2][]byte{[]byte(topic), append([]byte(nil), payload...)}:
				default:
				}
			})
			defer sub.Close()
			for n := 0; n < count; n++ {
				select {
				case recv := <-recvCh:
					s.Print(c, string(recv[0]), recv[1])
				case <-time.After(s.Timeout * 10):
					c.Err(mqtt.ErrTimeout)
					return
				}
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
