package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/edgenode/pkg/rmw"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
	"github.com/robotalks/edgenode/pkg/transport/serial"
)

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		err    error
		msg    string
	}{
		{name: "builtin", mutate: func(*Config) {}},
		{name: "counter", mutate: func(c *Config) { c.Profile = ProfileCounter }},
		{name: "unknown profile", mutate: func(c *Config) { c.Profile = "robot" }, err: ErrUnknownProfile},
		{name: "unknown link", mutate: func(c *Config) { c.Link = "bluetooth" }, err: ErrUnknownLink},
		{name: "bad node", mutate: func(c *Config) { c.Node.Name = "wifi-touch" }, err: rmw.ErrInvalidName},
		{name: "bad namespace", mutate: func(c *Config) { c.Node.Namespace = "a//b" }, err: rmw.ErrInvalidName},
		{name: "no broker", mutate: func(c *Config) { c.BrokerURL = "" }, msg: "broker URL"},
		{name: "unparseable broker", mutate: func(c *Config) { c.BrokerURL = "mqtt://bad host:1883" }, msg: "broker_url"},
		{name: "broker without host", mutate: func(c *Config) { c.BrokerURL = "mqtt:///edge" }, err: mqtt.ErrInvalidBrokerURL},
		{name: "sim ignores broker", mutate: func(c *Config) { c.Link, c.BrokerURL = LinkSim, "::" }},
		{name: "no channel", mutate: func(c *Config) { c.Link, c.Channel = LinkSerial, "" }, msg: "channel"},
		{name: "zero period", mutate: func(c *Config) { c.Touch.Period = 0 }, msg: "touch.period"},
		{name: "negative capacity", mutate: func(c *Config) { c.ExecutorCapacity = -1 }, msg: "executor_capacity"},
		{
			name:   "multiple",
			mutate: func(c *Config) { c.Profile, c.Link = "x", "y" },
			err:    ErrUnknownLink,
			msg:    "Multiple errors",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := builtinConfig()
			tc.mutate(&conf)
			err := conf.Validate()
			if tc.err == nil && tc.msg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err), "%v", err)
			}
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestConfigCapacity(t *testing.T) {
	conf := builtinConfig()
	require.Equal(t, 1, conf.Capacity())
	conf.Profile = ProfileCounter
	require.Equal(t, 2, conf.Capacity())
	conf.ExecutorCapacity = 5
	require.Equal(t, 5, conf.Capacity())
}

func TestConfigMessageSize(t *testing.T) {
	conf := builtinConfig()
	require.Equal(t, rmw.DefaultMaxMessageSize, conf.MessageSize())
	conf.MaxMessageSize = 512
	require.Equal(t, 512, conf.MessageSize())
	conf.Link = LinkSerial
	require.Equal(t, serial.MaxDataLen, conf.MessageSize())
	conf.MaxMessageSize = 64
	require.Equal(t, 64, conf.MessageSize())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile: counter
link: serial
channel: ws://localhost:8080/serial
node:
  name: bench
  labels:
    room: lab
counter:
  period: 500ms
  topic: ticks
limits:
  nodes: 1
  publishers: 2
  subscriptions: 1
  timers: 1
  executors: 1
`), 0644))
	t.Setenv("EDGE_NODE", "bench2")
	t.Setenv("EDGE_THRESHOLD", "12")

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, conf.Validate())
	require.Equal(t, ProfileCounter, conf.Profile)
	require.Equal(t, LinkSerial, conf.Link)
	require.Equal(t, "ws://localhost:8080/serial", conf.Channel)
	require.Equal(t, "bench2", conf.Node.Name, "environment overrides file")
	require.Equal(t, "lab", conf.Node.Labels["room"])
	require.Equal(t, 500*time.Millisecond, conf.Counter.Period)
	require.Equal(t, "ticks", conf.Counter.Topic)
	require.Equal(t, "led", conf.Counter.LEDTopic, "builtin kept")
	require.Equal(t, 12, conf.Touch.Threshold)
	require.Equal(t, 2, conf.Limits.Publishers)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.True(t, os.IsNotExist(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("profile: [\n"), 0644))
	_, err = LoadConfig(bad)
	require.Error(t, err)
}

func TestNewConfigCopies(t *testing.T) {
	conf := NewConfig()
	conf.Node.Name = "changed"
	require.NotEqual(t, "changed", Default().Node.Name)
}

func TestFullyQualifiedName(t *testing.T) {
	conf := builtinConfig()
	require.Equal(t, "/wifi_touch_node", conf.FullyQualifiedName())
	conf.Node.Namespace = "/lab/"
	require.Equal(t, "/lab/wifi_touch_node", conf.FullyQualifiedName())
}
