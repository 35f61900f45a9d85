package device

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/edgenode/pkg/adapter"
	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/link"
	"github.com/robotalks/edgenode/pkg/rmw"
	"github.com/robotalks/edgenode/pkg/transport/mqtt"
	"github.com/robotalks/edgenode/pkg/transport/serial"
)

// Profiles.
const (
	ProfileTouch   = "touch"
	ProfileCounter = "counter"
)

// Link modes.
const (
	LinkNetwork = "network"
	LinkSerial  = "serial"
	LinkSim     = "sim"
)

// Config defines the configuration of a device.
type Config struct {
	Profile string `yaml:"profile"`
	Link    string `yaml:"link"`

	Node NodeConfig `yaml:"node"`

	Network   link.Credentials `yaml:"network"`
	BrokerURL string           `yaml:"broker"`
	Channel   string           `yaml:"channel"`

	PollInterval time.Duration `yaml:"poll_interval"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	SpinTimeout  time.Duration `yaml:"spin_timeout"`

	// ExecutorCapacity is the declared number of executor handles, 0 for
	// the number the profile registers.
	ExecutorCapacity int        `yaml:"executor_capacity"`
	Limits           rmw.Limits `yaml:"limits"`
	MaxMessageSize   int        `yaml:"max_message_size"`

	LEDPin  int           `yaml:"led_pin"`
	Touch   TouchConfig   `yaml:"touch"`
	Counter CounterConfig `yaml:"counter"`
	Fault   FaultConfig   `yaml:"fault"`
}

// NodeConfig defines the node identity.
type NodeConfig struct {
	Name        string            `yaml:"name"`
	Namespace   string            `yaml:"namespace"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels"`
}

// TouchConfig configures the touch profile.
type TouchConfig struct {
	SensorPin       int           `yaml:"sensor_pin"`
	Threshold       int           `yaml:"threshold"`
	Period          time.Duration `yaml:"period"`
	Topic           string        `yaml:"topic"`
	PayloadCapacity int           `yaml:"payload_capacity"`
}

// CounterConfig configures the counter profile.
type CounterConfig struct {
	Period   time.Duration `yaml:"period"`
	Topic    string        `yaml:"topic"`
	LEDTopic string        `yaml:"led_topic"`
}

// FaultConfig configures the error loop.
type FaultConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BlinkCodes bool          `yaml:"blink_codes"`
}

// ConfigFile is the YAML file given by -config.
var ConfigFile string

var defaultConfig = builtinConfig()

func builtinConfig() Config {
	return Config{
		Profile:      ProfileTouch,
		Link:         LinkNetwork,
		Node:         NodeConfig{Name: "wifi_touch_node"},
		Network:      link.Credentials{AgentAddr: "localhost:1883"},
		BrokerURL:    "mqtt://localhost:1883",
		Channel:      "/dev/ttyUSB0",
		PollInterval: link.DefaultPollInterval,
		SettleDelay:  link.DefaultSettleDelay,
		SpinTimeout:  fx.DefaultSpinTimeout,
		Limits:       rmw.DefaultLimits,
		LEDPin:       2,
		Touch: TouchConfig{
			SensorPin:       4,
			Threshold:       adapter.DefaultThreshold,
			Period:          100 * time.Millisecond,
			Topic:           "touch_status",
			PayloadCapacity: adapter.DefaultPayloadCapacity,
		},
		Counter: CounterConfig{
			Period:   time.Second,
			Topic:    "counter",
			LEDTopic: "led",
		},
		Fault: FaultConfig{Interval: 100 * time.Millisecond},
	}
}

func init() {
	applyEnv(&defaultConfig)
}

func applyEnv(c *Config) {
	if val := os.Getenv("EDGE_PROFILE"); val != "" {
		c.Profile = val
	}
	if val := os.Getenv("EDGE_LINK"); val != "" {
		c.Link = val
	}
	if val := os.Getenv("EDGE_NODE"); val != "" {
		c.Node.Name = val
	}
	if val := os.Getenv("EDGE_NAMESPACE"); val != "" {
		c.Node.Namespace = val
	}
	if val := os.Getenv("EDGE_BROKER_URL"); val != "" {
		c.BrokerURL = val
	}
	if val := os.Getenv("EDGE_CHANNEL"); val != "" {
		c.Channel = val
	}
	if val := os.Getenv("EDGE_SSID"); val != "" {
		c.Network.SSID = val
	}
	if val := os.Getenv("EDGE_PASSWORD"); val != "" {
		c.Network.Password = val
	}
	if val := os.Getenv("EDGE_AGENT"); val != "" {
		c.Network.AgentAddr = val
	}
	if val := os.Getenv("EDGE_THRESHOLD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Touch.Threshold = n
		} else {
			glog.Warningf("EDGE_THRESHOLD: %v", err)
		}
	}
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Profile, "profile", c.Profile, "Device profile: touch or counter.")
	fs.StringVar(&c.Link, "link", c.Link, "Link mode: network, serial or sim.")
	fs.StringVar(&c.Node.Name, "node", c.Node.Name, "Node name.")
	fs.StringVar(&c.Node.Namespace, "ns", c.Node.Namespace, "Node namespace.")
	fs.StringVar(&c.BrokerURL, "broker", c.BrokerURL, "MQTT broker URL for the network link.")
	fs.StringVar(&c.Channel, "channel", c.Channel, "Serial device or ws:// URL for the serial link.")
	fs.StringVar(&c.Network.SSID, "ssid", c.Network.SSID, "Network name.")
	fs.StringVar(&c.Network.Password, "password", c.Network.Password, "Network password.")
	fs.StringVar(&c.Network.AgentAddr, "agent", c.Network.AgentAddr, "Agent host:port probed for association.")
	fs.IntVar(&c.Touch.Threshold, "threshold", c.Touch.Threshold, "Touch threshold, samples below are PRESSED.")
	fs.IntVar(&c.ExecutorCapacity, "executor-capacity", c.ExecutorCapacity, "Declared executor handles, 0 for the profile default.")
	fs.DurationVar(&c.SpinTimeout, "spin-timeout", c.SpinTimeout, "Maximum executor wait per spin.")
	fs.BoolVar(&c.Fault.BlinkCodes, "blink-codes", c.Fault.BlinkCodes, "Blink the failed step number in the error loop.")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&ConfigFile, "config", ConfigFile, "YAML config file.")
	bindFlags(flag.CommandLine, &defaultConfig)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadConfig builds the config from the built-in defaults, the YAML file,
// the environment and the command line flags explicitly set, in that order.
func LoadConfig(path string) (*Config, error) {
	conf := builtinConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(&conf)
	fs := flag.NewFlagSet(path, flag.ContinueOnError)
	bindFlags(fs, &conf)
	var errs fx.AggregatedError
	flag.Visit(func(f *flag.Flag) {
		if fs.Lookup(f.Name) != nil {
			errs.Add(fs.Set(f.Name, f.Value.String()))
		}
	})
	if err := errs.Aggregate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Resolve returns the effective config: LoadConfig when -config is given,
// otherwise NewConfig.
func Resolve() (*Config, error) {
	if ConfigFile != "" {
		return LoadConfig(ConfigFile)
	}
	return NewConfig(), nil
}

var (
	// ErrUnknownProfile indicates an invalid profile.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrUnknownLink indicates an invalid link mode.
	ErrUnknownLink = errors.New("unknown link mode")
)

// MessageSize gets the send and receive buffer size. On the serial link it
// never exceeds the data of one frame.
func (c *Config) MessageSize() int {
	size := c.MaxMessageSize
	if size <= 0 {
		size = rmw.DefaultMaxMessageSize
	}
	if c.Link == LinkSerial && size > serial.MaxDataLen {
		size = serial.MaxDataLen
	}
	return size
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs fx.AggregatedError
	switch c.Profile {
	case ProfileTouch, ProfileCounter:
	default:
		errs.Add(fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile))
	}
	switch c.Link {
	case LinkNetwork:
		if c.BrokerURL == "" {
			errs.Add(errors.New("broker URL required for network link"))
		} else if _, _, err := mqtt.ClientOptionsFromURL(c.BrokerURL); err != nil {
			errs.Add(fmt.Errorf("broker_url: %w", err))
		}
	case LinkSerial:
		if c.Channel == "" {
			errs.Add(errors.New("channel required for serial link"))
		}
	case LinkSim:
	default:
		errs.Add(fmt.Errorf("%w: %q", ErrUnknownLink, c.Link))
	}
	if err := rmw.ValidateNodeName(c.Node.Name); err != nil {
		errs.Add(err)
	}
	if err := rmw.ValidateNamespace(c.Node.Namespace); err != nil {
		errs.Add(err)
	}
	for name, d := range map[string]time.Duration{
		"poll_interval":  c.PollInterval,
		"settle_delay":   c.SettleDelay,
		"spin_timeout":   c.SpinTimeout,
		"touch.period":   c.Touch.Period,
		"counter.period": c.Counter.Period,
		"fault.interval": c.Fault.Interval,
	} {
		if d <= 0 {
			errs.Add(fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.ExecutorCapacity < 0 {
		errs.Add(fmt.Errorf("executor_capacity must not be negative, got %d", c.ExecutorCapacity))
	}
	if c.Touch.PayloadCapacity <= 0 {
		errs.Add(fmt.Errorf("touch.payload_capacity must be positive, got %d", c.Touch.PayloadCapacity))
	}
	return errs.Aggregate()
}

// Capacity returns the executor capacity to declare.
func (c *Config) Capacity() int {
	if c.ExecutorCapacity > 0 {
		return c.ExecutorCapacity
	}
	if c.Profile == ProfileCounter {
		return 2
	}
	return 1
}

// MachineID retrieves the unique ID identifying the machine, "" when
// unavailable.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		glog.V(4).Infof("machine id: %v", err)
		return ""
	}
	return id
}
