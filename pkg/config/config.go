// Package config holds the settings of the node and its tools. Values come
// from the defaults, an optional YAML file, NODETERM_* environment
// variables and command line flags, in increasing precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/nodeterm/pkg/account"
	"github.com/robotalks/nodeterm/pkg/flash"
	"github.com/robotalks/nodeterm/pkg/guard"
	"github.com/robotalks/nodeterm/pkg/logstore"
)

// Links the console can be served on.
const (
	LinkStdio     = "stdio"
	LinkWebsocket = "ws"
)

// Config defines the configurations of the node.
type Config struct {
	NodeID   string `yaml:"node_id"`
	Hostname string `yaml:"hostname"`

	// Flash is the path of the flash image file.
	Flash           string `yaml:"flash"`
	FlashSectorSize uint32 `yaml:"flash_sector_size"`
	FlashSectors    int    `yaml:"flash_sectors"`
	LogSlots        int    `yaml:"log_slots"`

	Link   string `yaml:"link"`
	Listen string `yaml:"listen"`
	WSPath string `yaml:"ws_path"`

	// MQTTBrokerURL enables telemetry, e.g. mqtt://host:port/topic-prefix.
	MQTTBrokerURL   string        `yaml:"mqtt"`
	TelemetryPeriod time.Duration `yaml:"telemetry_period"`

	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	SerialTimeout  time.Duration `yaml:"serial_timeout"`
	BusTimeout     time.Duration `yaml:"bus_timeout"`
	StorageTimeout time.Duration `yaml:"storage_timeout"`
	EraseTimeout   time.Duration `yaml:"erase_timeout"`
	NoColor        bool          `yaml:"no_color"`
}

var defaultConfig = Config{
	Flash:           "nodeterm.flash",
	FlashSectorSize: 16 * 1024,
	FlashSectors:    2,
	LogSlots:        logstore.DefaultConfig.Slots,
	Link:            LinkStdio,
	Listen:          "localhost:2323",
	WSPath:          "/console",
	TelemetryPeriod: 5 * time.Second,
	IdleTimeout:     300000 * time.Millisecond,
	SerialTimeout:   guard.DefaultTimeouts.Serial,
	BusTimeout:      guard.DefaultTimeouts.Bus,
	StorageTimeout:  guard.DefaultTimeouts.Storage,
	EraseTimeout:    logstore.DefaultConfig.EraseTimeout,
}

var configFile string

func init() {
	defaultConfig.NodeID = MachineID()
	if host, err := os.Hostname(); err == nil {
		defaultConfig.Hostname = host
	}
	defaultConfig.applyEnv(os.Getenv)
}

// MachineID retrieves the id identifying the machine, or the host name
// when it is unavailable.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		host, _ := os.Hostname()
		return host
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func (c *Config) applyEnv(getenv func(string) string) {
	if val := getenv("NODETERM_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := getenv("NODETERM_FLASH"); val != "" {
		c.Flash = val
	}
	if val := getenv("NODETERM_LINK"); val != "" {
		c.Link = val
	}
	if val := getenv("NODETERM_LISTEN"); val != "" {
		c.Listen = val
	}
	if val := getenv("NODETERM_NODE_ID"); val != "" {
		c.NodeID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file, applied before the flags.")
	defaultConfig.SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet registers the flags of c on fs.
func (c *Config) SetupFlagSet(fs *flag.FlagSet) {
	fs.StringVar(&c.NodeID, "id", c.NodeID, "Node ID")
	fs.StringVar(&c.Hostname, "hostname", c.Hostname, "Host name shown in the prompt")
	fs.StringVar(&c.Flash, "flash", c.Flash, "Flash image file")
	fs.IntVar(&c.LogSlots, "log-slots", c.LogSlots, "Log record slots")
	fs.StringVar(&c.Link, "link", c.Link, "Console link: stdio or ws")
	fs.StringVar(&c.Listen, "listen", c.Listen, "Websocket listen address")
	fs.StringVar(&c.WSPath, "ws-path", c.WSPath, "Websocket path")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL, empty disables telemetry")
	fs.DurationVar(&c.TelemetryPeriod, "telemetry-period", c.TelemetryPeriod, "Sensor telemetry period")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "Session idle timeout")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "Disable console colors")
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

// Parse loads the file given by -config, applies the environment and
// parses the command line into the default config.
func Parse() error {
	return defaultConfig.Parse(flag.CommandLine, os.Args[1:], os.Getenv)
}

// Parse applies the config file named by -config in args, then the
// environment, then parses args with fs.
func (c *Config) Parse(fs *flag.FlagSet, args []string, getenv func(string) string) error {
	if path := configArg(args); path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	c.applyEnv(getenv)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.Validate()
}

// configArg finds the value of -config or --config in args.
func configArg(args []string) string {
	for n, arg := range args {
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if len(name) == len(arg) {
			continue
		}
		if name == "config" && n+1 < len(args) {
			return args[n+1]
		}
		if strings.HasPrefix(name, "config=") {
			return name[len("config="):]
		}
	}
	return ""
}

// LoadFile overlays c with the YAML file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	glog.V(1).Infof("config loaded from %s", path)
	return nil
}

// Validate checks the ranges of the settings.
func (c *Config) Validate() error {
	switch {
	case c.NodeID == "":
		return fmt.Errorf("node id must be specified")
	case strings.ContainsAny(c.NodeID, "/+#"):
		return fmt.Errorf("node id %q must not contain MQTT topic characters", c.NodeID)
	case c.Link != LinkStdio && c.Link != LinkWebsocket:
		return fmt.Errorf("unknown link %q", c.Link)
	case c.FlashSectors < 2:
		return fmt.Errorf("flash needs at least 2 sectors, got %d", c.FlashSectors)
	case c.FlashSectorSize%flash.WordSize != 0:
		return fmt.Errorf("flash sector size %d not word aligned", c.FlashSectorSize)
	case c.LogSlots <= 0:
		return fmt.Errorf("log slots must be positive")
	case uint32(logstore.HeaderSize+c.LogSlots*logstore.RecordSize) > c.FlashSectorSize:
		return fmt.Errorf("%d log slots do not fit a %d byte sector", c.LogSlots, c.FlashSectorSize)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("idle timeout must be positive")
	case c.TelemetryPeriod <= 0:
		return fmt.Errorf("telemetry period must be positive")
	}
	return nil
}

// Geometry is the layout of the flash image.
func (c *Config) Geometry() flash.Geometry {
	return flash.Geometry{SectorSize: c.FlashSectorSize, Sectors: c.FlashSectors}
}

// Timeouts are the bounds of the shared locks.
func (c *Config) Timeouts() guard.Timeouts {
	return guard.Timeouts{Serial: c.SerialTimeout, Bus: c.BusTimeout, Storage: c.StorageTimeout}
}

// LogStore is the log store sizing; logs live in sector 0.
func (c *Config) LogStore() logstore.Config {
	return logstore.Config{Sector: 0, Slots: c.LogSlots, EraseTimeout: c.EraseTimeout}
}

// Accounts is the credential store setup; the credential lives in sector 1.
func (c *Config) Accounts() account.Config {
	return account.Config{Sector: 1, EraseTimeout: c.EraseTimeout}
}
