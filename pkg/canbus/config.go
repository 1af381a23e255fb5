package canbus

import (
	"flag"
	"fmt"
	"os"
)

// Config selects and parameterizes the CAN backend.
type Config struct {
	// Backend is "socketcan" or "sim".
	Backend       string
	Interface     string
	Bitrate       int
	ConfigureLink bool
}

var defaultConfig = Config{
	Backend:   "socketcan",
	Interface: DefaultInterface,
	Bitrate:   DefaultBitrate,
}

func init() {
	if val := os.Getenv("CAN_CHANNEL"); val != "" {
		defaultConfig.Interface = val
	}
	if val := os.Getenv("CAN_INTERFACE"); val != "" {
		defaultConfig.Backend = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Backend, "can-backend", defaultConfig.Backend, "CAN backend: socketcan or sim.")
	flag.StringVar(&defaultConfig.Interface, "can-if", defaultConfig.Interface, "SocketCAN interface.")
	flag.IntVar(&defaultConfig.Bitrate, "can-bitrate", defaultConfig.Bitrate, "CAN bitrate (bit/s).")
	flag.BoolVar(&defaultConfig.ConfigureLink, "can-setup", defaultConfig.ConfigureLink, "Configure the interface bitrate with ip(8) on start.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewBus creates the Bus selected by the config.
func (c *Config) NewBus() (Bus, error) {
	switch c.Backend {
	case "socketcan":
		bus := NewSocketBus(c.Interface)
		bus.ConfigureLink = c.ConfigureLink
		return bus, nil
	case "sim":
		return NewSimBus(1024), nil
	default:
		return nil, fmt.Errorf("unknown CAN backend: %q", c.Backend)
	}
}
