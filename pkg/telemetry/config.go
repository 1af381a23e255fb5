package telemetry

import (
	"flag"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// Config provides options to setup the Publisher.
type Config struct {
	// BrokerURL specifies the MQTT broker, empty disables telemetry.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
	NodeID    string
}

var defaultConfig Config

func init() {
	if val := os.Getenv("SKETCH_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	defaultConfig.NodeID = NodeID()
}

// NodeID identifies this machine, the hostname when no machine id exists.
func NodeID() string {
	id, err := machineid.ProtectedID("sketch.go")
	if err == nil {
		return id[:12]
	}
	glog.V(1).Infof("machine id: %v", err)
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL for telemetry, empty to disable.")
	flag.StringVar(&defaultConfig.NodeID, "node-id", defaultConfig.NodeID, "Node ID in telemetry topics.")
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

// Enabled indicates a broker is configured.
func (c *Config) Enabled() bool {
	return c.BrokerURL != ""
}

// NewPublisher creates the Publisher, nil when disabled.
func (c *Config) NewPublisher(meta Meta) (*Publisher, error) {
	if !c.Enabled() {
		return nil, nil
	}
	return NewPublisher(c.BrokerURL, c.NodeID, meta)
}
