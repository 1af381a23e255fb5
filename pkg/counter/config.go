package counter

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/canbus"
	"github.com/robotalks/sketch.go/pkg/console"
	"github.com/robotalks/sketch.go/pkg/hal"
)

// Config defines the configurations for the sketch.
type Config struct {
	ID       uint
	Delay    time.Duration
	Window   int
	LongLoop time.Duration
}

var defaultConfig = Config{
	ID:       uint(canbus.CounterID),
	Delay:    DefaultDelay,
	Window:   DefaultWindow,
	LongLoop: DefaultLongLoop,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.UintVar(&defaultConfig.ID, "can-id", defaultConfig.ID, "CAN identifier of counter frames.")
	flag.DurationVar(&defaultConfig.Delay, "delay", defaultConfig.Delay, "Delay at the end of each iteration.")
	flag.IntVar(&defaultConfig.Window, "window", defaultConfig.Window, "Iterations per statistics report.")
	flag.DurationVar(&defaultConfig.LongLoop, "long-loop", defaultConfig.LongLoop, "Warn when a loop takes longer, 0 disables.")
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

// NewBroadcaster opens the board lines and creates the Broadcaster.
func (c *Config) NewBroadcaster(pins *hal.Pins, bus canbus.Bus, bitrate int, con *console.Console) (*Broadcaster, error) {
	if c.ID > 0x7FF {
		return nil, fmt.Errorf("CAN id 0x%x exceeds 11 bits", c.ID)
	}
	board := pins.Board
	led, err := pins.Open(board.LED)
	if err != nil {
		return nil, err
	}
	standby := optionalPin(pins, "standby", board.CANStandby)
	boost := optionalPin(pins, "boost", board.BoostEnable)
	b := NewBroadcaster(bus, con, led, standby, boost)
	b.ID, b.Bitrate = uint32(c.ID), bitrate
	b.Delay, b.Window, b.LongLoop = c.Delay, c.Window, c.LongLoop
	return b, nil
}

// optionalPin opens a transceiver power line. A line the host doesn't
// have is left alone, the transceiver is assumed to be powered.
func optionalPin(pins *hal.Pins, what, name string) hal.Pin {
	if name == "" {
		return nil
	}
	pin, err := pins.Open(name)
	if err != nil {
		glog.Warningf("CAN %s line %s: %v", what, name, err)
		return nil
	}
	return pin
}
