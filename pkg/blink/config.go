package blink

import (
	"flag"
	"time"

	"github.com/robotalks/sketch.go/pkg/hal"
)

// Config defines the configurations for the sketch.
type Config struct {
	HalfPeriod time.Duration
	Divider    int
}

var defaultConfig = Config{
	HalfPeriod: DefaultHalfPeriod,
	Divider:    DefaultDivider,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.HalfPeriod, "half-period", defaultConfig.HalfPeriod, "Pulse line half period.")
	flag.IntVar(&defaultConfig.Divider, "divider", defaultConfig.Divider, "Pulses per LED toggle.")
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

// NewBlinker opens the board lines and creates the Blinker. The LED
// uses the generic pin backend, the pulse line the port registers
// when the board maps them.
func (c *Config) NewBlinker(pins *hal.Pins) (*Blinker, error) {
	led, err := pins.Open(pins.Board.LED)
	if err != nil {
		return nil, err
	}
	pulse, err := pins.PulsePin()
	if err != nil {
		return nil, err
	}
	b := NewBlinker(led, pulse)
	b.HalfPeriod, b.Divider = c.HalfPeriod, c.Divider
	return b, nil
}
