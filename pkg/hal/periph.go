package hal

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var hostState struct {
	once sync.Once
	err  error
}

// InitHost initialises the periph host drivers once per process.
func InitHost() error {
	hostState.once.Do(func() {
		state, err := host.Init()
		if err != nil {
			hostState.err = fmt.Errorf("periph host init: %v", err)
			return
		}
		for _, d := range state.Loaded {
			glog.V(2).Infof("periph driver loaded: %s", d)
		}
		for _, f := range state.Failed {
			glog.V(2).Infof("periph driver failed: %v", f)
		}
	})
	return hostState.err
}

// PeriphPin drives a periph.io GPIO. It is the generic digital output
// backend, the equivalent of pinMode/digitalWrite.
type PeriphPin struct {
	IO gpio.PinIO
}

// NewPeriphPin wraps a periph pin.
func NewPeriphPin(p gpio.PinIO) *PeriphPin {
	return &PeriphPin{IO: p}
}

// OpenPin looks up a pin by its periph name, e.g. "GPIO13".
func OpenPin(name string) (*PeriphPin, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown GPIO %q", name)
	}
	return NewPeriphPin(p), nil
}

// Name implements Named.
func (p *PeriphPin) Name() string { return p.IO.Name() }

// ConfigureOutput implements OutputConfigurer. The line starts low.
func (p *PeriphPin) ConfigureOutput() error {
	return p.IO.Out(gpio.Low)
}

// High implements Pin.
func (p *PeriphPin) High() error { return p.IO.Out(gpio.High) }

// Low implements Pin.
func (p *PeriphPin) Low() error { return p.IO.Out(gpio.Low) }

// Toggle implements Pin by reading back the line and writing the inverse.
func (p *PeriphPin) Toggle() error {
	return p.IO.Out(!p.IO.Read())
}

// Get implements LevelReader.
func (p *PeriphPin) Get() bool {
	return p.IO.Read() == gpio.High
}
