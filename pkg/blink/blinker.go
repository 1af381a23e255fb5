// Package blink is the two line blink sketch: a square wave on the
// pulse line and a status LED toggled once every Divider pulses.
package blink

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"

	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
)

// Defaults
const (
	// DefaultHalfPeriod gives a 100 kHz pulse line.
	DefaultHalfPeriod = 5 * time.Microsecond
	DefaultDivider    = 20000
)

// Blinker drives the two lines. It is owned by the loop.
type Blinker struct {
	// LED is line 1, toggled by the divider.
	LED hal.Pin
	// Pulse is line 2, the square wave.
	Pulse      hal.Pin
	HalfPeriod time.Duration
	Divider    int

	count   int
	pulses  uint64
	toggles uint64
}

// NewBlinker creates a Blinker with default timing.
func NewBlinker(led, pulse hal.Pin) *Blinker {
	return &Blinker{
		LED:        led,
		Pulse:      pulse,
		HalfPeriod: DefaultHalfPeriod,
		Divider:    DefaultDivider,
	}
}

// Name implements Named.
func (b *Blinker) Name() string { return "blink" }

// AddToLoop implements LoopAdder.
func (b *Blinker) AddToLoop(l *fx.Loop) {
	l.AddSketch(b)
}

// Setup implements Sketch.
func (b *Blinker) Setup(fx.SetupContext) error {
	if b.Divider <= 0 {
		return fmt.Errorf("invalid divider %d", b.Divider)
	}
	if err := hal.ConfigureOutput(b.LED); err != nil {
		return fmt.Errorf("LED: %v", err)
	}
	if err := hal.ConfigureOutput(b.Pulse); err != nil {
		return fmt.Errorf("pulse: %v", err)
	}
	glog.Infof("blink: pulse %s, LED toggles every %d pulses", b.Frequency(), b.Divider)
	return nil
}

// Control implements Sketch.
func (b *Blinker) Control(cc fx.ControlContext) error {
	return b.Tick(cc.Clock())
}

// Tick emits one pulse and advances the divider.
func (b *Blinker) Tick(clock fx.Clock) error {
	if err := b.Pulse.High(); err != nil {
		return err
	}
	clock.Sleep(b.HalfPeriod)
	if err := b.Pulse.Low(); err != nil {
		return err
	}
	clock.Sleep(b.HalfPeriod)
	b.pulses++

	b.count++
	if b.count >= b.Divider {
		b.count = 0
		if err := b.LED.Toggle(); err != nil {
			return err
		}
		b.toggles++
	}
	return nil
}

// Frequency is the nominal frequency of the pulse line.
func (b *Blinker) Frequency() physic.Frequency {
	period := 2 * b.HalfPeriod
	if period <= 0 {
		return 0
	}
	return physic.Frequency(int64(physic.Hertz) * int64(time.Second) / int64(period))
}

// Pulses returns the number of pulses emitted.
func (b *Blinker) Pulses() uint64 { return b.pulses }

// LEDToggles returns the number of LED inversions.
func (b *Blinker) LEDToggles() uint64 { return b.toggles }

// Phase is the divider position, in [0, Divider).
func (b *Blinker) Phase() int { return b.count }
