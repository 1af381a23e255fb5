// Package sim assembles both sketches on simulated hardware: in-memory
// pins and port, an in-memory CAN bus and a virtual clock, so loops can
// be stepped deterministically.
package sim

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robotalks/sketch.go/pkg/blink"
	"github.com/robotalks/sketch.go/pkg/canbus"
	"github.com/robotalks/sketch.go/pkg/console"
	"github.com/robotalks/sketch.go/pkg/counter"
	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
)

// Epoch is the virtual time a simulation starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Env is a simulated board.
type Env struct {
	Clock   *fx.ManualClock
	Pins    *hal.Pins
	Bus     *canbus.SimBus
	Console *console.Console
	Monitor *canbus.CounterMonitor

	BlinkConfig   blink.Config
	CounterConfig counter.Config

	output  bytes.Buffer
	outLock sync.Mutex

	blinkLoop   *fx.Loop
	blinker     *blink.Blinker
	counterLoop *fx.Loop
	broadcaster *counter.Broadcaster
	observed    uint64
}

type lockedWriter struct {
	env *Env
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.env.outLock.Lock()
	defer w.env.outLock.Unlock()
	return w.env.output.Write(p)
}

// NewEnv creates an Env with default sketch configurations.
func NewEnv() *Env {
	board := hal.FeatherM4CAN
	board.Simulated = true
	e := &Env{
		Clock:         fx.NewManualClock(Epoch),
		Pins:          hal.NewPins(&board),
		Bus:           canbus.NewSimBus(256),
		Monitor:       canbus.NewCounterMonitor(canbus.CounterID),
		BlinkConfig:   *blink.NewConfig(),
		CounterConfig: *counter.NewConfig(),
	}
	e.Console = console.New(lockedWriter{env: e})
	return e
}

// Blink returns the blink sketch and its loop, created on first use.
func (e *Env) Blink() (*fx.Loop, *blink.Blinker, error) {
	if e.blinkLoop == nil {
		b, err := e.BlinkConfig.NewBlinker(e.Pins)
		if err != nil {
			return nil, nil, err
		}
		e.blinker = b
		e.blinkLoop = &fx.Loop{Clock: e.Clock}
		e.blinkLoop.Add(b)
	}
	return e.blinkLoop, e.blinker, nil
}

// Counter returns the counter sketch and its loop, created on first use.
// Every frame sent is fed to Monitor.
func (e *Env) Counter() (*fx.Loop, *counter.Broadcaster, error) {
	if e.counterLoop == nil {
		b, err := e.CounterConfig.NewBroadcaster(e.Pins, e.Bus, canbus.DefaultBitrate, e.Console)
		if err != nil {
			return nil, nil, err
		}
		e.broadcaster = b
		e.counterLoop = &fx.Loop{Clock: e.Clock}
		e.counterLoop.Add(b)
		e.counterLoop.AddController(fx.ControlFunc(e.observeFrames))
	}
	return e.counterLoop, e.broadcaster, nil
}

func (e *Env) observeFrames(fx.ControlContext) error {
	sent, _ := e.Bus.Sent()
	fresh := int(sent - e.observed)
	e.observed = sent
	frames := e.Bus.Frames()
	if fresh > len(frames) {
		fresh = len(frames)
	}
	for _, f := range frames[len(frames)-fresh:] {
		if _, err := e.Monitor.Observe(f); err != nil {
			return err
		}
	}
	return nil
}

// StepBlink runs n iterations of the blink loop.
func (e *Env) StepBlink(ctx context.Context, n int) error {
	l, _, err := e.Blink()
	if err != nil {
		return err
	}
	return l.StepN(ctx, n)
}

// StepCounter runs n iterations of the counter loop.
func (e *Env) StepCounter(ctx context.Context, n int) error {
	l, _, err := e.Counter()
	if err != nil {
		return err
	}
	return l.StepN(ctx, n)
}

// Output returns the console lines printed so far and clears them.
func (e *Env) Output() []string {
	e.outLock.Lock()
	defer e.outLock.Unlock()
	text := strings.TrimRight(e.output.String(), "\n")
	e.output.Reset()
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
