// Package counter is the CAN counter sketch: a 32-bit counter broadcast
// every iteration with loop timing statistics reported periodically.
package counter

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/canbus"
	"github.com/robotalks/sketch.go/pkg/console"
	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
)

// Defaults
const (
	DefaultDelay    = 100 * time.Microsecond
	DefaultLongLoop = 10 * time.Millisecond
)

// InitFailedMessage is printed when the CAN controller can't start.
const InitFailedMessage = "Starting CAN failed!"

// Broadcaster is the sketch. Its State is owned by the loop goroutine.
type Broadcaster struct {
	Bus     canbus.Bus
	Console *console.Console
	LED     hal.Pin
	// Standby and Boost power the CAN transceiver: standby is driven
	// low, the booster high.
	Standby hal.Pin
	Boost   hal.Pin

	ID       uint32
	Bitrate  int
	Delay    time.Duration
	Window   int
	LongLoop time.Duration
	Sinks    []Sink

	State State
}

// NewBroadcaster creates a Broadcaster with default parameters. The
// console sink is installed.
func NewBroadcaster(bus canbus.Bus, con *console.Console, led, standby, boost hal.Pin) *Broadcaster {
	return &Broadcaster{
		Bus:      bus,
		Console:  con,
		LED:      led,
		Standby:  standby,
		Boost:    boost,
		ID:       canbus.CounterID,
		Bitrate:  canbus.DefaultBitrate,
		Delay:    DefaultDelay,
		Window:   DefaultWindow,
		LongLoop: DefaultLongLoop,
		Sinks:    []Sink{&ConsoleSink{Console: con}},
	}
}

// Name implements Named.
func (b *Broadcaster) Name() string { return "cancounter" }

// AddToLoop implements LoopAdder.
func (b *Broadcaster) AddToLoop(l *fx.Loop) {
	l.AddSketch(b)
}

// AddSink appends a report sink.
func (b *Broadcaster) AddSink(s Sink) {
	b.Sinks = append(b.Sinks, s)
}

// Setup implements Sketch. A CAN controller failure halts the loop.
func (b *Broadcaster) Setup(sc fx.SetupContext) error {
	if b.Window <= 0 {
		return fmt.Errorf("invalid window %d", b.Window)
	}
	if err := hal.ConfigureOutput(b.LED); err != nil {
		return fmt.Errorf("LED: %v", err)
	}
	if err := b.powerTransceiver(); err != nil {
		return err
	}
	if err := b.Bus.Begin(sc.Context(), b.Bitrate); err != nil {
		b.Console.Println(InitFailedMessage)
		return fx.Halt(fmt.Errorf("CAN begin: %v", err))
	}
	b.State.Start(sc.Clock().Now(), b.Window)
	b.State.BusState = b.Bus.State()
	return nil
}

func (b *Broadcaster) powerTransceiver() error {
	for _, line := range []struct {
		name  string
		pin   hal.Pin
		level bool
	}{
		{"standby", b.Standby, false},
		{"boost", b.Boost, true},
	} {
		if line.pin == nil {
			continue
		}
		if err := hal.ConfigureOutput(line.pin); err != nil {
			return fmt.Errorf("%s: %v", line.name, err)
		}
		if err := hal.Set(line.pin, line.level); err != nil {
			return fmt.Errorf("%s: %v", line.name, err)
		}
	}
	return nil
}

// Control implements Sketch.
func (b *Broadcaster) Control(cc fx.ControlContext) error {
	return b.Step(cc, &b.State)
}

// Step runs one iteration against st.
func (b *Broadcaster) Step(cc fx.ControlContext, st *State) error {
	now := cc.Time()
	st.Measure(now)

	frame := st.Next(b.ID)
	if err := b.Bus.Send(cc.Context(), frame); err != nil {
		st.TxErrors++
		glog.V(1).Infof("send %s: %v", frame.String(), err)
	}
	if state := b.Bus.State(); state != st.BusState {
		glog.Warningf("bus state changed from %s to %s", st.BusState, state)
		st.BusState = state
		st.BusStateChanges++
	}

	if r, ok := st.Flush(now); ok {
		if err := b.LED.Toggle(); err != nil {
			glog.Errorf("LED: %v", err)
		}
		// a long loop hides the bus state in the report
		if longest := time.Duration(r.Max * float64(time.Millisecond)); b.LongLoop > 0 && longest > b.LongLoop {
			r.LongLoop = true
			glog.Warningf("long loop time: %.3f ms", r.Max)
		} else if st.BusState != canbus.StateErrorActive {
			r.BusError = true
			glog.Warningf("bus error: %s", st.BusState)
		}
		for _, sink := range b.Sinks {
			if err := sink.PublishReport(r); err != nil {
				glog.Errorf("report: %v", err)
			}
		}
	}

	cc.Clock().Sleep(b.Delay)
	return nil
}
