package counter

import (
	"time"

	"go.einride.tech/can"

	"github.com/robotalks/sketch.go/pkg/canbus"
)

// DefaultWindow is the number of iterations between reports.
const DefaultWindow = 1000

// Window accumulates loop times (ms) until it is flushed.
type Window struct {
	Size  int
	Max   float64
	Sum   float64
	Count int
}

// Add accounts one loop time.
func (w *Window) Add(ms float64) {
	if ms > w.Max {
		w.Max = ms
	}
	w.Sum += ms
	w.Count++
}

// Full indicates the window reached its size.
func (w *Window) Full() bool {
	return w.Count >= w.Size
}

// Avg is the average over the window size.
func (w *Window) Avg() float64 {
	if w.Size <= 0 {
		return 0
	}
	return w.Sum / float64(w.Size)
}

// Reset clears the accumulators, the size is kept.
func (w *Window) Reset() {
	w.Max, w.Sum, w.Count = 0, 0, 0
}

// State is everything the broadcaster carries from one iteration
// to the next.
type State struct {
	Counter   uint32
	Window    Window
	LoopStart time.Time
	Started   time.Time
	TxErrors  uint64
	BusState  canbus.BusState
	// BusStateChanges counts bus state transitions seen after a send.
	BusStateChanges uint64
}

// Start resets the state for a program starting at now.
func (s *State) Start(now time.Time, window int) {
	*s = State{
		Window:    Window{Size: window},
		LoopStart: now,
		Started:   now,
	}
}

// Measure accounts the time since the previous iteration started
// and makes now the new baseline.
func (s *State) Measure(now time.Time) float64 {
	ms := float64(now.Sub(s.LoopStart)) / float64(time.Millisecond)
	s.Window.Add(ms)
	s.LoopStart = now
	return ms
}

// Next increments the counter, wrapping at 2^32, and builds its frame.
func (s *State) Next(id uint32) can.Frame {
	s.Counter++
	return canbus.EncodeCounter(id, s.Counter)
}

// Flush produces the report of a full window and resets it.
func (s *State) Flush(now time.Time) (Report, bool) {
	if !s.Window.Full() {
		return Report{}, false
	}
	r := Report{
		Time:     now,
		Avg:      s.Window.Avg(),
		Max:      s.Window.Max,
		Counter:  s.Counter,
		Uptime:   uint64(now.Sub(s.Started) / time.Second),
		TxErrors: s.TxErrors,
		BusState: s.BusState.String(),
	}
	s.Window.Reset()
	return r, true
}
