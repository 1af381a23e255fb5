package canbus

import (
	"fmt"

	"go.einride.tech/can"
)

// CounterStats summarizes the counter frames observed by a monitor.
type CounterStats struct {
	Received uint64
	// Missed counts values skipped by forward jumps.
	Missed uint64
	// Repeats counts frames carrying the previous value again.
	Repeats uint64
	// Resets counts backward jumps, e.g. a restarted broadcaster.
	Resets uint64
	Last   uint32
}

func (s CounterStats) String() string {
	return fmt.Sprintf("received %d, missed %d, repeats %d, resets %d, last %d",
		s.Received, s.Missed, s.Repeats, s.Resets, s.Last)
}

// CounterMonitor follows the counter broadcast on the receiving side.
// Counter arithmetic wraps at 32 bits so 0xFFFFFFFF followed by 0 is
// in sequence.
type CounterMonitor struct {
	ID uint32

	stats   CounterStats
	started bool
}

// NewCounterMonitor creates a monitor for frames with the identifier.
func NewCounterMonitor(id uint32) *CounterMonitor {
	return &CounterMonitor{ID: id}
}

// Observe accounts a frame. Frames with other identifiers are ignored
// and reported as not taken.
func (m *CounterMonitor) Observe(f can.Frame) (bool, error) {
	if f.ID != m.ID || f.IsExtended {
		return false, nil
	}
	v, err := DecodeCounter(f)
	if err != nil {
		return false, err
	}
	m.stats.Received++
	if m.started {
		switch delta := v - m.stats.Last; {
		case delta == 0:
			m.stats.Repeats++
		case delta < 1<<31:
			m.stats.Missed += uint64(delta - 1)
		default:
			m.stats.Resets++
		}
	}
	m.started = true
	m.stats.Last = v
	return true, nil
}

// Stats returns the current summary.
func (m *CounterMonitor) Stats() CounterStats {
	return m.stats
}
