package framework

import (
	"sync"
	"time"
)

// Clock is the time base of a loop. All waiting inside
// a sketch goes through Sleep.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

// SystemClock uses the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep implements Clock. Sub-millisecond delays spin on the monotonic
// clock as the scheduler can't honor them with time.Sleep.
func (SystemClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= time.Millisecond {
		time.Sleep(d)
		return
	}
	for deadline := time.Now().Add(d); time.Now().Before(deadline); {
	}
}

// ManualClock is a virtual clock. Time only moves on Sleep or Advance,
// which makes a loop fully deterministic under simulation.
type ManualClock struct {
	now  time.Time
	lock sync.Mutex
}

// NewManualClock creates a ManualClock starting at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Sleep implements Clock.
func (c *ManualClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}
