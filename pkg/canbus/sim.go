package canbus

import (
	"context"
	"sync"

	"go.einride.tech/can"
)

// SimBus is an in-memory Bus recording every frame sent.
type SimBus struct {
	// BeginErr is returned by Begin to simulate a controller failure.
	BeginErr error
	// SendErr is returned by Send, frames are not recorded then.
	SendErr error
	// Capacity bounds recorded frames, oldest are dropped. 0 is unbounded.
	Capacity int

	lock    sync.Mutex
	bitrate int
	state   BusState
	frames  []can.Frame
	sent    uint64
	failed  uint64
}

// NewSimBus creates a SimBus keeping at most capacity frames.
func NewSimBus(capacity int) *SimBus {
	return &SimBus{Capacity: capacity}
}

// Begin implements Bus.
func (b *SimBus) Begin(ctx context.Context, bitrate int) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.BeginErr != nil {
		return b.BeginErr
	}
	b.bitrate, b.state = bitrate, StateErrorActive
	return nil
}

// Send implements Bus.
func (b *SimBus) Send(ctx context.Context, frame can.Frame) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.state == StateStopped {
		return ErrNotStarted
	}
	if b.SendErr != nil {
		b.failed++
		b.state = StateErrorPassive
		return b.SendErr
	}
	b.state = StateErrorActive
	b.sent++
	b.frames = append(b.frames, frame)
	if b.Capacity > 0 && len(b.frames) > b.Capacity {
		b.frames = append(b.frames[:0], b.frames[len(b.frames)-b.Capacity:]...)
	}
	return nil
}

// State implements Bus.
func (b *SimBus) State() BusState {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.state
}

// SetState forces the bus state.
func (b *SimBus) SetState(s BusState) {
	b.lock.Lock()
	b.state = s
	b.lock.Unlock()
}

// Close implements Bus.
func (b *SimBus) Close() error {
	b.SetState(StateStopped)
	return nil
}

// Bitrate returns the bitrate passed to Begin.
func (b *SimBus) Bitrate() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.bitrate
}

// Frames returns a copy of the recorded frames.
func (b *SimBus) Frames() []can.Frame {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]can.Frame(nil), b.frames...)
}

// Sent returns the number of frames accepted and rejected.
func (b *SimBus) Sent() (sent, failed uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.sent, b.failed
}
