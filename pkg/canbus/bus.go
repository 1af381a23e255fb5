// Package canbus provides the CAN controller used by the sketches
// and the counter frame codec.
//
// Frames are go.einride.tech/can frames. Backends are SocketCAN on
// Linux and an in-memory bus for simulation.
package canbus

import (
	"context"
	"errors"

	"go.einride.tech/can"
)

// Default bus parameters.
const (
	DefaultBitrate   = 500000
	DefaultInterface = "can0"
)

// ErrNotStarted is returned when sending before Begin succeeded.
var ErrNotStarted = errors.New("CAN controller not started")

// BusState is the error confinement state of the controller.
type BusState int

// Bus states.
const (
	StateStopped BusState = iota
	StateErrorActive
	StateErrorWarning
	StateErrorPassive
	StateBusOff
)

func (s BusState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateErrorActive:
		return "ERROR-ACTIVE"
	case StateErrorWarning:
		return "ERROR-WARNING"
	case StateErrorPassive:
		return "ERROR-PASSIVE"
	case StateBusOff:
		return "BUS-OFF"
	}
	return "UNKNOWN"
}

// Bus is a CAN controller able to broadcast frames.
type Bus interface {
	// Begin starts the controller at the bitrate (bit/s).
	Begin(ctx context.Context, bitrate int) error
	// Send queues a frame for transmission. No acknowledgement is awaited.
	Send(ctx context.Context, frame can.Frame) error
	// State reports the current bus state.
	State() BusState
	Close() error
}
