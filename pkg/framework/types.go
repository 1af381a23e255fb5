package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// TimeSource provides the time for controlling logic.
type TimeSource interface {
	Time() time.Time
}

// SetupContext is passed to the initialization hook of a sketch.
type SetupContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Clock gets the clock driving the loop.
	Clock() Clock
}

// ControlContext provides the context of current loop iteration.
type ControlContext interface {
	SetupContext
	TimeSource
	// Iteration is the 1-based number of the current iteration.
	Iteration() uint64
	// Halt stops the loop permanently after the current iteration.
	// The loop enters the halted state and never runs again.
	Halt(cause error)
}

// Controller defines the abstract controlling logic, invoked once
// per loop iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// Sketch is a program with an initialization hook run once
// and a loop hook run repeatedly forever.
type Sketch interface {
	Setup(SetupContext) error
	Controller
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// LoopState is the lifecycle state of a Loop.
type LoopState int

// Loop states.
const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopHalted
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopHalted:
		return "halted"
	}
	return "unknown"
}
