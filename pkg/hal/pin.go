// Package hal abstracts the GPIO lines driven by the sketches.
//
// Control logic only sees Pin. Backends are a periph.io pin addressed
// by name, a bit in a memory mapped port register group, and an in
// memory simulation used by tests and the simulator shell.
package hal

// Pin is a digital output line.
type Pin interface {
	High() error
	Low() error
	// Toggle inverts the current output level.
	Toggle() error
}

// OutputConfigurer is implemented by pins which must be switched
// to output mode before use.
type OutputConfigurer interface {
	ConfigureOutput() error
}

// LevelReader is implemented by pins which can report the asserted level.
type LevelReader interface {
	Get() bool
}

// Set drives the pin to the given level.
func Set(p Pin, level bool) error {
	if level {
		return p.High()
	}
	return p.Low()
}

// ConfigureOutput switches p to output mode when the backend needs it.
func ConfigureOutput(p Pin) error {
	if c, ok := p.(OutputConfigurer); ok {
		return c.ConfigureOutput()
	}
	return nil
}
