package hal

import "sync"

// SimPin is an in-memory Pin. It counts transitions so tests and the
// simulator can observe waveforms without hardware.
type SimPin struct {
	PinName string

	lock     sync.Mutex
	output   bool
	level    bool
	rising   uint64
	falling  uint64
	toggles  uint64
	failWith error
}

// NewSimPin creates a SimPin.
func NewSimPin(name string) *SimPin {
	return &SimPin{PinName: name}
}

// Name implements Named.
func (p *SimPin) Name() string { return p.PinName }

// ConfigureOutput implements OutputConfigurer.
func (p *SimPin) ConfigureOutput() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.output = true
	return nil
}

// High implements Pin.
func (p *SimPin) High() error { return p.drive(true, false) }

// Low implements Pin.
func (p *SimPin) Low() error { return p.drive(false, false) }

// Toggle implements Pin.
func (p *SimPin) Toggle() error {
	p.lock.Lock()
	level := !p.level
	p.lock.Unlock()
	return p.drive(level, true)
}

// Get implements LevelReader.
func (p *SimPin) Get() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level
}

// IsOutput indicates ConfigureOutput was called.
func (p *SimPin) IsOutput() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.output
}

// Edges returns the number of rising and falling transitions.
func (p *SimPin) Edges() (rising, falling uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.rising, p.falling
}

// Toggles returns the number of Toggle calls.
func (p *SimPin) Toggles() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.toggles
}

// FailWith makes every following operation return err, nil clears it.
func (p *SimPin) FailWith(err error) {
	p.lock.Lock()
	p.failWith = err
	p.lock.Unlock()
}

func (p *SimPin) drive(level, toggle bool) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	if toggle {
		p.toggles++
	}
	if level != p.level {
		if level {
			p.rising++
		} else {
			p.falling++
		}
	}
	p.level = level
	return nil
}
