package hal

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"periph.io/x/host/v3/pmem"
)

// PortLayout locates a GPIO port group and its write-only
// set/clear/toggle registers. Offsets are relative to the group.
type PortLayout struct {
	Base   uint64 `yaml:"base"`
	Group  int    `yaml:"group"`
	Stride uint64 `yaml:"stride"`
	DirSet uint32 `yaml:"dirset"`
	Out    uint32 `yaml:"out"`
	OutClr uint32 `yaml:"outclr"`
	OutSet uint32 `yaml:"outset"`
	OutTgl uint32 `yaml:"outtgl"`
}

// SAMx51Port is the PORT peripheral of SAM D5x/E5x parts.
var SAMx51Port = PortLayout{
	Base:   0x41008000,
	Stride: 0x80,
	DirSet: 0x08,
	Out:    0x10,
	OutClr: 0x14,
	OutSet: 0x18,
	OutTgl: 0x1C,
}

// Addr is the physical address of the group.
func (l PortLayout) Addr() uint64 {
	return l.Base + uint64(l.Group)*l.Stride
}

func (l PortLayout) span() uint32 {
	span := l.DirSet
	for _, off := range []uint32{l.Out, l.OutClr, l.OutSet, l.OutTgl} {
		if off > span {
			span = off
		}
	}
	return span + 4
}

// Validate checks the offsets are word aligned.
func (l PortLayout) Validate() error {
	for _, off := range []uint32{l.DirSet, l.Out, l.OutClr, l.OutSet, l.OutTgl} {
		if off%4 != 0 {
			return fmt.Errorf("port register offset 0x%x not word aligned", off)
		}
	}
	if l.Addr()%4 != 0 {
		return fmt.Errorf("port address 0x%x not word aligned", l.Addr())
	}
	return nil
}

// Port is a GPIO port group. Each operation writes a single register,
// bits set in mask select the lines affected.
type Port interface {
	DirSet(mask uint32)
	OutSet(mask uint32)
	OutClr(mask uint32)
	OutTgl(mask uint32)
	Out() uint32
}

// MMIOPort writes the registers of a physically mapped port group.
type MMIOPort struct {
	Layout PortLayout

	view *pmem.View
	regs []uint32
}

// MapPort maps the port group described by layout. It needs access
// to /dev/mem.
func MapPort(layout PortLayout) (*MMIOPort, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	pageSize := uint64(os.Getpagesize())
	addr := layout.Addr()
	page := addr &^ (pageSize - 1)
	offset := addr - page
	size := (offset + uint64(layout.span()) + pageSize - 1) &^ (pageSize - 1)
	view, err := pmem.Map(page, int(size))
	if err != nil {
		return nil, fmt.Errorf("map port 0x%x: %v", addr, err)
	}
	return &MMIOPort{
		Layout: layout,
		view:   view,
		regs:   view.Uint32()[offset/4:],
	}, nil
}

// Close unmaps the port.
func (p *MMIOPort) Close() error {
	return p.view.Close()
}

func (p *MMIOPort) store(off, val uint32) {
	atomic.StoreUint32(&p.regs[off/4], val)
}

// DirSet implements Port.
func (p *MMIOPort) DirSet(mask uint32) { p.store(p.Layout.DirSet, mask) }

// OutSet implements Port.
func (p *MMIOPort) OutSet(mask uint32) { p.store(p.Layout.OutSet, mask) }

// OutClr implements Port.
func (p *MMIOPort) OutClr(mask uint32) { p.store(p.Layout.OutClr, mask) }

// OutTgl implements Port.
func (p *MMIOPort) OutTgl(mask uint32) { p.store(p.Layout.OutTgl, mask) }

// Out implements Port.
func (p *MMIOPort) Out() uint32 { return atomic.LoadUint32(&p.regs[p.Layout.Out/4]) }

// SimPort emulates the set/clear/toggle register semantics in memory.
type SimPort struct {
	lock   sync.Mutex
	dir    uint32
	out    uint32
	writes uint64
}

// DirSet implements Port.
func (p *SimPort) DirSet(mask uint32) { p.update(func() { p.dir |= mask }) }

// OutSet implements Port.
func (p *SimPort) OutSet(mask uint32) { p.update(func() { p.out |= mask }) }

// OutClr implements Port.
func (p *SimPort) OutClr(mask uint32) { p.update(func() { p.out &^= mask }) }

// OutTgl implements Port.
func (p *SimPort) OutTgl(mask uint32) { p.update(func() { p.out ^= mask }) }

// Out implements Port.
func (p *SimPort) Out() uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.out
}

// Dir returns the direction register, set bits are outputs.
func (p *SimPort) Dir() uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dir
}

// Writes counts register writes.
func (p *SimPort) Writes() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

func (p *SimPort) update(fn func()) {
	p.lock.Lock()
	fn()
	p.writes++
	p.lock.Unlock()
}

// PortPin is a single line of a Port.
type PortPin struct {
	Port Port
	Bit  uint
}

// NewPortPin creates a PortPin.
func NewPortPin(port Port, bit uint) (*PortPin, error) {
	if bit > 31 {
		return nil, fmt.Errorf("port bit %d out of range", bit)
	}
	return &PortPin{Port: port, Bit: bit}, nil
}

func (p *PortPin) mask() uint32 { return 1 << p.Bit }

// Name implements Named.
func (p *PortPin) Name() string { return fmt.Sprintf("P%d", p.Bit) }

// ConfigureOutput implements OutputConfigurer.
func (p *PortPin) ConfigureOutput() error {
	p.Port.DirSet(p.mask())
	return nil
}

// High implements Pin.
func (p *PortPin) High() error {
	p.Port.OutSet(p.mask())
	return nil
}

// Low implements Pin.
func (p *PortPin) Low() error {
	p.Port.OutClr(p.mask())
	return nil
}

// Toggle implements Pin.
func (p *PortPin) Toggle() error {
	p.Port.OutTgl(p.mask())
	return nil
}

// Get implements LevelReader.
func (p *PortPin) Get() bool {
	return p.Port.Out()&p.mask() != 0
}
