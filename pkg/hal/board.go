package hal

import (
	"embed"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Board maps the logical lines used by the sketches to physical pins.
type Board struct {
	Name string `yaml:"name"`
	// LED is the periph name of the status LED.
	LED string `yaml:"led"`
	// CANStandby and BoostEnable control the CAN transceiver power.
	// Either may be empty when the transceiver is always powered.
	CANStandby  string `yaml:"can_standby"`
	BoostEnable string `yaml:"boost_enable"`
	// Pulse is the periph name of the pulse line on boards without
	// a port register map.
	Pulse string `yaml:"pulse"`
	// PulseBit is the port bit of the register driven pulse line.
	PulseBit uint       `yaml:"pulse_bit"`
	Port     PortLayout `yaml:"port"`
	// Simulated selects the in-memory backends.
	Simulated bool `yaml:"simulated"`
}

// FeatherM4CAN is the profile of the simulated board: LED on pin 13
// (PA23) and the pulse line on PA27.
var FeatherM4CAN = Board{
	Name:        "feather-m4-can",
	LED:         "GPIO13",
	CANStandby:  "CAN_STANDBY",
	BoostEnable: "BOOST_EN",
	PulseBit:    27,
	Port:        SAMx51Port,
}

//go:embed boards/*.yaml
var builtinBoards embed.FS

var boardFile = os.Getenv("SKETCH_BOARD")

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&boardFile, "board", boardFile, "Board profile: a built-in name ("+strings.Join(BuiltinBoards(), ", ")+") or a YAML file.")
}

// BuiltinBoards lists the names of the profiles shipped with the package.
func BuiltinBoards() []string {
	entries, _ := builtinBoards.ReadDir("boards")
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, strings.TrimSuffix(ent.Name(), ".yaml"))
	}
	return names
}

// DefaultBoard loads the profile selected by flags. There is no
// implicit default, pin names differ on every host.
func DefaultBoard() (*Board, error) {
	if boardFile == "" {
		return nil, fmt.Errorf("no board profile, use -board or SKETCH_BOARD (built-in: %s)",
			strings.Join(BuiltinBoards(), ", "))
	}
	return LoadBoard(boardFile)
}

// LoadBoard loads a built-in profile by name or reads a YAML file.
func LoadBoard(nameOrPath string) (*Board, error) {
	data, err := builtinBoards.ReadFile(path.Join("boards", nameOrPath+".yaml"))
	if err != nil {
		if data, err = os.ReadFile(nameOrPath); err != nil {
			return nil, fmt.Errorf("read board profile: %v", err)
		}
	}
	return ParseBoard(data)
}

// ParseBoard parses and validates a YAML profile.
func ParseBoard(data []byte) (*Board, error) {
	var b Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid board profile: %v", err)
	}
	if b.LED == "" {
		return nil, fmt.Errorf("board %q: led required", b.Name)
	}
	if !b.HasPort() {
		if b.Pulse == "" {
			return nil, fmt.Errorf("board %q: pulse or port required", b.Name)
		}
		return &b, nil
	}
	if b.PulseBit > 31 {
		return nil, fmt.Errorf("pulse_bit %d out of range", b.PulseBit)
	}
	if err := b.Port.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// HasPort indicates the pulse line is driven through port registers.
func (b *Board) HasPort() bool {
	return b.Port.Base != 0
}

// Pins opens lines of a board. Simulated boards hand out SimPins,
// which are kept so they can be inspected later.
type Pins struct {
	Board *Board

	sim     map[string]*SimPin
	simPort *SimPort
	port    *MMIOPort
}

// NewPins creates Pins for a board.
func NewPins(b *Board) *Pins {
	return &Pins{Board: b, sim: make(map[string]*SimPin)}
}

// Open opens a generic output by name.
func (p *Pins) Open(name string) (Pin, error) {
	if p.Board.Simulated {
		return p.Sim(name), nil
	}
	return OpenPin(name)
}

// Sim returns the simulated pin with the given name, creating it
// on first use.
func (p *Pins) Sim(name string) *SimPin {
	pin := p.sim[name]
	if pin == nil {
		pin = NewSimPin(name)
		p.sim[name] = pin
	}
	return pin
}

// SimPins lists the simulated pins opened so far.
func (p *Pins) SimPins() map[string]*SimPin {
	return p.sim
}

// Port returns the port group of the board, mapping it on first use.
func (p *Pins) Port() (Port, error) {
	if p.Board.Simulated {
		if p.simPort == nil {
			p.simPort = &SimPort{}
		}
		return p.simPort, nil
	}
	if !p.Board.HasPort() {
		return nil, fmt.Errorf("board %q has no port map", p.Board.Name)
	}
	if p.port == nil {
		port, err := MapPort(p.Board.Port)
		if err != nil {
			return nil, err
		}
		p.port = port
	}
	return p.port, nil
}

// PulsePin opens the pulse line: a port register bit when the board
// has a port map, a generic output otherwise.
func (p *Pins) PulsePin() (Pin, error) {
	if !p.Board.HasPort() {
		return p.Open(p.Board.Pulse)
	}
	port, err := p.Port()
	if err != nil {
		return nil, err
	}
	return NewPortPin(port, p.Board.PulseBit)
}

// Close releases mapped memory.
func (p *Pins) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}
