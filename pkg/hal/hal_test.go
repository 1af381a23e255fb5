package hal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestSimPinEdges(t *testing.T) {
	p := NewSimPin("LED")
	require.NoError(t, ConfigureOutput(p))
	require.True(t, p.IsOutput())
	require.NoError(t, Set(p, true))
	require.NoError(t, p.High())
	require.NoError(t, p.Low())
	require.NoError(t, p.Toggle())
	require.NoError(t, p.Toggle())
	rising, falling := p.Edges()
	require.Equal(t, uint64(2), rising)
	require.Equal(t, uint64(2), falling)
	require.Equal(t, uint64(2), p.Toggles())
	require.False(t, p.Get())

	boom := errors.New("boom")
	p.FailWith(boom)
	require.Equal(t, boom, p.Toggle())
	require.False(t, p.Get())
	p.FailWith(nil)
	require.NoError(t, p.Toggle())
	require.True(t, p.Get())
}

func TestPortPinRegisters(t *testing.T) {
	port := &SimPort{}
	pin, err := NewPortPin(port, 27)
	require.NoError(t, err)
	other, err := NewPortPin(port, 3)
	require.NoError(t, err)

	require.NoError(t, ConfigureOutput(pin))
	require.Equal(t, uint32(1<<27), port.Dir())
	require.NoError(t, other.High())
	require.NoError(t, pin.High())
	require.Equal(t, uint32(1<<27|1<<3), port.Out())
	require.NoError(t, pin.Low())
	require.Equal(t, uint32(1<<3), port.Out())
	require.NoError(t, pin.Toggle())
	require.True(t, pin.Get())
	require.NoError(t, pin.Toggle())
	require.False(t, pin.Get())
	require.True(t, other.Get())
	require.Equal(t, uint64(6), port.Writes())
	require.Equal(t, "P27", pin.Name())

	_, err = NewPortPin(port, 32)
	require.Error(t, err)
}

func TestPeriphPin(t *testing.T) {
	line := &gpiotest.Pin{N: "GPIO13", Num: 13, L: gpio.High}
	p := NewPeriphPin(line)
	require.Equal(t, "GPIO13", p.Name())
	require.NoError(t, ConfigureOutput(p))
	require.False(t, p.Get())
	require.NoError(t, p.Toggle())
	require.True(t, p.Get())
	require.NoError(t, p.Toggle())
	require.Equal(t, gpio.Low, line.Read())
	require.NoError(t, p.High())
	require.True(t, p.Get())
}

func TestPortLayout(t *testing.T) {
	l := SAMx51Port
	require.NoError(t, l.Validate())
	require.Equal(t, uint64(0x41008000), l.Addr())
	l.Group = 1
	require.Equal(t, uint64(0x41008080), l.Addr())
	require.Equal(t, uint32(0x20), l.span())
	l.OutTgl = 0x1E
	require.Error(t, l.Validate())
}

func TestParseBoard(t *testing.T) {
	testCases := []struct {
		name  string
		yaml  string
		check func(*testing.T, *Board)
		fails bool
	}{
		{
			name: "generic pulse",
			yaml: "name: test\nled: GPIO5\npulse: GPIO6\n",
			check: func(t *testing.T, b *Board) {
				require.Equal(t, "GPIO5", b.LED)
				require.Equal(t, "GPIO6", b.Pulse)
				require.False(t, b.HasPort())
				require.Empty(t, b.CANStandby)
				require.Empty(t, b.BoostEnable)
			},
		},
		{
			name: "port",
			yaml: "name: m4\nled: GPIO13\npulse_bit: 4\nport:\n  base: 0x41008000\n  group: 1\n  stride: 0x80\n  outset: 0x18\n  outtgl: 0x1c\nsimulated: true\n",
			check: func(t *testing.T, b *Board) {
				require.True(t, b.HasPort())
				require.Equal(t, uint(4), b.PulseBit)
				require.Equal(t, uint64(0x41008080), b.Port.Addr())
				require.Equal(t, uint32(0x1c), b.Port.OutTgl)
				require.True(t, b.Simulated)
			},
		},
		{name: "empty", yaml: "", fails: true},
		{name: "no pulse", yaml: "led: GPIO5\n", fails: true},
		{name: "bad bit", yaml: "led: GPIO5\npulse_bit: 40\nport:\n  base: 0x1000\n", fails: true},
		{name: "unaligned", yaml: "led: GPIO5\nport:\n  base: 0x1000\n  outset: 0x19\n", fails: true},
		{name: "malformed", yaml: "led: [\n", fails: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := ParseBoard([]byte(tc.yaml))
			if tc.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, b)
		})
	}
}

func TestBuiltinBoards(t *testing.T) {
	require.Contains(t, BuiltinBoards(), "raspberrypi")
	for _, name := range BuiltinBoards() {
		b, err := LoadBoard(name)
		require.NoError(t, err, name)
		require.Equal(t, name, b.Name)
		require.False(t, b.Simulated, name)
	}

	b, err := LoadBoard("raspberrypi")
	require.NoError(t, err)
	require.Equal(t, "GPIO17", b.LED)
	require.Equal(t, "GPIO27", b.Pulse)
	require.False(t, b.HasPort())
	require.Empty(t, b.CANStandby)
	require.Empty(t, b.BoostEnable)

	// the pulse line is a generic output, no register map involved
	b.Simulated = true
	pins := NewPins(b)
	pulse, err := pins.PulsePin()
	require.NoError(t, err)
	require.Same(t, pins.Sim("GPIO27"), pulse)

	_, err = LoadBoard("no-such-board")
	require.Error(t, err)
}

func TestDefaultBoardRequiresProfile(t *testing.T) {
	saved := boardFile
	defer func() { boardFile = saved }()

	boardFile = ""
	_, err := DefaultBoard()
	require.Error(t, err)
	require.Contains(t, err.Error(), "raspberrypi")

	boardFile = "raspberrypi"
	b, err := DefaultBoard()
	require.NoError(t, err)
	require.Equal(t, "GPIO17", b.LED)
}

func TestPortRequiresMap(t *testing.T) {
	pins := NewPins(&Board{Name: "host", LED: "GPIO17", Pulse: "GPIO27"})
	_, err := pins.Port()
	require.Error(t, err)
}

func TestSimulatedPins(t *testing.T) {
	board := FeatherM4CAN
	board.Simulated = true
	pins := NewPins(&board)
	led, err := pins.Open(board.LED)
	require.NoError(t, err)
	require.Same(t, pins.Sim(board.LED), led)
	pulse, err := pins.PulsePin()
	require.NoError(t, err)
	require.NoError(t, pulse.High())
	port, err := pins.Port()
	require.NoError(t, err)
	require.Equal(t, uint32(1<<27), port.Out())
	require.Len(t, pins.SimPins(), 1)
	require.NoError(t, pins.Close())
}
