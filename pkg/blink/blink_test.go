package blink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestBlinker(t *testing.T) (*Blinker, *hal.SimPin, *hal.SimPort, *fx.Loop) {
	led := hal.NewSimPin("LED")
	port := &hal.SimPort{}
	pulse, err := hal.NewPortPin(port, 27)
	require.NoError(t, err)
	b := NewBlinker(led, pulse)
	l := &fx.Loop{Clock: fx.NewManualClock(testEpoch)}
	l.Add(b)
	return b, led, port, l
}

func TestBlinkDivider(t *testing.T) {
	testCases := []struct {
		pulses  int
		toggles uint64
		level   bool
		phase   int
	}{
		{pulses: 1, toggles: 0, level: false, phase: 1},
		{pulses: DefaultDivider - 1, toggles: 0, level: false, phase: DefaultDivider - 1},
		{pulses: DefaultDivider, toggles: 1, level: true, phase: 0},
		{pulses: DefaultDivider + 1, toggles: 1, level: true, phase: 1},
		{pulses: 2 * DefaultDivider, toggles: 2, level: false, phase: 0},
	}
	for _, tc := range testCases {
		b, led, _, l := newTestBlinker(t)
		require.NoError(t, l.StepN(context.Background(), tc.pulses))
		require.Equal(t, tc.toggles, led.Toggles(), "pulses=%d", tc.pulses)
		require.Equal(t, tc.toggles, b.LEDToggles())
		require.Equal(t, tc.level, led.Get(), "pulses=%d", tc.pulses)
		require.Equal(t, tc.phase, b.Phase())
		require.Equal(t, uint64(tc.pulses), b.Pulses())
	}
}

func TestBlinkPulseWaveform(t *testing.T) {
	b, led, port, l := newTestBlinker(t)
	clock := l.Clock.(*fx.ManualClock)
	require.NoError(t, l.Setup(context.Background()))
	require.Equal(t, uint32(1<<27), port.Dir())
	require.True(t, led.IsOutput())

	writes := port.Writes()
	require.NoError(t, b.Tick(clock))
	// one set and one clear per pulse, each followed by a half period
	require.Equal(t, writes+2, port.Writes())
	require.Zero(t, port.Out())
	require.Equal(t, testEpoch.Add(2*DefaultHalfPeriod), clock.Now())

	require.NoError(t, l.StepN(context.Background(), 99))
	require.Equal(t, testEpoch.Add(100*10*time.Microsecond), clock.Now())
}

func TestBlinkFrequency(t *testing.T) {
	b := NewBlinker(hal.NewSimPin("LED"), hal.NewSimPin("PULSE"))
	require.Equal(t, 100*physic.KiloHertz, b.Frequency())
	b.HalfPeriod = 500 * time.Millisecond
	require.Equal(t, physic.Hertz, b.Frequency())
	b.HalfPeriod = 0
	require.Equal(t, physic.Frequency(0), b.Frequency())
}

func TestBlinkInvalidDivider(t *testing.T) {
	b, _, _, l := newTestBlinker(t)
	b.Divider = 0
	require.Error(t, l.Step(context.Background()))
	require.True(t, l.Halted())
}

func TestConfigNewBlinker(t *testing.T) {
	board := hal.FeatherM4CAN
	board.Simulated = true
	pins := hal.NewPins(&board)
	conf := NewConfig()
	conf.Divider = 4
	b, err := conf.NewBlinker(pins)
	require.NoError(t, err)
	require.Equal(t, 4, b.Divider)
	require.Same(t, pins.Sim(board.LED), b.LED)

	l := &fx.Loop{Clock: fx.NewManualClock(testEpoch)}
	l.Add(b)
	require.NoError(t, l.StepN(context.Background(), 8))
	require.Equal(t, uint64(2), pins.Sim(board.LED).Toggles())
	port, err := pins.Port()
	require.NoError(t, err)
	require.Zero(t, port.Out())
}
