package canbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
)

func TestEncodeCounter(t *testing.T) {
	f := EncodeCounter(CounterID, 0x01020304)
	require.Equal(t, uint32(0x01), f.ID)
	require.Equal(t, uint8(4), f.Length)
	require.False(t, f.IsExtended)
	require.False(t, f.IsRemote)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, f.Data[:f.Length])

	v, err := DecodeCounter(f)
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)

	f = EncodeCounter(CounterID, 0xFFFFFFFF)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, f.Data[:f.Length])

	_, err = DecodeCounter(can.Frame{ID: CounterID, Length: 2})
	require.Error(t, err)
	_, err = DecodeCounter(can.Frame{ID: CounterID, Length: 4, IsRemote: true})
	require.Error(t, err)
}

func observeAll(t *testing.T, m *CounterMonitor, values ...uint32) {
	for _, v := range values {
		taken, err := m.Observe(EncodeCounter(m.ID, v))
		require.NoError(t, err)
		require.True(t, taken)
	}
}

func TestCounterMonitor(t *testing.T) {
	testCases := []struct {
		name   string
		values []uint32
		stats  CounterStats
	}{
		{
			name:   "in sequence",
			values: []uint32{5, 6, 7},
			stats:  CounterStats{Received: 3, Last: 7},
		},
		{
			name:   "wrap",
			values: []uint32{0xFFFFFFFE, 0xFFFFFFFF, 0, 1},
			stats:  CounterStats{Received: 4, Last: 1},
		},
		{
			name:   "gaps",
			values: []uint32{1, 2, 5, 6, 10},
			stats:  CounterStats{Received: 5, Missed: 5, Last: 10},
		},
		{
			name:   "repeat",
			values: []uint32{1, 1, 2},
			stats:  CounterStats{Received: 3, Repeats: 1, Last: 2},
		},
		{
			name:   "restart",
			values: []uint32{1000, 1001, 1, 2},
			stats:  CounterStats{Received: 4, Resets: 1, Last: 2},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewCounterMonitor(CounterID)
			observeAll(t, m, tc.values...)
			require.Equal(t, tc.stats, m.Stats())
		})
	}
}

func TestCounterMonitorIgnoresOtherFrames(t *testing.T) {
	m := NewCounterMonitor(CounterID)
	taken, err := m.Observe(EncodeCounter(0x02, 9))
	require.NoError(t, err)
	require.False(t, taken)
	taken, err = m.Observe(can.Frame{ID: CounterID, IsExtended: true, Length: 4})
	require.NoError(t, err)
	require.False(t, taken)
	_, err = m.Observe(can.Frame{ID: CounterID, Length: 8})
	require.Error(t, err)
	require.Zero(t, m.Stats().Received)
}

func TestSimBus(t *testing.T) {
	ctx := context.Background()
	b := NewSimBus(2)
	require.Equal(t, ErrNotStarted, b.Send(ctx, EncodeCounter(CounterID, 1)))
	require.Equal(t, StateStopped, b.State())

	require.NoError(t, b.Begin(ctx, DefaultBitrate))
	require.Equal(t, DefaultBitrate, b.Bitrate())
	require.Equal(t, StateErrorActive, b.State())
	for v := uint32(1); v <= 3; v++ {
		require.NoError(t, b.Send(ctx, EncodeCounter(CounterID, v)))
	}
	frames := b.Frames()
	require.Len(t, frames, 2)
	v, err := DecodeCounter(frames[0])
	require.NoError(t, err)
	require.Equal(t, uint32(2), v)

	b.SendErr = errors.New("no ack")
	require.Error(t, b.Send(ctx, EncodeCounter(CounterID, 4)))
	require.Equal(t, StateErrorPassive, b.State())
	sent, failed := b.Sent()
	require.Equal(t, uint64(3), sent)
	require.Equal(t, uint64(1), failed)

	require.NoError(t, b.Close())
	require.Equal(t, StateStopped, b.State())
}

func TestSimBusBeginFailure(t *testing.T) {
	b := NewSimBus(0)
	b.BeginErr = errors.New("no transceiver")
	require.Error(t, b.Begin(context.Background(), DefaultBitrate))
	require.Equal(t, ErrNotStarted, b.Send(context.Background(), EncodeCounter(CounterID, 1)))
}

func TestBusStateString(t *testing.T) {
	require.Equal(t, "ERROR-ACTIVE", StateErrorActive.String())
	require.Equal(t, "BUS-OFF", StateBusOff.String())
}

func TestConfigNewBus(t *testing.T) {
	c := &Config{Backend: "sim"}
	bus, err := c.NewBus()
	require.NoError(t, err)
	require.IsType(t, &SimBus{}, bus)

	c = &Config{Backend: "socketcan", Interface: "vcan0", ConfigureLink: true}
	bus, err = c.NewBus()
	require.NoError(t, err)
	require.Equal(t, "vcan0", bus.(*SocketBus).Interface)
	require.True(t, bus.(*SocketBus).ConfigureLink)

	_, err = (&Config{Backend: "slcan"}).NewBus()
	require.Error(t, err)
}
