package canbus

import (
	"encoding/binary"
	"fmt"

	"go.einride.tech/can"
)

// CounterID is the identifier of counter frames.
const CounterID uint32 = 0x01

// CounterLength is the payload size of a counter frame.
const CounterLength = 4

// EncodeCounter builds a frame carrying the counter in little-endian
// byte order.
func EncodeCounter(id, counter uint32) can.Frame {
	f := can.Frame{ID: id, Length: CounterLength}
	binary.LittleEndian.PutUint32(f.Data[:CounterLength], counter)
	return f
}

// DecodeCounter extracts the counter from a frame.
func DecodeCounter(f can.Frame) (uint32, error) {
	if f.IsRemote || f.Length != CounterLength {
		return 0, fmt.Errorf("frame %s is not a counter frame", f.String())
	}
	return binary.LittleEndian.Uint32(f.Data[:CounterLength]), nil
}
