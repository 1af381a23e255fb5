package counter

import (
	"fmt"
	"time"

	"github.com/robotalks/sketch.go/pkg/console"
)

// Report is the statistics of one window.
type Report struct {
	Time time.Time `cbor:"time" json:"time"`
	// Avg and Max are loop times in milliseconds.
	Avg     float64 `cbor:"avg_ms" json:"avg_ms"`
	Max     float64 `cbor:"max_ms" json:"max_ms"`
	Counter uint32  `cbor:"counter" json:"counter"`
	// Uptime is whole seconds since the program started.
	Uptime   uint64 `cbor:"uptime_s" json:"uptime_s"`
	TxErrors uint64 `cbor:"tx_errors" json:"tx_errors"`
	BusState string `cbor:"bus_state" json:"bus_state"`
	// LongLoop flags a window whose Max exceeded the long loop limit.
	// BusError flags a bus not error-active at report time, it is
	// only raised without LongLoop.
	LongLoop bool `cbor:"long_loop" json:"long_loop"`
	BusError bool `cbor:"bus_error" json:"bus_error"`
}

// Line formats the console statistics line.
func (r Report) Line() string {
	return fmt.Sprintf("Stats - Avg: %.3f ms, Max: %.3f ms, Counter: %d, Uptime: %d s",
		r.Avg, r.Max, r.Counter, r.Uptime)
}

// Sink receives reports. Sinks must not block the loop.
type Sink interface {
	PublishReport(Report) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(Report) error

// PublishReport implements Sink.
func (f SinkFunc) PublishReport(r Report) error {
	return f(r)
}

// ConsoleSink prints the statistics line.
type ConsoleSink struct {
	Console *console.Console
}

// PublishReport implements Sink.
func (s *ConsoleSink) PublishReport(r Report) error {
	return s.Console.Println(r.Line())
}
