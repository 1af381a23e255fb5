// Package console provides the line oriented text console of a sketch,
// either a serial port or standard output.
package console

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaud is the console speed.
const DefaultBaud = 115200

// Console writes lines. Write errors are returned but sketches
// ignore them, as the console is best effort.
type Console struct {
	// EOL terminates every line.
	EOL string

	w      io.Writer
	closer io.Closer
	lock   sync.Mutex
}

// New creates a Console on w with "\n" line endings.
func New(w io.Writer) *Console {
	return &Console{EOL: "\n", w: w}
}

// Println writes a single line.
func (c *Console) Println(line string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, err := io.WriteString(c.w, line+c.EOL)
	return err
}

// Printf formats and writes a single line.
func (c *Console) Printf(format string, args ...interface{}) error {
	return c.Println(fmt.Sprintf(format, args...))
}

// Close closes the device opened by Config.Open.
func (c *Console) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Config selects the console device.
type Config struct {
	// Device is a serial port path, "-" for standard output.
	Device string
	Baud   int
}

var defaultConfig = Config{
	Device: "-",
	Baud:   DefaultBaud,
}

func init() {
	if val := os.Getenv("SKETCH_CONSOLE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "console", defaultConfig.Device, "Console serial device, - for stdout.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Console baud rate.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Open opens the console. Serial consoles use CRLF line endings.
func (c *Config) Open() (*Console, error) {
	if c.Device == "" || c.Device == "-" {
		return New(os.Stdout), nil
	}
	port, err := serial.Open(c.Device, &serial.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open console %s: %v", c.Device, err)
	}
	con := New(port)
	con.EOL, con.closer = "\r\n", port
	return con, nil
}
