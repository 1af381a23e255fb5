package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/sim"
)

// Shell provides ishell backed interactive shell over a simulated board.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Env   *sim.Env
}

const (
	shellKey = "$shell"
	prompt   = "sim > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PinsCmd,
		&FramesCmd,
		&ClockCmd,
		&ResetCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(env *sim.Env) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Env:   env,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// CountArg parses the optional iteration count at args[n], default 1.
func CountArg(c *ishell.Context, n int) (int, bool) {
	if len(c.Args) <= n {
		return 1, true
	}
	count, err := strconv.Atoi(c.Args[n])
	if err != nil || count < 0 {
		c.Err(fmt.Errorf("invalid count %q", c.Args[n]))
		return 0, false
	}
	return count, true
}

// Print prints v as JSON when requested, or the preformatted lines.
func Print(c *ishell.Context, v interface{}, lines ...string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	for _, line := range lines {
		c.Println(line)
	}
}

// FlushConsole prints what the sketches wrote on their console.
func FlushConsole(c *ishell.Context) {
	for _, line := range ShellFrom(c).Env.Output() {
		c.Println(line)
	}
}

// Context is the context passed to the simulated loops.
func Context() context.Context {
	return context.Background()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

type pinInfo struct {
	Name    string `json:"name"`
	Level   bool   `json:"level"`
	Output  bool   `json:"output"`
	Rising  uint64 `json:"rising"`
	Falling uint64 `json:"falling"`
}

var (
	// PinsCmd lists simulated pins.
	PinsCmd = ishell.Cmd{
		Name:    "pins",
		Aliases: []string{"p"},
		Help:    "",
		Func: func(c *ishell.Context) {
			env := ShellFrom(c).Env
			var infos []pinInfo
			for name, pin := range env.Pins.SimPins() {
				rising, falling := pin.Edges()
				infos = append(infos, pinInfo{
					Name: name, Level: pin.Get(), Output: pin.IsOutput(),
					Rising: rising, Falling: falling,
				})
			}
			sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
			lines := make([]string, 0, len(infos)+1)
			for _, info := range infos {
				lines = append(lines, fmt.Sprintf("%-12s level=%-5v output=%-5v rising=%d falling=%d",
					info.Name, info.Level, info.Output, info.Rising, info.Falling))
			}
			if port, err := env.Pins.Port(); err == nil {
				lines = append(lines, fmt.Sprintf("%-12s out=0x%08x", "PORT", port.Out()))
			}
			Print(c, infos, lines...)
		},
	}

	// FramesCmd lists the last frames on the simulated bus.
	FramesCmd = ishell.Cmd{
		Name:    "frames",
		Aliases: []string{"f"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			count, ok := CountArg(c, 0)
			if !ok {
				return
			}
			frames := ShellFrom(c).Env.Bus.Frames()
			if count < len(frames) {
				frames = frames[len(frames)-count:]
			}
			lines := make([]string, len(frames))
			for n, f := range frames {
				lines[n] = f.String()
			}
			Print(c, frames, lines...)
		},
	}

	// ClockCmd shows or advances the virtual clock.
	ClockCmd = ishell.Cmd{
		Name:    "clock",
		Aliases: []string{"t"},
		Help:    "[ADVANCE]",
		Func: func(c *ishell.Context) {
			clock := ShellFrom(c).Env.Clock
			if len(c.Args) > 0 {
				d, err := time.ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				clock.Advance(d)
			}
			now := clock.Now()
			Print(c, now, now.Sub(sim.Epoch).String())
		},
	}

	// ResetCmd discards the simulated board.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Env = sim.NewEnv()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(sim.NewEnv()).Run(flag.Args()...)
}
