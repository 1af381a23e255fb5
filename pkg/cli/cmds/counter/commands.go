package counter

import (
	"errors"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sketch.go/pkg/cli/sh"
)

var (
	// StepCmd runs iterations of the counter loop.
	StepCmd = ishell.Cmd{
		Name:    "counter.step",
		Aliases: []string{"cs"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			count, ok := sh.CountArg(c, 0)
			if !ok {
				return
			}
			err := sh.ShellFrom(c).Env.StepCounter(sh.Context(), count)
			sh.FlushConsole(c)
			if err != nil {
				c.Err(err)
			}
		},
	}

	// StatsCmd shows the broadcaster state and what the monitor received.
	StatsCmd = ishell.Cmd{
		Name:    "counter.stats",
		Aliases: []string{"cst"},
		Help:    "",
		Func: func(c *ishell.Context) {
			env := sh.ShellFrom(c).Env
			l, b, err := env.Counter()
			if err != nil {
				c.Err(err)
				return
			}
			st := b.State
			mon := env.Monitor.Stats()
			sh.Print(c, map[string]interface{}{
				"loop":    l.State().String(),
				"counter": st.Counter,
				"window":  st.Window,
				"monitor": mon,
			},
				fmt.Sprintf("loop=%s counter=%d window=%d/%d tx_errors=%d bus=%s",
					l.State(), st.Counter, st.Window.Count, st.Window.Size, st.TxErrors, st.BusState),
				"monitor: "+mon.String(),
			)
		},
	}

	// FailCmd makes the simulated CAN controller fail to start or send.
	FailCmd = ishell.Cmd{
		Name: "counter.fail",
		Help: "begin|send|none",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("begin, send or none required"))
				return
			}
			bus := sh.ShellFrom(c).Env.Bus
			errSim := errors.New("simulated failure")
			switch c.Args[0] {
			case "begin":
				bus.BeginErr = errSim
			case "send":
				bus.SendErr = errSim
			case "none":
				bus.BeginErr, bus.SendErr = nil, nil
			default:
				c.Err(fmt.Errorf("unknown failure %q", c.Args[0]))
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&StepCmd,
		&StatsCmd,
		&FailCmd,
	)
}
