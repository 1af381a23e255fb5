package blink

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sketch.go/pkg/cli/sh"
)

type status struct {
	Pulses     uint64 `json:"pulses"`
	LEDToggles uint64 `json:"led_toggles"`
	Phase      int    `json:"phase"`
	Frequency  string `json:"frequency"`
}

var (
	// StepCmd runs iterations of the blink loop.
	StepCmd = ishell.Cmd{
		Name:    "blink.step",
		Aliases: []string{"bs"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			count, ok := sh.CountArg(c, 0)
			if !ok {
				return
			}
			if err := sh.ShellFrom(c).Env.StepBlink(sh.Context(), count); err != nil {
				c.Err(err)
			}
			sh.FlushConsole(c)
		},
	}

	// StatusCmd shows the blink counters.
	StatusCmd = ishell.Cmd{
		Name:    "blink.status",
		Aliases: []string{"bst"},
		Help:    "",
		Func: func(c *ishell.Context) {
			_, b, err := sh.ShellFrom(c).Env.Blink()
			if err != nil {
				c.Err(err)
				return
			}
			st := status{
				Pulses:     b.Pulses(),
				LEDToggles: b.LEDToggles(),
				Phase:      b.Phase(),
				Frequency:  b.Frequency().String(),
			}
			sh.Print(c, st, fmt.Sprintf("pulses=%d led_toggles=%d phase=%d/%d frequency=%s",
				st.Pulses, st.LEDToggles, st.Phase, b.Divider, st.Frequency))
		},
	}
)

func init() {
	sh.AddCmds(
		&StepCmd,
		&StatusCmd,
	)
}
