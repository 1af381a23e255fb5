// Package all registers all simulator shell commands.
package all

import (
	_ "github.com/robotalks/sketch.go/pkg/cli/cmds/blink"
	_ "github.com/robotalks/sketch.go/pkg/cli/cmds/counter"
)
