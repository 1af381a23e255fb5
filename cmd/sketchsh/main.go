package main

//go-build: CGO_ENABLED=0

import (
	"github.com/robotalks/sketch.go/pkg/cli/sh"

	_ "github.com/robotalks/sketch.go/pkg/cli/cmds/all"
)

func main() {
	sh.Main()
}
