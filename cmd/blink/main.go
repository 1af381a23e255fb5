package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/blink"
	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
)

func init() {
	hal.SetupFlags()
	blink.SetupFlags()
}

func run() error {
	board, err := hal.DefaultBoard()
	if err != nil {
		return err
	}
	pins := hal.NewPins(board)
	defer pins.Close()

	b, err := blink.Default().NewBlinker(pins)
	if err != nil {
		return err
	}
	return fx.NewLoop().Add(b).RunWith(fx.NewRunner().HandleSignals())
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}
