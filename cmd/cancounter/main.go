package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/sketch.go/pkg/canbus"
	"github.com/robotalks/sketch.go/pkg/console"
	"github.com/robotalks/sketch.go/pkg/counter"
	fx "github.com/robotalks/sketch.go/pkg/framework"
	"github.com/robotalks/sketch.go/pkg/hal"
	"github.com/robotalks/sketch.go/pkg/telemetry"
)

func init() {
	hal.SetupFlags()
	console.SetupFlags()
	canbus.SetupFlags()
	counter.SetupFlags()
	telemetry.SetupFlags()
}

// run returns once the loop stops, after closing the devices.
func run() error {
	board, err := hal.DefaultBoard()
	if err != nil {
		return err
	}
	pins := hal.NewPins(board)
	defer pins.Close()

	con, err := console.Default().Open()
	if err != nil {
		return err
	}
	defer con.Close()

	busConf := canbus.Default()
	bus, err := busConf.NewBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	b, err := counter.Default().NewBroadcaster(pins, bus, busConf.Bitrate, con)
	if err != nil {
		return err
	}
	loop := fx.NewLoop().Add(b)

	pub, err := telemetry.Default().NewPublisher(telemetry.Meta{
		Program:     "cancounter",
		Description: "CAN counter broadcaster",
		Labels: map[string]string{
			"board":     board.Name,
			"interface": busConf.Interface,
		},
	})
	if err != nil {
		return err
	}
	if pub != nil {
		b.AddSink(pub)
		loop.Add(pub)
	}

	return loop.RunWith(fx.NewRunner().HandleSignals())
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exit(err)
	}
}
