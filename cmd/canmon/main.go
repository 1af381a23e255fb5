package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.einride.tech/can"

	"github.com/robotalks/sketch.go/pkg/canbus"
	fx "github.com/robotalks/sketch.go/pkg/framework"
)

var (
	counterID = uint(canbus.CounterID)
	interval  = 5 * time.Second
)

func init() {
	canbus.SetupFlags()
	flag.UintVar(&counterID, "can-id", counterID, "CAN identifier of counter frames.")
	flag.DurationVar(&interval, "interval", interval, "Summary interval.")
}

type monitor struct {
	*canbus.CounterMonitor
	iface string
	lock  sync.Mutex
}

func (m *monitor) observe(f can.Frame) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, err := m.Observe(f); err != nil {
		glog.Warningf("%s: %v", f.String(), err)
	}
}

func (m *monitor) stats() canbus.CounterStats {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.Stats()
}

func (m *monitor) receive(ctx context.Context) error {
	rx, err := canbus.OpenReceiver(ctx, m.iface)
	if err != nil {
		return err
	}
	return fx.RunWithContextCloser(ctx, rx, func() error {
		for rx.Receive() {
			m.observe(rx.Frame())
		}
		return rx.Err()
	})
}

func (m *monitor) report(ctx context.Context) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			glog.Infof("final: %s", m.stats())
			return ctx.Err()
		case <-ticker.C:
			glog.Info(m.stats())
		}
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	m := &monitor{
		CounterMonitor: canbus.NewCounterMonitor(uint32(counterID)),
		iface:          canbus.Default().Interface,
	}
	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("receive", fx.RunFunc(m.receive)),
		fx.NamedRun("report", fx.RunFunc(m.report)),
	)
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
