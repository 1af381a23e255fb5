package canbus

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// SocketBus transmits on a SocketCAN interface.
type SocketBus struct {
	Interface string
	// ConfigureLink brings the interface up at the requested bitrate
	// with ip(8) before opening it. Needs CAP_NET_ADMIN.
	ConfigureLink bool

	tx    *socketcan.Transmitter
	state BusState
	lock  sync.Mutex
}

// NewSocketBus creates a SocketBus for the interface, e.g. "can0".
func NewSocketBus(iface string) *SocketBus {
	return &SocketBus{Interface: iface}
}

// Begin implements Bus.
func (b *SocketBus) Begin(ctx context.Context, bitrate int) error {
	if b.ConfigureLink {
		if err := configureLink(ctx, b.Interface, bitrate); err != nil {
			return err
		}
	}
	conn, err := socketcan.DialContext(ctx, "can", b.Interface)
	if err != nil {
		return fmt.Errorf("open %s: %v", b.Interface, err)
	}
	b.lock.Lock()
	b.tx = socketcan.NewTransmitter(conn)
	b.state = StateErrorActive
	b.lock.Unlock()
	if b.ConfigureLink {
		glog.Infof("CAN %s started (%d bit/s)", b.Interface, bitrate)
	} else {
		glog.Infof("CAN %s started, bitrate from the link configuration", b.Interface)
		glog.V(1).Infof("CAN %s: requested %d bit/s not applied, use -can-setup", b.Interface, bitrate)
	}
	return nil
}

// Send implements Bus. The bus state is derived from the socket errors:
// a full queue means the controller can't get frames out, a downed
// interface means the controller went bus-off.
func (b *SocketBus) Send(ctx context.Context, frame can.Frame) error {
	b.lock.Lock()
	tx := b.tx
	b.lock.Unlock()
	if tx == nil {
		return ErrNotStarted
	}
	err := tx.TransmitFrame(ctx, frame)
	state := StateErrorActive
	switch {
	case err == nil:
	case errors.Is(err, syscall.ENOBUFS):
		state = StateErrorPassive
	case errors.Is(err, syscall.ENETDOWN):
		state = StateBusOff
	default:
		state = StateErrorWarning
	}
	b.lock.Lock()
	b.state = state
	b.lock.Unlock()
	return err
}

// State implements Bus.
func (b *SocketBus) State() BusState {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.state
}

// Close implements Bus.
func (b *SocketBus) Close() error {
	b.lock.Lock()
	tx := b.tx
	b.tx, b.state = nil, StateStopped
	b.lock.Unlock()
	if tx != nil {
		return tx.Close()
	}
	return nil
}

// OpenReceiver opens a receiving socket on the interface.
func OpenReceiver(ctx context.Context, iface string) (*socketcan.Receiver, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", iface, err)
	}
	return socketcan.NewReceiver(conn), nil
}

func configureLink(ctx context.Context, iface string, bitrate int) error {
	cmds := [][]string{
		{"link", "set", "dev", iface, "down"},
		{"link", "set", "dev", iface, "type", "can", "bitrate", strconv.Itoa(bitrate), "restart-ms", "100"},
		{"link", "set", "dev", iface, "up"},
	}
	for _, args := range cmds {
		out, err := exec.CommandContext(ctx, "ip", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("ip %v: %v: %s", args, err, out)
		}
		glog.V(2).Infof("ip %v", args)
	}
	return nil
}
