package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphDriver reaches the amplifier through periph.io's I2C registry, which
// covers buses the raw ioctl driver does not (FT232H, sysfs aliases).
type PeriphDriver struct {
	mu   sync.Mutex
	name string
	addr uint16
	bus  i2c.BusCloser
	dev  *i2c.Dev
}

// NewPeriph creates a driver for the amplifier at addr on the named bus.
// An empty name opens the first bus periph.io finds.
func NewPeriph(name string, addr uint16) *PeriphDriver {
	return &PeriphDriver{name: name, addr: addr}
}

func (p *PeriphDriver) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph: host init failed: %w", err)
	}
	bus, err := i2creg.Open(p.name)
	if err != nil {
		return fmt.Errorf("periph: open bus %q: %w", p.name, err)
	}
	p.bus = bus
	p.dev = &i2c.Dev{Bus: bus, Addr: p.addr}
	slog.Info("periph: amplifier bus opened", "bus", bus.String(), "addr", fmt.Sprintf("0x%02x", p.addr))
	return nil
}

func (p *PeriphDriver) Write(ctx context.Context, reg uint8, val byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return fmt.Errorf("periph: driver not initialized")
	}
	err := p.dev.Tx([]byte{command(reg), val}, nil)
	time.Sleep(ControlTime)
	if err != nil {
		return fmt.Errorf("periph: write reg #%d: %w", reg, err)
	}
	return nil
}

func (p *PeriphDriver) Read(ctx context.Context, reg uint8) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return 0, fmt.Errorf("periph: driver not initialized")
	}
	var r [1]byte
	err := p.dev.Tx([]byte{command(reg)}, r[:])
	time.Sleep(ControlTime)
	if err != nil {
		return 0, fmt.Errorf("periph: read reg #%d: %w", reg, err)
	}
	return r[0], nil
}

func (p *PeriphDriver) IsReal() bool { return true }

func (p *PeriphDriver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus, p.dev = nil, nil
	return err
}
