// Package hardware provides the bus transports the D-4NP2 amplifier sits on:
// a Linux I2C_RDWR driver, a periph.io driver and an in-memory mock.
// All of them satisfy d4np2.Transport.
package hardware

import (
	"context"
	"time"

	"github.com/micro-nova/ampctl/internal/d4np2"
)

const (
	// CommandBase is added to the register number to form the SMBus command
	// byte the amplifier decodes.
	CommandBase = 0x80

	// ControlTime is the bus settling time the amplifier needs after each
	// transaction.
	ControlTime = 23 * time.Microsecond

	DefaultBus  = "/dev/i2c-1"
	DefaultAddr = 0x6C
)

// Driver is a d4np2.Transport with a lifecycle.
type Driver interface {
	d4np2.Transport

	// Init opens the bus. Must be called before Write or Read.
	Init(ctx context.Context) error

	// Close releases the bus.
	Close() error

	// IsReal returns true for a hardware driver, false for a mock.
	IsReal() bool
}

// command returns the SMBus command byte for reg.
func command(reg uint8) byte { return CommandBase + reg }
