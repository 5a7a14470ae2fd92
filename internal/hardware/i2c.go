//go:build linux

package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl: combined write+read with REPEATED START
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec = 2000
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// I2CDriver talks to the amplifier through /dev/i2c-N using I2C_RDWR for
// every transaction.
type I2CDriver struct {
	mu      sync.Mutex
	path    string
	addr    uint16
	fd      int
	limiter *rate.Limiter
}

// NewI2C creates a driver for the amplifier at 7-bit address addr on the
// i2c-dev node path.
func NewI2C(path string, addr uint16) *I2CDriver {
	return &I2CDriver{
		path:    path,
		addr:    addr,
		fd:      -1,
		limiter: rate.NewLimiter(rate.Limit(maxOpsPerSec), 10),
	}
}

func (d *I2CDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fd, err := unix.Open(d.path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("i2c: open %s: %w", d.path, err)
	}

	// Probe the protection status register; it is readable in any power state.
	if _, err := d.readByteData(fd, command(17)); err != nil {
		unix.Close(fd)
		return fmt.Errorf("i2c: no amplifier at 0x%02x on %s: %w", d.addr, d.path, err)
	}
	d.fd = fd
	slog.Info("i2c: amplifier detected", "bus", d.path, "addr", fmt.Sprintf("0x%02x", d.addr))
	return nil
}

func (d *I2CDriver) Write(ctx context.Context, reg uint8, val byte) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return fmt.Errorf("i2c: driver not initialized")
	}
	err := d.writeByteData(d.fd, command(reg), val)
	time.Sleep(ControlTime)
	return err
}

func (d *I2CDriver) Read(ctx context.Context, reg uint8) (byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return 0, fmt.Errorf("i2c: driver not initialized")
	}
	b, err := d.readByteData(d.fd, command(reg))
	time.Sleep(ControlTime)
	return b, err
}

// readByteData performs a combined write+read with REPEATED START (SMBus read_byte_data).
func (d *I2CDriver) readByteData(fd int, cmd byte) (byte, error) {
	wbuf := [1]byte{cmd}
	rbuf := [1]byte{}

	msgs := [2]i2cMsg{
		{addr: d.addr, flags: 0, length: 1, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
		{addr: d.addr, flags: i2cMsgRD, length: 1, buf: uintptr(unsafe.Pointer(&rbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 2}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return 0, fmt.Errorf("i2c: I2C_RDWR read cmd=0x%02x: %w", cmd, errno)
	}
	return rbuf[0], nil
}

// writeByteData performs a combined write of [cmd, val] using I2C_RDWR.
func (d *I2CDriver) writeByteData(fd int, cmd, val byte) error {
	wbuf := [2]byte{cmd, val}
	msgs := [1]i2cMsg{
		{addr: d.addr, flags: 0, length: 2, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 1}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR write 0x%02x cmd=0x%02x: %w", d.addr, cmd, errno)
	}
	return nil
}

func (d *I2CDriver) IsReal() bool { return true }

// Close releases the I2C file descriptor.
func (d *I2CDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
