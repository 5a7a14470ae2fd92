package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/micro-nova/ampctl/internal/d4np2"
)

// Access is one transaction seen by the Mock.
type Access struct {
	Write bool
	Reg   uint8
	Val   byte
	Err   bool
}

// Mock is a thread-safe in-memory amplifier register file for testing and
// development. It starts from the device reset values.
type Mock struct {
	mu        sync.Mutex
	regs      d4np2.Shadow
	log       []Access
	failWrite bool
	failRead  bool
	badWrite  map[uint8]bool
	badRead   map[uint8]bool
	latency   time.Duration
}

// NewMock creates a mock with reset register values and no simulated latency.
func NewMock() *Mock {
	return &Mock{
		regs:     d4np2.DefaultShadow,
		badWrite: make(map[uint8]bool),
		badRead:  make(map[uint8]bool),
	}
}

// SetLatency makes every transaction sleep for d, simulating bus timing.
func (m *Mock) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// FailWriteAt makes writes to reg fail until cleared.
func (m *Mock) FailWriteAt(reg uint8, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badWrite[reg] = fail
}

// FailReadAt makes reads of reg fail until cleared.
func (m *Mock) FailReadAt(reg uint8, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badRead[reg] = fail
}

func (m *Mock) Init(ctx context.Context) error { return nil }

func (m *Mock) Close() error { return nil }

func (m *Mock) IsReal() bool { return false }

func (m *Mock) Write(ctx context.Context, reg uint8, val byte) error {
	m.sleep()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite || m.badWrite[reg] || int(reg) >= d4np2.NumRegisters {
		m.log = append(m.log, Access{Write: true, Reg: reg, Val: val, Err: true})
		return ErrHardware("mock: write failure configured")
	}
	m.log = append(m.log, Access{Write: true, Reg: reg, Val: val})
	m.regs[reg] = val
	return nil
}

func (m *Mock) Read(ctx context.Context, reg uint8) (byte, error) {
	m.sleep()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead || m.badRead[reg] || int(reg) >= d4np2.NumRegisters {
		m.log = append(m.log, Access{Reg: reg, Err: true})
		return 0, ErrHardware("mock: read failure configured")
	}
	m.log = append(m.log, Access{Reg: reg, Val: m.regs[reg]})
	return m.regs[reg], nil
}

func (m *Mock) sleep() {
	m.mu.Lock()
	d := m.latency
	m.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

// GetReg returns a register value for testing purposes.
func (m *Mock) GetReg(reg uint8) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(reg) >= d4np2.NumRegisters {
		return 0
	}
	return m.regs[reg]
}

// SetReg changes a register behind the driver's back, as the device itself
// does for status bits.
func (m *Mock) SetReg(reg uint8, val byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(reg) < d4np2.NumRegisters {
		m.regs[reg] = val
	}
}

// Log returns every transaction seen so far, failed ones included.
func (m *Mock) Log() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Access, len(m.log))
	copy(out, m.log)
	return out
}

// Writes returns the successful writes seen so far.
func (m *Mock) Writes() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Access
	for _, a := range m.log {
		if a.Write && !a.Err {
			out = append(out, a)
		}
	}
	return out
}

// ResetLog forgets recorded transactions.
func (m *Mock) ResetLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// HardwareError is returned when a hardware operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
