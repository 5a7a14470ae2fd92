package d4np2

import (
	"context"
	"errors"
	"log/slog"
)

// BatchPolicy controls what WriteRegisters does after one byte of a batch fails.
type BatchPolicy uint8

const (
	// BatchContinue still attempts the remaining bytes. Consecutive registers
	// are independent fields, so a failure on one does not invalidate the rest.
	BatchContinue BatchPolicy = iota
	// BatchAbort stops at the first failed byte.
	BatchAbort
)

func (p BatchPolicy) String() string {
	if p == BatchAbort {
		return "abort"
	}
	return "continue"
}

// ParseBatchPolicy accepts "continue" or "abort". Empty selects BatchContinue.
func ParseBatchPolicy(s string) (BatchPolicy, bool) {
	switch s {
	case "", "continue":
		return BatchContinue, true
	case "abort":
		return BatchAbort, true
	}
	return BatchContinue, false
}

// RegisterMap is the register access layer: it keeps the shadow of the device
// register file and only caches values the transport acknowledged.
//
// RegisterMap is not safe for concurrent use; Amplifier serialises access.
type RegisterMap struct {
	t       Transport
	shadow  Shadow
	onError func(error)
	policy  BatchPolicy
}

// MapOption configures a RegisterMap.
type MapOption func(*RegisterMap)

// WithErrorHook replaces the default error reporter (slog.Error).
func WithErrorHook(fn func(error)) MapOption {
	return func(m *RegisterMap) { m.onError = fn }
}

// WithBatchPolicy selects the WriteRegisters failure policy.
func WithBatchPolicy(p BatchPolicy) MapOption {
	return func(m *RegisterMap) { m.policy = p }
}

// WithInitialShadow seeds the shadow instead of DefaultShadow.
func WithInitialShadow(s Shadow) MapOption {
	return func(m *RegisterMap) { m.shadow = s }
}

// NewRegisterMap creates a register map over t, seeded with DefaultShadow.
func NewRegisterMap(t Transport, opts ...MapOption) *RegisterMap {
	m := &RegisterMap{
		t:      t,
		shadow: DefaultShadow,
		onError: func(err error) {
			slog.Error("d4np2: register access failed", "err", err)
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetBatchPolicy changes the WriteRegisters failure policy.
func (m *RegisterMap) SetBatchPolicy(p BatchPolicy) { m.policy = p }

func (m *RegisterMap) fail(err error) error {
	if m.onError != nil {
		m.onError(err)
	}
	return err
}

// WriteField read-modify-writes field f from the cached register value.
func (m *RegisterMap) WriteField(ctx context.Context, f Field, v byte) error {
	reg, _, _ := f.Decode()
	if reg >= MaxWriteRegister {
		return m.fail(outOfRange("write", reg))
	}
	return m.write(ctx, reg, f.Insert(m.shadow[reg], v))
}

// WriteRegister writes a whole register.
func (m *RegisterMap) WriteRegister(ctx context.Context, reg, v byte) error {
	if reg >= MaxWriteRegister {
		return m.fail(outOfRange("write", reg))
	}
	return m.write(ctx, reg, v)
}

// WriteRegisters writes vals to consecutive registers starting at start, one
// single-byte transaction per register. Each register's shadow entry is
// updated only if its own write succeeded. Every failure is reported and the
// failures are returned joined.
func (m *RegisterMap) WriteRegisters(ctx context.Context, start byte, vals []byte) error {
	if start >= MaxWriteRegister || int(start)+len(vals) > NumRegisters {
		return m.fail(outOfRange("write", start))
	}
	var errs []error
	for i, v := range vals {
		reg := start + byte(i)
		if err := m.t.Write(ctx, reg, v); err != nil {
			errs = append(errs, m.fail(transportFailure("write", reg, err)))
			if m.policy == BatchAbort {
				break
			}
			continue
		}
		m.shadow[reg] = v
	}
	return errors.Join(errs...)
}

func (m *RegisterMap) write(ctx context.Context, reg, v byte) error {
	if err := m.t.Write(ctx, reg, v); err != nil {
		return m.fail(transportFailure("write", reg, err))
	}
	m.shadow[reg] = v
	return nil
}

// ReadField reads the register holding f from the device, refreshes the shadow
// with the raw value and returns the field.
func (m *RegisterMap) ReadField(ctx context.Context, f Field) (byte, error) {
	b, err := m.ReadRegister(ctx, f.Reg)
	if err != nil {
		return 0, err
	}
	return f.Extract(b), nil
}

// ReadRegister reads a register from the device and refreshes its shadow entry.
// Reads are how the shadow picks up changes made behind its back.
func (m *RegisterMap) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	if reg >= MaxReadRegister {
		return 0, m.fail(outOfRange("read", reg))
	}
	b, err := m.t.Read(ctx, reg)
	if err != nil {
		return 0, m.fail(transportFailure("read", reg, err))
	}
	m.shadow[reg] = b
	return b, nil
}

// Cached returns the shadow value of reg without bus access.
// Registers outside the file read as zero.
func (m *RegisterMap) Cached(reg byte) byte {
	if int(reg) >= NumRegisters {
		return 0
	}
	return m.shadow[reg]
}

// CachedField returns the shadow value of f without bus access.
func (m *RegisterMap) CachedField(f Field) byte {
	return f.Extract(m.Cached(f.Reg))
}

// Shadow returns a copy of the register shadow.
func (m *RegisterMap) Shadow() Shadow {
	return m.shadow
}
