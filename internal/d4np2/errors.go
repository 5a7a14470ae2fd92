package d4np2

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by RegisterError through errors.Is.
var (
	ErrOutOfRange = errors.New("d4np2: register out of range")
	ErrTransport  = errors.New("d4np2: transport failure")
)

// ErrorKind classifies a RegisterError.
type ErrorKind uint8

const (
	KindOutOfRange ErrorKind = iota // register number beyond the access bound
	KindTransport                   // bus error, cause in Err
)

func (k ErrorKind) String() string {
	switch k {
	case KindOutOfRange:
		return "out of range"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// RegisterError reports a failed register access.
type RegisterError struct {
	Op   string // "write", "read"
	Reg  uint8
	Kind ErrorKind
	Err  error // transport cause, nil for KindOutOfRange
}

func (e *RegisterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("d4np2: %s reg #%d: %s: %v", e.Op, e.Reg, e.Kind, e.Err)
	}
	return fmt.Sprintf("d4np2: %s reg #%d: %s", e.Op, e.Reg, e.Kind)
}

func (e *RegisterError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *RegisterError) Is(target error) bool {
	switch target {
	case ErrOutOfRange:
		return e.Kind == KindOutOfRange
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

func outOfRange(op string, reg uint8) error {
	return &RegisterError{Op: op, Reg: reg, Kind: KindOutOfRange}
}

func transportFailure(op string, reg uint8, err error) error {
	return &RegisterError{Op: op, Reg: reg, Kind: KindTransport, Err: err}
}
