// Package powerwatch follows systemd-logind sleep notifications so the
// amplifier is sequenced off before the host suspends and restored after.
package powerwatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	logindService   = "org.freedesktop.login1"
	logindInterface = "org.freedesktop.login1.Manager"
	logindPath      = dbus.ObjectPath("/org/freedesktop/login1")
	sleepSignal     = "PrepareForSleep"
)

// Target is what the watcher drives.
type Target interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Inhibitor takes a sleep delay lock; closing the result releases it.
type Inhibitor func() (io.Closer, error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithInhibitor replaces the logind delay lock.
func WithInhibitor(fn Inhibitor) Option {
	return func(w *Watcher) { w.inhibit = fn }
}

// Watcher subscribes to logind PrepareForSleep on the system bus. While
// running it holds a delay inhibitor so logind waits for the power-off
// before suspending.
type Watcher struct {
	target  Target
	inhibit Inhibitor
	lock    io.Closer
}

// New creates a Watcher for target.
func New(target Target, opts ...Option) *Watcher {
	w := &Watcher{target: target}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run connects to the system bus and handles sleep signals until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("powerwatch: connect system bus: %w", err)
	}
	defer conn.Close()

	if w.inhibit == nil {
		w.inhibit = logindInhibitor(conn)
	}
	w.Acquire()
	defer w.release()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(sleepSignal),
	); err != nil {
		return fmt.Errorf("powerwatch: add match: %w", err)
	}

	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	slog.Info("powerwatch: watching logind sleep signals")
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			w.Handle(ctx, sig)
		}
	}
}

// logindInhibitor takes a "delay" sleep lock through Manager.Inhibit. The
// lock is the returned file descriptor.
func logindInhibitor(conn *dbus.Conn) Inhibitor {
	return func() (io.Closer, error) {
		var fd dbus.UnixFD
		err := conn.Object(logindService, logindPath).Call(
			logindInterface+".Inhibit", 0,
			"sleep", "ampctl", "Powering the amplifier off", "delay",
		).Store(&fd)
		if err != nil {
			return nil, fmt.Errorf("powerwatch: inhibit: %w", err)
		}
		return os.NewFile(uintptr(fd), "logind-inhibit"), nil
	}
}

// Acquire takes the delay lock if none is held. Failure is logged; the
// watcher still reacts to signals, just without delaying sleep.
func (w *Watcher) Acquire() {
	if w.inhibit == nil || w.lock != nil {
		return
	}
	lock, err := w.inhibit()
	if err != nil {
		slog.Warn("powerwatch: no sleep delay lock", "err", err)
		return
	}
	w.lock = lock
}

func (w *Watcher) release() {
	if w.lock == nil {
		return
	}
	if err := w.lock.Close(); err != nil {
		slog.Warn("powerwatch: releasing sleep delay lock", "err", err)
	}
	w.lock = nil
}

// Handle reacts to a single signal. Anything other than a well-formed
// PrepareForSleep is ignored. The delay lock is released once the amplifier
// is off and taken again after resume.
func (w *Watcher) Handle(ctx context.Context, sig *dbus.Signal) {
	if sig == nil || sig.Name != logindInterface+"."+sleepSignal || len(sig.Body) != 1 {
		return
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if sleeping {
		if err := w.target.Suspend(ctx); err != nil {
			slog.Warn("powerwatch: suspend power-off failed", "err", err)
		}
		w.release()
		return
	}
	w.Acquire()
	if err := w.target.Resume(ctx); err != nil {
		slog.Warn("powerwatch: resume failed", "err", err)
	}
}
