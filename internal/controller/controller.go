// Package controller owns the amplifier at runtime: it turns operator
// requests into amplifier operations, keeps the operator configuration and
// publishes a snapshot after every change.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/micro-nova/ampctl/internal/config"
	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/hardware"
	"github.com/micro-nova/ampctl/internal/models"
)

// Controller is the single entry point to the amplifier for the API, the
// config watcher and the suspend hook. The amplifier serialises its own
// sequences; mu only guards the controller's bookkeeping and is never held
// across an amplifier call.
type Controller struct {
	amp     *d4np2.Amplifier
	hw      hardware.Driver
	store   config.Store
	bus     *events.Bus
	version string

	mu           sync.RWMutex
	cfg          models.Config
	lastPreset   string
	lastSettings *d4np2.SettingInfo // nil while off
	lastErr      string
	faults       models.Faults // last polled

	// captured by Suspend
	resume     *d4np2.SettingInfo
	resumeName string
}

// New loads the configuration and builds the amplifier on hw. Extra options
// are applied after the configured ones (tests pass a clock here).
func New(hw hardware.Driver, store config.Store, bus *events.Bus, version string, opts ...d4np2.Option) (*Controller, error) {
	cfg, err := store.Load()
	if err != nil {
		return nil, err
	}
	c := &Controller{
		hw:      hw,
		store:   store,
		bus:     bus,
		version: version,
		cfg:     *cfg,
	}
	base := []d4np2.Option{
		d4np2.WithMapOptions(d4np2.WithErrorHook(c.recordError)),
	}
	c.amp = d4np2.New(hw, append(base, opts...)...)
	c.amp.SetPolicy(policy(c.cfg))
	return c, nil
}

func policy(cfg models.Config) d4np2.Policy {
	batch, _ := d4np2.ParseBatchPolicy(cfg.BatchPolicy)
	return d4np2.Policy{
		ShuntSwitch:  cfg.Shunt(),
		SpeakerHiZ:   cfg.SpeakerHiZ,
		HeadphoneHiZ: cfg.HeadphoneHiZ,
		Batch:        batch,
	}
}

// recordError is the register map's error hook.
func (c *Controller) recordError(err error) {
	slog.Error("d4np2: register access failed", "err", err)
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// State returns the current snapshot.
func (c *Controller) State() models.State {
	st := models.NewState(c.amp.Status())
	c.mu.RLock()
	defer c.mu.RUnlock()
	st.LastPreset = c.lastPreset
	st.LastError = c.lastErr
	st.Faults = c.faults
	st.Info = models.Info{Version: c.version, Mock: !c.hw.IsReal()}
	return st
}

func (c *Controller) publish(kind string) models.State {
	st := c.State()
	c.bus.Publish(events.Event{Kind: kind, State: st.DeepCopy()})
	return st
}

// Config returns a copy of the operator configuration.
func (c *Controller) Config() models.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.DeepCopy()
}

// ApplyConfig adopts a reloaded configuration. The new board policy takes
// effect from the next power sequence.
func (c *Controller) ApplyConfig(cfg *models.Config) {
	c.mu.Lock()
	c.cfg = cfg.DeepCopy()
	p := policy(c.cfg)
	c.mu.Unlock()

	c.amp.SetPolicy(p)
	slog.Info("controller: configuration applied",
		"shunt_switch", p.ShuntSwitch, "batch_policy", p.Batch,
		"presets", len(cfg.Presets))
	c.publish(events.KindConfig)
}

// Start applies the configured default preset, if any.
func (c *Controller) Start(ctx context.Context) error {
	name := c.Config().DefaultPreset
	if name == "" {
		return nil
	}
	slog.Info("controller: applying default preset", "name", name)
	if _, appErr := c.LoadPreset(ctx, name); appErr != nil {
		return appErr
	}
	return nil
}

// Shutdown powers the amplifier off and flushes pending config writes.
func (c *Controller) Shutdown(ctx context.Context) error {
	_, appErr := c.PowerOff(ctx)
	if err := c.store.Flush(); err != nil {
		slog.Warn("controller: config flush failed", "err", err)
	}
	if appErr != nil {
		return appErr
	}
	return nil
}
