package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/models"
)

// PowerOn validates info and runs the power-on sequence. Register failures
// do not abort the sequence; they are reported as an internal error after
// the new state has been published.
func (c *Controller) PowerOn(ctx context.Context, info d4np2.SettingInfo) (models.State, *models.AppError) {
	if err := info.Validate(); err != nil {
		return models.State{}, models.ErrBadRequest(err.Error())
	}
	err := c.amp.PowerOn(ctx, info)
	c.setLast("", &info)
	st := c.publish(events.KindPowerOn)
	if err != nil {
		return st, models.ErrInternal(err.Error())
	}
	return st, nil
}

// PowerOff runs the power-off sequence.
func (c *Controller) PowerOff(ctx context.Context) (models.State, *models.AppError) {
	err := c.amp.PowerOff(ctx)
	c.setLast(d4np2.PresetOff, nil)
	st := c.publish(events.KindPowerOff)
	if err != nil {
		return st, models.ErrInternal(err.Error())
	}
	return st, nil
}

// Presets lists the builtin presets followed by the user presets.
func (c *Controller) Presets() []models.PresetInfo {
	var out []models.PresetInfo
	for _, n := range d4np2.PresetNames() {
		out = append(out, models.PresetInfo{Name: n, Builtin: true})
	}
	for _, p := range c.Config().Presets {
		out = append(out, models.PresetInfo{Name: p.Name})
	}
	return out
}

// LoadPreset applies a builtin or user preset by name.
func (c *Controller) LoadPreset(ctx context.Context, name string) (models.State, *models.AppError) {
	if name == d4np2.PresetOff {
		return c.PowerOff(ctx)
	}
	info, ok := d4np2.PresetByName(name)
	if !ok {
		p, found := c.Config().Preset(name)
		if !found {
			return models.State{}, models.ErrNotFound(fmt.Sprintf("preset %q not found", name))
		}
		info = p.Settings
	}
	if err := info.Validate(); err != nil {
		return models.State{}, models.ErrBadRequest(err.Error())
	}
	err := c.amp.PowerOn(ctx, info)
	c.setLast(name, &info)
	st := c.publish(events.KindPreset)
	if err != nil {
		return st, models.ErrInternal(err.Error())
	}
	return st, nil
}

func (c *Controller) setLast(name string, info *d4np2.SettingInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPreset = name
	c.lastSettings = info
}

// Suspend powers the amplifier off before the host sleeps and remembers
// what was playing so Resume can restore it.
func (c *Controller) Suspend(ctx context.Context) error {
	c.mu.Lock()
	c.resume = c.lastSettings
	c.resumeName = c.lastPreset
	c.mu.Unlock()

	slog.Info("controller: host suspending, powering off")
	if _, appErr := c.PowerOff(ctx); appErr != nil {
		return appErr
	}
	return nil
}

// Resume restores the settings in effect before the last Suspend. It is a
// no-op when the amplifier was off.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	info, name := c.resume, c.resumeName
	c.resume, c.resumeName = nil, ""
	c.mu.Unlock()
	if info == nil {
		return nil
	}

	slog.Info("controller: host resumed, restoring", "preset", name)
	err := c.amp.PowerOn(ctx, *info)
	c.setLast(name, info)
	c.publish(events.KindPowerOn)
	return err
}

func isBuiltinPreset(name string) bool {
	if name == d4np2.PresetOff {
		return true
	}
	_, ok := d4np2.PresetByName(name)
	return ok
}

// SavePreset stores info as a user preset, replacing one of the same name,
// and schedules a config write.
func (c *Controller) SavePreset(name string, info d4np2.SettingInfo) (models.PresetInfo, *models.AppError) {
	if name == "" {
		return models.PresetInfo{}, models.ErrInvalidParam("name", "preset name is required")
	}
	if isBuiltinPreset(name) {
		return models.PresetInfo{}, models.ErrInvalidParam("name", fmt.Sprintf("preset %q is builtin", name))
	}
	if err := info.Validate(); err != nil {
		return models.PresetInfo{}, models.ErrBadRequest(err.Error())
	}

	c.mu.Lock()
	cfg := c.cfg.DeepCopy()
	replaced := false
	for i := range cfg.Presets {
		if cfg.Presets[i].Name == name {
			cfg.Presets[i].Settings = info
			replaced = true
		}
	}
	if !replaced {
		cfg.Presets = append(cfg.Presets, models.Preset{Name: name, Settings: info})
	}
	appErr := c.commit(cfg)
	c.mu.Unlock()
	if appErr != nil {
		return models.PresetInfo{}, appErr
	}

	slog.Info("controller: preset saved", "name", name, "replaced", replaced)
	c.publish(events.KindConfig)
	return models.PresetInfo{Name: name}, nil
}

// DeletePreset removes a user preset. A default preset naming it is cleared.
func (c *Controller) DeletePreset(name string) *models.AppError {
	if isBuiltinPreset(name) {
		return models.ErrInvalidParam("name", fmt.Sprintf("preset %q is builtin", name))
	}

	c.mu.Lock()
	cfg := c.cfg.DeepCopy()
	kept := cfg.Presets[:0]
	for _, p := range cfg.Presets {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(cfg.Presets) {
		c.mu.Unlock()
		return models.ErrNotFound(fmt.Sprintf("preset %q not found", name))
	}
	cfg.Presets = kept
	if cfg.DefaultPreset == name {
		cfg.DefaultPreset = ""
	}
	appErr := c.commit(cfg)
	c.mu.Unlock()
	if appErr != nil {
		return appErr
	}

	slog.Info("controller: preset deleted", "name", name)
	c.publish(events.KindConfig)
	return nil
}

// commit persists cfg and adopts it. Callers hold c.mu.
func (c *Controller) commit(cfg models.Config) *models.AppError {
	if err := c.store.Save(&cfg); err != nil {
		return models.ErrInternal("saving config: " + err.Error())
	}
	c.cfg = cfg
	return nil
}
