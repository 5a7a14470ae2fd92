package models

import "github.com/micro-nova/ampctl/internal/d4np2"

// Config is the operator configuration persisted in ampctl.json.
// Register contents are never persisted.
type Config struct {
	// ShuntSwitch selects the PD_SNT level used when the receiver powers
	// down. Nil means true.
	ShuntSwitch   *bool    `json:"shunt_switch,omitempty"`
	SpeakerHiZ    bool     `json:"speaker_hiz"`
	HeadphoneHiZ  bool     `json:"headphone_hiz"`
	BatchPolicy   string   `json:"batch_policy,omitempty"` // "continue" | "abort"
	APIKeys       []string `json:"api_keys,omitempty"`
	Presets       []Preset `json:"presets,omitempty"`
	DefaultPreset string   `json:"default_preset,omitempty"`
}

// Preset is a user-defined named power-on setting.
type Preset struct {
	Name     string            `json:"name"`
	Settings d4np2.SettingInfo `json:"settings"`
}

// Shunt returns the effective shunt-switch policy.
func (c Config) Shunt() bool {
	return c.ShuntSwitch == nil || *c.ShuntSwitch
}

// Preset returns the user preset with the given name.
func (c Config) Preset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// DeepCopy returns a copy of c that shares no memory with it.
func (c Config) DeepCopy() Config {
	next := c
	if c.ShuntSwitch != nil {
		v := *c.ShuntSwitch
		next.ShuntSwitch = &v
	}
	next.APIKeys = append([]string(nil), c.APIKeys...)
	next.Presets = append([]Preset(nil), c.Presets...)
	return next
}
