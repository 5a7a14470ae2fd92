package config

import (
	"log/slog"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/models"
)

// normalize repairs a loaded config in place: unknown batch policies fall
// back to continue, invalid or shadowing presets are dropped, and a default
// preset that names nothing is cleared.
func normalize(cfg *models.Config) {
	if _, ok := d4np2.ParseBatchPolicy(cfg.BatchPolicy); !ok {
		slog.Warn("config: unknown batch policy, using continue", "policy", cfg.BatchPolicy)
		cfg.BatchPolicy = d4np2.BatchContinue.String()
	}
	if cfg.BatchPolicy == "" {
		cfg.BatchPolicy = d4np2.BatchContinue.String()
	}

	seen := make(map[string]bool)
	kept := cfg.Presets[:0]
	for _, p := range cfg.Presets {
		switch {
		case p.Name == "":
			slog.Warn("config: dropping unnamed preset")
		case isBuiltin(p.Name):
			slog.Warn("config: preset shadows a builtin, dropping", "name", p.Name)
		case seen[p.Name]:
			slog.Warn("config: duplicate preset, dropping", "name", p.Name)
		default:
			if err := p.Settings.Validate(); err != nil {
				slog.Warn("config: invalid preset, dropping", "name", p.Name, "err", err)
				continue
			}
			seen[p.Name] = true
			kept = append(kept, p)
		}
	}
	cfg.Presets = kept

	if cfg.DefaultPreset != "" && !isBuiltin(cfg.DefaultPreset) && !seen[cfg.DefaultPreset] {
		slog.Warn("config: default preset not found, ignoring", "name", cfg.DefaultPreset)
		cfg.DefaultPreset = ""
	}
}

func isBuiltin(name string) bool {
	for _, n := range d4np2.PresetNames() {
		if n == name {
			return true
		}
	}
	return false
}
