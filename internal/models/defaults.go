package models

import "github.com/micro-nova/ampctl/internal/d4np2"

// DefaultConfig is used when no config file exists: shunt switch in use,
// no Hi-Z outputs, continue-on-failure batches, open API, no presets.
func DefaultConfig() Config {
	return Config{
		BatchPolicy: d4np2.BatchContinue.String(),
	}
}
