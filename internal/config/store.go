// Package config loads and saves the ampctl operator configuration.
package config

import "github.com/micro-nova/ampctl/internal/models"

// Store is the interface for persisting operator configuration.
type Store interface {
	// Load loads the current config. Returns DefaultConfig if no file exists.
	Load() (*models.Config, error)

	// Save persists the config. Implementations may debounce rapid saves.
	Save(cfg *models.Config) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending config.
	Flush() error
}
