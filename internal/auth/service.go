// Package auth implements API-key authentication for the control API.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"sync"
)

// Service holds the accepted API keys. With no keys configured the API is
// open.
type Service struct {
	mu   sync.RWMutex
	keys []string
}

// NewService creates a service accepting the given keys.
func NewService(keys []string) *Service {
	s := &Service{}
	s.SetKeys(keys)
	return s
}

// SetKeys replaces the accepted keys. Empty keys are ignored.
func (s *Service) SetKeys(keys []string) {
	var kept []string
	for _, k := range keys {
		if k != "" {
			kept = append(kept, k)
		}
	}
	s.mu.Lock()
	s.keys = kept
	s.mu.Unlock()
	slog.Debug("auth: keys updated", "count", len(kept))
}

// IsOpenMode returns true if no keys are configured.
// In open mode, all requests are allowed without authentication.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys) == 0
}

// VerifyKey returns true if key matches any configured key.
// Uses constant-time comparison to prevent timing attacks.
func (s *Service) VerifyKey(key string) bool {
	if key == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			return true
		}
	}
	return false
}
