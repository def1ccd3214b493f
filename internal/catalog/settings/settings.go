// Package settings is the flat key→value configuration surface the core
// consumes but does not own: per-backend enablement and attribute
// enrichment toggles, read at flag-evaluation time.
package settings

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// Store reads flat configuration keys.
type Store interface {
	GetBool(key string, def bool) bool
	GetString(key string, def string) string
}

// BackendEnabledKey names the enablement toggle for a backend.
func BackendEnabledKey(backend string) string {
	return fmt.Sprintf("backend.%s.enabled", backend)
}

// Well-known enrichment toggles.
const (
	KeyShowSize    = "refine.show-size"
	KeyShowRatings = "refine.show-ratings"
)

// ViperStore reads settings from the process-wide viper instance, so CLI
// flags, environment variables and the config file all feed it.
type ViperStore struct{}

func (ViperStore) GetBool(key string, def bool) bool {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetBool(key)
}

func (ViperStore) GetString(key string, def string) string {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetString(key)
}

// MapStore is an in-memory Store for tests.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMapStore() *MapStore {
	return &MapStore{values: map[string]any{}}
}

func (s *MapStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MapStore) GetBool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return def
}

func (s *MapStore) GetString(key string, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}
