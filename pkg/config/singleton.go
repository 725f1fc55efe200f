package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current is the process-wide configuration; nil until installed.
	current atomic.Pointer[Config]

	// initMu serializes Initialize calls.
	initMu sync.Mutex
)

// Initialize loads path with KONE_* overrides and installs it as the
// process-wide configuration. Once a configuration is installed later calls
// are no-ops. A failed call installs nothing and may be retried.
func Initialize(path string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if current.Load() != nil {
		return nil
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	current.Store(cfg)
	return nil
}

// GetConfig returns the installed configuration, or nil. Callers must treat
// the result as read-only; a reload swaps in a new value instead of
// mutating it.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig installs cfg, replacing any previous configuration.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path and installs the result. On failure the installed
// configuration is kept.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that runs after startup. It panics
// when no configuration is installed.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
