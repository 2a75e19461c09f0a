// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/txray-labs/txray/internal/constants"
)

// Config is the root configuration structure.
type Config struct {
	Backend BackendConfig `toml:"backend"`
}

// BackendConfig holds analysis backend settings.
type BackendConfig struct {
	Endpoint   string  `toml:"endpoint"`
	AdminToken string  `toml:"admin_token"`
	RateLimit  float64 `toml:"rate_limit"`
	RateBurst  int     `toml:"rate_burst"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Endpoint:  constants.DefaultBackendURL,
			RateLimit: 1.0,
			RateBurst: 2,
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TXRAY_BACKEND_URL"); v != "" {
		cfg.Backend.Endpoint = v
	}

	if v := os.Getenv("TXRAY_ADMIN_TOKEN"); v != "" {
		cfg.Backend.AdminToken = v
	}

	if v := os.Getenv("TXRAY_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.RateLimit = f
		}
	}

	if v := os.Getenv("TXRAY_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.RateBurst = n
		}
	}
}

// DataDir returns the path to the txray data directory (~/.txray).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".txray"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
