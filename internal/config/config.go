package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all shipdeck configuration.
type Config struct {
	// Server is the backend API base URL, e.g. "http://localhost:8800/api".
	Server string `toml:"server"`
	// PollIntervalMS is the re-fetch interval while a delivery is running.
	PollIntervalMS int `toml:"poll_interval_ms"`
}

const (
	defaultServer       = "http://localhost:8800/api"
	defaultPollInterval = 3000 * time.Millisecond
)

// ServerOrDefault returns Server if set, otherwise the local default.
func (c Config) ServerOrDefault() string {
	if c.Server != "" {
		return c.Server
	}
	return defaultServer
}

// PollInterval returns the configured poll interval, or the 3s default.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMS > 0 {
		return time.Duration(c.PollIntervalMS) * time.Millisecond
	}
	return defaultPollInterval
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - SHIPDECK_SERVER overrides server
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the shipdeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/shipdeck/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHIPDECK_SERVER"); v != "" {
		cfg.Server = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as
// needed. Existing file contents are overwritten.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
