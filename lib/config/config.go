// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bmario/scorep-plugin-x86-adapt/lib/recorder"
	"github.com/bmario/scorep-plugin-x86-adapt/lib/xadapt"
)

// Config is the operator configuration for the xadapt tool. All fields
// have working defaults; the config file only overrides them.
type Config struct {
	// DeviceRoot is the x86_adapt device tree root.
	// Default: /dev/x86_adapt.
	DeviceRoot string `yaml:"device_root"`

	// Interval is the sampling period as a Go duration string.
	// Default: 50ms.
	Interval time.Duration `yaml:"interval"`

	// Store is the path of the SQLite sample store used by
	// `xadapt record --store` and `xadapt runs`. Default:
	// ~/.local/share/xadapt/samples.db.
	Store string `yaml:"store"`

	// LogLevel sets the log verbosity: debug, info, warn, or error.
	// Default: info.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DeviceRoot: xadapt.DefaultRoot,
		Interval:   recorder.DefaultInterval,
		Store:      filepath.Join(homeDir, ".local", "share", "xadapt", "samples.db"),
		LogLevel:   "info",
	}
}

// DefaultPath returns the conventional config file location,
// ~/.config/xadapt/config.yaml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "xadapt", "config.yaml")
}

// Load reads the config file at path, layered over the defaults.
// Unknown fields are rejected so that a typo fails loudly instead of
// silently reverting to a default. A missing file is not an error:
// the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DeviceRoot == "" {
		errs = append(errs, fmt.Errorf("device_root is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", c.Interval))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLogLevel maps a config log level string to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q is not one of debug, info, warn, error", level)
	}
}
