// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

// Package config loads the cxxsym configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "CXXSYM_CONFIG"

// Config is the cxxsym configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level  string `yaml:"level" env:"CXXSYM_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"CXXSYM_LOG_PRETTY"`
}

// AnalysisConfig configures how binaries are analyzed.
type AnalysisConfig struct {
	// GlobalOnly keeps only exported functions.
	GlobalOnly bool `yaml:"global_only" env:"CXXSYM_GLOBAL_ONLY"`
	// MiniDebugInfo reads the symbol table embedded in .gnu_debugdata.
	MiniDebugInfo bool `yaml:"minidebuginfo" env:"CXXSYM_MINIDEBUGINFO"`
	// DemangleCacheSize is the number of demangled names kept in memory.
	DemangleCacheSize int `yaml:"demangle_cache_size" env:"CXXSYM_CACHE_SIZE"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Pretty: true,
		},
		Analysis: AnalysisConfig{
			DemangleCacheSize: 4096,
		},
	}
}

// Load reads the configuration file at path, or at $CXXSYM_CONFIG when path
// is empty. Without a file the defaults are used. Environment variables
// override the file and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	config := Default()
	if path != "" {
		//nolint:gosec // G304: The path is chosen by the user.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := MergeFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	var errs []error
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Log.Level))
	}
	if c.Analysis.DemangleCacheSize < 0 {
		errs = append(errs, fmt.Errorf("demangle cache size must not be negative, got %d", c.Analysis.DemangleCacheSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
