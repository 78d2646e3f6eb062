// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cxxsym.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  pretty: false
analysis:
  global_only: true
  minidebuginfo: true
  demangle_cache_size: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.True(t, cfg.Analysis.GlobalOnly)
	assert.True(t, cfg.Analysis.MiniDebugInfo)
	assert.Equal(t, 10, cfg.Analysis.DemangleCacheSize)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "analysis:\n  global_only: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 4096, cfg.Analysis.DemangleCacheSize)
	assert.True(t, cfg.Analysis.GlobalOnly)
}

func TestLoadPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, "log:\n  level: error\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\nanalysis:\n  demangle_cache_size: 10\n")
	t.Setenv("CXXSYM_LOG_LEVEL", "trace")
	t.Setenv("CXXSYM_CACHE_SIZE", "0")
	t.Setenv("CXXSYM_GLOBAL_ONLY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, 0, cfg.Analysis.DemangleCacheSize)
	assert.True(t, cfg.Analysis.GlobalOnly)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config")
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log: [\n"))
		assert.ErrorContains(t, err, "failed to parse config")
	})
	t.Run("bad env", func(t *testing.T) {
		t.Setenv("CXXSYM_MINIDEBUGINFO", "maybe")
		_, err := Load(writeConfig(t, ""))
		assert.ErrorContains(t, err, "CXXSYM_MINIDEBUGINFO")
	})
	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log:\n  level: loud\nanalysis:\n  demangle_cache_size: -1\n"))
		require.Error(t, err)
		assert.ErrorContains(t, err, `invalid log level "loud"`)
		assert.ErrorContains(t, err, "must not be negative")
	})
}
