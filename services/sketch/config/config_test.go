// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bnsketch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solver:
  mode: static
  timeout: 90s
trap_spaces:
  max_minimal_free_vars: 4
server:
  addr: ":9999"
`), 0o600))

	t.Setenv("BNSKETCH_SERVER_ADDR", ":7000")
	t.Setenv("BNSKETCH_LOG_JSON", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Solver.Mode)
	assert.Equal(t, 90*time.Second, cfg.Solver.Timeout)
	assert.Equal(t, 4, cfg.TrapSpaces.MaxMinimalFreeVars)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, 5, cfg.Server.RateBurst)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Solver.Mode = "hybrid" }},
		{"negative timeout", func(c *Config) { c.Solver.Timeout = -time.Second }},
		{"too many free vars", func(c *Config) { c.TrapSpaces.MaxMinimalFreeVars = 40 }},
		{"bad exporter", func(c *Config) { c.Telemetry.TraceExporter = "zipkin" }},
		{"zero rate", func(c *Config) { c.Server.RateLimit = 0 }},
		{"no archive path", func(c *Config) { c.Archive.Path = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.Archive.Path = ""
	cfg.Archive.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnv_IgnoresMalformedNumbers(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"BNSKETCH_SERVER_RATE_BURST": "many",
		"BNSKETCH_SOLVER_TIMEOUT":    "5m",
	}
	loadEnv(&cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	assert.Equal(t, 5, cfg.Server.RateBurst)
	assert.Equal(t, 5*time.Minute, cfg.Solver.Timeout)
}
