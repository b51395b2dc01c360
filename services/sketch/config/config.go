// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the bnsketch configuration from defaults, an optional
// YAML or JSON file and BNSKETCH_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BNSKETCH_"

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Config is the full configuration.
type Config struct {
	Solver     SolverConfig     `json:"solver" yaml:"solver"`
	TrapSpaces TrapSpacesConfig `json:"trap_spaces" yaml:"trap_spaces"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Archive    ArchiveConfig    `json:"archive" yaml:"archive"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// SolverConfig controls inference runs.
type SolverConfig struct {
	// Mode is the default run mode: full, static or dynamic.
	Mode string `json:"mode" yaml:"mode" validate:"oneof=full static dynamic"`

	// Timeout bounds a run. Zero means no limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// TrapSpacesConfig controls trap space checks.
type TrapSpacesConfig struct {
	// MaxMinimalFreeVars bounds the subspace enumeration of minimal trap
	// space checks.
	MaxMinimalFreeVars int `json:"max_minimal_free_vars" yaml:"max_minimal_free_vars" validate:"gte=1,lte=16"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`
	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `json:"otlp_insecure" yaml:"otlp_insecure"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr" validate:"required"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`

	// RateLimit is the sustained number of run submissions per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" validate:"gt=0"`
	RateBurst int     `json:"rate_burst" yaml:"rate_burst" validate:"gte=1"`

	// MaxConcurrentRuns caps runs in flight. Further submissions get 429.
	MaxConcurrentRuns int `json:"max_concurrent_runs" yaml:"max_concurrent_runs" validate:"gte=1"`

	// StatusBuffer is the per-run status channel buffer.
	StatusBuffer int `json:"status_buffer" yaml:"status_buffer" validate:"gte=1"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" validate:"gte=1024"`
}

// ArchiveConfig controls the run archive.
type ArchiveConfig struct {
	Path       string        `json:"path" yaml:"path" validate:"required_without=InMemory"`
	InMemory   bool          `json:"in_memory" yaml:"in_memory"`
	GCInterval time.Duration `json:"gc_interval" yaml:"gc_interval" validate:"gte=0"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `json:"json" yaml:"json"`
	File  string `json:"file" yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Solver: SolverConfig{Mode: "full"},
		TrapSpaces: TrapSpacesConfig{
			MaxMinimalFreeVars: 8,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "bnsketch",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
		Server: ServerConfig{
			Addr:              ":8088",
			MetricsAddr:       ":9090",
			RateLimit:         1,
			RateBurst:         5,
			MaxConcurrentRuns: 4,
			StatusBuffer:      256,
			MaxBodyBytes:      4 << 20,
		},
		Archive: ArchiveConfig{
			Path:       defaultArchivePath(),
			GCInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultArchivePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".bnsketch/archive"
	}
	return dir + "/bnsketch/archive"
}

// LoadConfig loads configuration with priority env > file > defaults.
//
// Inputs:
//   - path: YAML or JSON file. Empty or missing means defaults only.
//
// Outputs:
//   - Config: The merged configuration.
//   - error: Non-nil if the file is malformed or the result is invalid.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func loadEnv(cfg *Config, lookup lookupFunc) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v == "true" || v == "1"
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	// Solver
	str("SOLVER_MODE", &cfg.Solver.Mode)
	duration("SOLVER_TIMEOUT", &cfg.Solver.Timeout)
	integer("TRAP_SPACES_MAX_MINIMAL_FREE_VARS", &cfg.TrapSpaces.MaxMinimalFreeVars)

	// Telemetry
	str("TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	str("METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)
	str("OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	boolean("OTLP_INSECURE", &cfg.Telemetry.OTLPInsecure)

	// Server
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("METRICS_ADDR", &cfg.Server.MetricsAddr)
	if v, ok := lookup(EnvPrefix + "SERVER_RATE_LIMIT"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	integer("SERVER_RATE_BURST", &cfg.Server.RateBurst)
	integer("SERVER_MAX_CONCURRENT_RUNS", &cfg.Server.MaxConcurrentRuns)

	// Archive
	str("ARCHIVE_PATH", &cfg.Archive.Path)
	boolean("ARCHIVE_IN_MEMORY", &cfg.Archive.InMemory)

	// Logging
	str("LOG_LEVEL", &cfg.Logging.Level)
	boolean("LOG_JSON", &cfg.Logging.JSON)
	str("LOG_FILE", &cfg.Logging.File)
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
