// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/BNSketch/pkg/logging"
	"github.com/AleutianAI/BNSketch/services/sketch/config"
	"github.com/AleutianAI/BNSketch/services/sketch/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds what PersistentPreRunE sets up for every subcommand.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *logging.Logger
	shutdown   func(context.Context) error
}

// newRootCmd builds the command tree. The caller must call app.teardown
// after Execute, whether or not it failed.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "bnsketch",
		Short:         "Infer Boolean network candidates that satisfy a sketch",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newInferCmd(a),
		newAttractorsCmd(a),
		newVariantsCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
	)
	return root, a
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{
		Level:   level,
		File:    cfg.Logging.File,
		Service: "bnsketch",
		JSON:    cfg.Logging.JSON,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Slog())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		_ = logger.Close()
		return fmt.Errorf("telemetry: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.shutdown = shutdown
	return nil
}

// teardown flushes telemetry and closes the log file. Safe to call twice.
func (a *app) teardown(ctx context.Context) error {
	var err error
	if a.shutdown != nil {
		err = a.shutdown(ctx)
		a.shutdown = nil
	}
	if a.logger != nil {
		if cerr := a.logger.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}
