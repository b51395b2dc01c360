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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/BNSketch/services/sketch/inference"
	"github.com/AleutianAI/BNSketch/services/sketch/server"
	"github.com/AleutianAI/BNSketch/services/sketch/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		ephemeral bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inference HTTP API and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			mode, err := inference.ParseMode(a.cfg.Solver.Mode)
			if err != nil {
				return err
			}
			arc, err := a.openArchive(ephemeral)
			if err != nil {
				return err
			}
			defer arc.Close()

			srv, err := server.New(server.Config{
				Addr:                   a.cfg.Server.Addr,
				RateLimit:              a.cfg.Server.RateLimit,
				RateBurst:              a.cfg.Server.RateBurst,
				MaxConcurrentRuns:      a.cfg.Server.MaxConcurrentRuns,
				StatusBuffer:           a.cfg.Server.StatusBuffer,
				MaxBodyBytes:           a.cfg.Server.MaxBodyBytes,
				RunTimeout:             a.cfg.Solver.Timeout,
				DefaultMode:            mode,
				MaxMinimalTrapFreeVars: a.cfg.TrapSpaces.MaxMinimalFreeVars,
				Logger:                 a.log(),
			}, arc)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx)
			})
			if h := telemetry.MetricsHandler(); h != nil && a.cfg.Server.MetricsAddr != "" {
				g.Go(func() error {
					return serveMetrics(gctx, a.cfg.Server.MetricsAddr, h, a.log())
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep the run archive in memory")
	return cmd
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
