// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes inference runs over HTTP.
//
// Routes (all under /v1/inference):
//
//	POST   /runs              submit a sketch, returns 202 with the run id
//	GET    /runs              list running and archived runs
//	GET    /runs/:id          status log of a running run, or its archive record
//	GET    /runs/:id/report   text report of a finished run
//	GET    /runs/:id/stream   websocket of status reports
//	DELETE /runs/:id          cancel a running run, or delete an archived one
//	GET    /health            liveness
//
// Finished runs are written to the archive and dropped from memory.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/BNSketch/services/sketch/archive"
	"github.com/AleutianAI/BNSketch/services/sketch/cancel"
	"github.com/AleutianAI/BNSketch/services/sketch/inference"
)

// Config configures a Server.
type Config struct {
	Addr string

	// RateLimit and RateBurst bound run submissions across all clients.
	RateLimit float64
	RateBurst int

	// MaxConcurrentRuns caps runs in flight.
	MaxConcurrentRuns int

	// StatusBuffer is the per-subscriber websocket buffer.
	StatusBuffer int

	// MaxBodyBytes caps submission bodies.
	MaxBodyBytes int64

	// RunTimeout bounds every run. Zero means no limit.
	RunTimeout time.Duration

	// DefaultMode applies when a submission names no mode.
	DefaultMode inference.Mode

	// MaxMinimalTrapFreeVars is passed to every solver.
	MaxMinimalTrapFreeVars int

	Logger *slog.Logger
}

// DefaultConfig returns a configuration suitable for local use.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8088",
		RateLimit:         1,
		RateBurst:         5,
		MaxConcurrentRuns: 4,
		StatusBuffer:      256,
		MaxBodyBytes:      4 << 20,
		DefaultMode:       inference.ModeFull,
	}
}

// activeRun is a run still in memory.
type activeRun struct {
	id         string
	sketchName string
	mode       inference.Mode
	started    time.Time
	run        *inference.Run
	feed       *broadcaster
}

// Server owns the router, the running solvers and the archive.
//
// Thread Safety: Safe for concurrent use.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	archive *archive.Archive
	limiter *rate.Limiter
	router  *gin.Engine

	mu     sync.Mutex
	active map[string]*activeRun
	wg     sync.WaitGroup
	closed bool
}

// New creates a Server backed by arc.
func New(cfg Config, arc *archive.Archive) (*Server, error) {
	if arc == nil {
		return nil, errors.New("server: nil archive")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst < 1 || cfg.MaxConcurrentRuns < 1 {
		return nil, fmt.Errorf("server: invalid limits (rate %v, burst %d, concurrent %d)",
			cfg.RateLimit, cfg.RateBurst, cfg.MaxConcurrentRuns)
	}
	if cfg.StatusBuffer < 1 {
		cfg.StatusBuffer = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "inference_server")),
		archive: arc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		active:  make(map[string]*activeRun),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("bnsketch"))
	r.Use(s.requestLogger())

	v1 := r.Group("/v1/inference")
	v1.GET("/health", s.handleHealth)
	v1.POST("/runs", s.handleSubmit)
	v1.GET("/runs", s.handleList)
	v1.GET("/runs/:id", s.handleGet)
	v1.GET("/runs/:id/report", s.handleReport)
	v1.GET("/runs/:id/stream", s.handleStream)
	v1.DELETE("/runs/:id", s.handleDelete)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelFn := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelFn()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	return s.Shutdown(shutdownCtx)
}

// Shutdown cancels every running run and waits for them to be archived.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, ar := range s.active {
		ar.run.Solver().Token().Cancel(cancel.CauseShutdown, "server shutting down")
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs: %w", ctx.Err())
	}
}

// start registers and launches a run. It fails when the server is closed
// or at capacity.
func (s *Server) start(ar *activeRun, launch func(ctx context.Context) *inference.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errShuttingDown
	}
	if len(s.active) >= s.cfg.MaxConcurrentRuns {
		return errAtCapacity
	}

	ctx := context.Background()
	var stop context.CancelFunc = func() {}
	if s.cfg.RunTimeout > 0 {
		ctx, stop = context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	ar.run = launch(ctx)
	s.active[ar.id] = ar
	activeRuns.Inc()
	s.wg.Add(1)
	go s.finish(ar, stop)
	return nil
}

// finish archives a run once it ends and forgets it.
func (s *Server) finish(ar *activeRun, stop context.CancelFunc) {
	defer s.wg.Done()
	defer stop()
	_, err := ar.run.Wait()

	rec := archive.RecordFromSolver(ar.id, ar.sketchName, ar.mode, ar.started, ar.run.Solver())
	logger := s.logger.With(slog.String("run", ar.id), slog.String("outcome", string(rec.Outcome)))
	if err != nil {
		logger.Info("run ended", slog.String("error", err.Error()))
	} else {
		logger.Info("run finished")
	}

	putCtx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFn()
	if _, err := s.archive.Put(putCtx, rec); err != nil {
		logger.Error("archive run", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	delete(s.active, ar.id)
	s.mu.Unlock()
	activeRuns.Dec()
}

func (s *Server) lookup(id string) (*activeRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ar, ok := s.active[id]
	return ar, ok
}

func (s *Server) snapshot() []*activeRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*activeRun, 0, len(s.active))
	for _, ar := range s.active {
		out = append(out, ar)
	}
	return out
}
