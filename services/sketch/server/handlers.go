// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/BNSketch/services/sketch/archive"
	"github.com/AleutianAI/BNSketch/services/sketch/inference"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

// SubmitRequest is the body of POST /runs.
type SubmitRequest struct {
	Sketch json.RawMessage `json:"sketch" binding:"required"`
	Mode   string          `json:"mode" binding:"omitempty,oneof=full static dynamic"`
}

// SubmitResponse is returned with 202.
type SubmitResponse struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	StatusURL string `json:"status_url"`
	StreamURL string `json:"stream_url"`
}

// RunSummary is one entry of GET /runs.
type RunSummary struct {
	ID         string    `json:"id"`
	SketchName string    `json:"sketch_name,omitempty"`
	Mode       string    `json:"mode"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
}

// RunState is the body of GET /runs/:id for a run still in memory.
type RunState struct {
	ID         string                   `json:"id"`
	SketchName string                   `json:"sketch_name,omitempty"`
	Mode       string                   `json:"mode"`
	State      string                   `json:"state"`
	StartedAt  time.Time                `json:"started_at"`
	Statuses   []inference.StatusReport `json:"statuses"`
}

const stateRunning = "running"

type errorResponse struct {
	Error string `json:"error"`
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_runs": len(s.snapshot())})
}

func (s *Server) handleSubmit(c *gin.Context) {
	if !s.limiter.Allow() {
		RecordSubmission("rate_limited")
		abort(c, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RecordSubmission("invalid")
		abort(c, http.StatusBadRequest, err)
		return
	}
	mode := s.cfg.DefaultMode
	if req.Mode != "" {
		m, err := inference.ParseMode(req.Mode)
		if err != nil {
			RecordSubmission("invalid")
			abort(c, http.StatusBadRequest, err)
			return
		}
		mode = m
	}
	sk, err := sketchbook.Parse(req.Sketch, sketchbook.FormatJSON)
	if err != nil {
		RecordSubmission("invalid")
		abort(c, http.StatusBadRequest, err)
		return
	}

	ar := &activeRun{
		id:         archive.NewID(),
		sketchName: sk.Name,
		mode:       mode,
		started:    time.Now(),
		feed:       newBroadcaster(),
	}
	solver := inference.NewSolver(inference.SolverConfig{
		Logger:                 s.logger.With(slog.String("run", ar.id)),
		MaxMinimalTrapFreeVars: s.cfg.MaxMinimalTrapFreeVars,
		Observer:               ar.feed,
	})
	ar.feed.setCreated(solver.StatusLog()[0])

	err = s.start(ar, func(ctx context.Context) *inference.Run {
		return solver.RunAsync(ctx, sk, mode)
	})
	switch {
	case errors.Is(err, errShuttingDown):
		RecordSubmission("shutting_down")
		abort(c, http.StatusServiceUnavailable, err)
		return
	case errors.Is(err, errAtCapacity):
		RecordSubmission("at_capacity")
		abort(c, http.StatusTooManyRequests, err)
		return
	}

	RecordSubmission("accepted")
	s.logger.Info("run submitted",
		slog.String("run", ar.id),
		slog.String("sketch", sk.Name),
		slog.String("mode", mode.String()))
	base := "/v1/inference/runs/" + ar.id
	c.JSON(http.StatusAccepted, SubmitResponse{
		ID:        ar.id,
		Mode:      mode.String(),
		StatusURL: base,
		StreamURL: base + "/stream",
	})
}

func (s *Server) handleList(c *gin.Context) {
	var out []RunSummary
	seen := make(map[string]struct{})
	for _, ar := range s.snapshot() {
		seen[ar.id] = struct{}{}
		out = append(out, RunSummary{
			ID:         ar.id,
			SketchName: ar.sketchName,
			Mode:       ar.mode.String(),
			State:      stateRunning,
			StartedAt:  ar.started,
		})
	}
	recs, err := s.archive.List(c.Request.Context())
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	for _, rec := range recs {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		out = append(out, RunSummary{
			ID:         rec.ID,
			SketchName: rec.SketchName,
			Mode:       rec.Mode.String(),
			State:      string(rec.Outcome),
			StartedAt:  rec.StartedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if out == nil {
		out = []RunSummary{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")
	if ar, ok := s.lookup(id); ok {
		c.JSON(http.StatusOK, RunState{
			ID:         ar.id,
			SketchName: ar.sketchName,
			Mode:       ar.mode.String(),
			State:      stateRunning,
			StartedAt:  ar.started,
			Statuses:   ar.run.Solver().StatusLog(),
		})
		return
	}
	rec, ok := s.archived(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleReport(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.lookup(id); ok {
		abort(c, http.StatusConflict, inference.ErrNotFinished)
		return
	}
	rec, ok := s.archived(c, id)
	if !ok {
		return
	}
	if rec.Results == nil {
		abort(c, http.StatusConflict, fmt.Errorf("run %s %s: %s", id, rec.Outcome, rec.Error))
		return
	}
	c.String(http.StatusOK, rec.Results.FormatReport())
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if ar, ok := s.lookup(id); ok {
		ar.run.Solver().Cancel()
		c.JSON(http.StatusAccepted, gin.H{"id": id, "state": "cancelling"})
		return
	}
	err := s.archive.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, archive.ErrInvalidID):
		abort(c, http.StatusBadRequest, err)
	case errors.Is(err, archive.ErrNotFound):
		abort(c, http.StatusNotFound, err)
	default:
		abort(c, http.StatusInternalServerError, err)
	}
}

// archived loads a record and writes the error response on failure.
func (s *Server) archived(c *gin.Context, id string) (*archive.Record, bool) {
	rec, err := s.archive.Get(c.Request.Context(), id)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, archive.ErrInvalidID):
		abort(c, http.StatusBadRequest, err)
	case errors.Is(err, archive.ErrNotFound):
		abort(c, http.StatusNotFound, err)
	default:
		abort(c, http.StatusInternalServerError, err)
	}
	return nil, false
}
