// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package attractors detects the attractors (terminal strongly connected
// components) of a colored transition graph and classifies colors by how
// many attractors they have.
//
// Detection runs ITGR first and then Xie-Beerel on the reduced universe.
package attractors

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/itgr"
	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/reach"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

var tracer = otel.Tracer("bnsketch.attractors")

// Detector runs attractor detection with a shared logger and cancellation
// poll.
//
// Thread Safety: Stateless between calls. The graph arguments are not safe
// for concurrent use, so neither are calls sharing a graph.
type Detector struct {
	logger *slog.Logger
	check  func() error
}

// NewDetector creates a detector. A nil logger uses slog.Default(); a nil
// check never cancels.
func NewDetector(logger *slog.Logger, check func() error) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		logger: logger.With(slog.String("component", "attractors")),
		check:  check,
	}
}

func (d *Detector) poll() error {
	if d.check == nil {
		return nil
	}
	return d.check()
}

// Components reports every attractor of every color of g to fn.
func (d *Detector) Components(ctx context.Context, g *symbolic.Graph, fn ComponentFunc) error {
	if err := d.poll(); err != nil {
		return err
	}
	reduced, err := itgr.Reduce(ctx, g, g.UnitVertices(), reach.AllVariables(g), d.check)
	if err != nil {
		return err
	}
	if err := d.poll(); err != nil {
		return err
	}
	jobs, err := XieBeerel(g, reduced.Universe, reduced.Variables, fn, d.check)
	d.logger.Debug("terminal components searched",
		slog.Int("itgr_steps", reduced.Steps),
		slog.Int("xb_jobs", jobs),
	)
	return err
}

// SortColorsByAttractorCount buckets the unit colors of g by their number of
// attractors.
//
// Outputs:
//
//	BucketTable - Index i holds the colors with exactly i attractors.
//	error - Non-nil if detection was cancelled.
func (d *Detector) SortColorsByAttractorCount(ctx context.Context, g *symbolic.Graph) (BucketTable, error) {
	ctx, span := tracer.Start(ctx, "attractors.SortColorsByAttractorCount",
		trace.WithAttributes(attribute.Int("attractors.variables", g.NumVars())),
	)
	defer span.End()

	table := NewBucketTable(g.UnitColors())
	components := 0
	err := d.Components(ctx, g, func(c symbolic.VertexSet) {
		components++
		table = table.ProcessComponent(c.Colors())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("attractors.components", components),
		attribute.Int("attractors.max_count", len(table)-1),
	)
	return table, nil
}

// AttractorStates returns the union of all attractor vertices of g.
func (d *Detector) AttractorStates(ctx context.Context, g *symbolic.Graph) (symbolic.VertexSet, error) {
	out := g.EmptyVertices()
	err := d.Components(ctx, g, func(c symbolic.VertexSet) {
		out = out.Union(c)
	})
	if err != nil {
		return symbolic.VertexSet{}, err
	}
	return out, nil
}
