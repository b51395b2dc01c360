// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package itgr implements interleaved transition guided reduction: a cheap
// pass that removes vertices which provably lie on no attractor before the
// exact terminal SCC search runs.
package itgr

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

var tracer = otel.Tracer("bnsketch.itgr")

// Result is the reduced frontier.
type Result struct {
	// Universe is a subset of the input universe that still contains every
	// attractor vertex of every color.
	Universe symbolic.VertexSet

	// Variables is a subset of the input variables; the others have no
	// transition anywhere in Universe.
	Variables []int

	// Steps is the number of process steps executed.
	Steps int
}

// Reduce runs the reduction to convergence.
//
// Description:
//
//	Seeds one forward process per variable and repeatedly advances the
//	lightest unfinished process until none is left. check is polled before
//	every step; a non-nil result aborts the reduction with that error.
//
// Inputs:
//
//	ctx - Parent context for tracing.
//	g - Transition graph.
//	universe - Starting universe, usually g.UnitVertices().
//	vars - Starting active variables.
//	check - Cancellation poll. May be nil.
//
// Outputs:
//
//	Result - Reduced universe and active variables.
//	error - Non-nil only if check failed.
func Reduce(
	ctx context.Context,
	g *symbolic.Graph,
	universe symbolic.VertexSet,
	vars []int,
	check func() error,
) (Result, error) {
	_, span := tracer.Start(ctx, "itgr.Reduce",
		trace.WithAttributes(attribute.Int("itgr.variables", len(vars))),
	)
	defer span.End()

	logger := slog.Default().With(slog.String("component", "itgr"))

	s := NewScheduler(g, universe, vars)
	for _, v := range s.ActiveVariables() {
		s.Spawn(newFwdProcess(g, v, universe))
	}

	steps := 0
	for {
		if check != nil {
			if err := check(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cancelled")
				return Result{}, err
			}
		}
		s.flush()
		p := s.next()
		if p == nil {
			break
		}
		steps++
		if !p.Step(s) {
			s.Spawn(p)
		}
	}

	span.SetAttributes(
		attribute.Int("itgr.steps", steps),
		attribute.Int("itgr.remaining_variables", len(s.active)),
	)
	logger.Debug("reduction finished",
		slog.Int("steps", steps),
		slog.Int("variables", len(s.active)),
		slog.Float64("universe", s.universe.ApproxCardinality()),
	)
	return Result{
		Universe:  s.universe,
		Variables: append([]int(nil), s.active...),
		Steps:     steps,
	}, nil
}
