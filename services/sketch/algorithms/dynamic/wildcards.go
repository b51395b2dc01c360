// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dynamic

import (
	"context"
	"fmt"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// wildcards evaluates every wildcard into the named vertex set it denotes:
//
//	observation      the observation subspace
//	trajectory       states satisfying o1 & EF(o2 & EF(...))
//	attractors       attractor states inside any selected observation
//	fixed_points     fixed points inside any selected observation
//	trap_spaces      the selected subspaces, for colors where each is a trap
//	attractor_count  all unit vertices of colors with min..max attractors
func (e *Evaluator) wildcards(
	ctx context.Context,
	ws []properties.Wildcard,
	g *symbolic.Graph,
	progress formula.ProgressFunc,
) (map[string]symbolic.VertexSet, error) {
	out := make(map[string]symbolic.VertexSet, len(ws))
	for _, w := range ws {
		set, err := e.wildcard(ctx, w, g, progress)
		if err != nil {
			return nil, fmt.Errorf("wildcard %q: %w", w.Name, err)
		}
		out[w.Name] = set
	}
	return out, nil
}

func (e *Evaluator) wildcard(
	ctx context.Context,
	w properties.Wildcard,
	g *symbolic.Graph,
	progress formula.ProgressFunc,
) (symbolic.VertexSet, error) {
	if w.Kind == properties.WildcardAttractorCount {
		colors, err := e.AttractorCountColors(ctx, g, w.Min, w.Max)
		if err != nil {
			return symbolic.VertexSet{}, err
		}
		return g.UnitVertices().IntersectColors(colors), nil
	}

	obs, err := e.observations(g, w.Dataset, w.Observation)
	if err != nil {
		return symbolic.VertexSet{}, err
	}
	switch w.Kind {
	case properties.WildcardObservation:
		return unionOfSubspaces(g, obs), nil

	case properties.WildcardTrajectory:
		if len(obs) == 0 {
			return symbolic.VertexSet{}, fmt.Errorf("%w: %q", ErrEmptyDataset, w.Dataset)
		}
		return e.formulas.Evaluate(trajectoryFormula(g.Network(), obs), g, nil, progress)

	case properties.WildcardAttractors:
		states, err := e.detector.AttractorStates(ctx, g)
		if err != nil {
			return symbolic.VertexSet{}, err
		}
		return states.Intersect(unionOfSubspaces(g, obs)), nil

	case properties.WildcardFixedPoints:
		return g.FixedPoints().Intersect(unionOfSubspaces(g, obs)), nil

	case properties.WildcardTrapSpaces:
		out := g.EmptyVertices()
		for _, o := range obs {
			colors, err := e.trapColors(g, o.values, w.Minimal, w.NonPercolable)
			if err != nil {
				return symbolic.VertexSet{}, err
			}
			out = out.Union(g.Subspace(o.values).IntersectColors(colors))
		}
		return out, nil

	default:
		return symbolic.VertexSet{}, fmt.Errorf("%w: wildcard kind %q", ErrUnsupportedProperty, w.Kind)
	}
}
