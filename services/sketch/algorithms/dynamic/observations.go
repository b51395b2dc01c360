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
	"fmt"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// observed is one observation resolved against the network.
type observed struct {
	id     string
	values map[int]bool
}

// selectObservations resolves either the named observation or every
// observation of the dataset.
func selectObservations(net *network.Network, ds *network.Dataset, obsID string) ([]observed, error) {
	var list []network.Observation
	if obsID != "" {
		o, ok := ds.Observation(obsID)
		if !ok {
			return nil, fmt.Errorf("%w: %q in dataset %q", ErrUnknownObservation, obsID, ds.ID)
		}
		list = []network.Observation{o}
	} else {
		list = ds.Observations
	}
	out := make([]observed, 0, len(list))
	for _, o := range list {
		sub, err := ds.Subspace(net, o)
		if err != nil {
			return nil, err
		}
		out = append(out, observed{id: o.ID, values: sub})
	}
	return out, nil
}

// colorsWithIntersection returns the colors for which set meets the subspace
// of every observation.
func colorsWithIntersection(g *symbolic.Graph, set symbolic.VertexSet, obs []observed) symbolic.ColorSet {
	colors := set.Colors()
	for _, o := range obs {
		colors = colors.Intersect(set.Intersect(g.Subspace(o.values)).Colors())
	}
	return colors
}

// unionOfSubspaces is the union of every observation subspace.
func unionOfSubspaces(g *symbolic.Graph, obs []observed) symbolic.VertexSet {
	out := g.EmptyVertices()
	for _, o := range obs {
		out = out.Union(g.Subspace(o.values))
	}
	return out
}

// observationFormula is the conjunction of the literals fixed by o.
func observationFormula(net *network.Network, o observed) *formula.Ctl {
	var lits []*formula.Ctl
	for i := 0; i < net.NumVars(); i++ {
		v, ok := o.values[i]
		if !ok {
			continue
		}
		p := formula.Prop(net.VarName(i))
		if !v {
			p = formula.CtlNegation(p)
		}
		lits = append(lits, p)
	}
	return formula.CtlAnd(lits...)
}

// universalColors keeps the colors for which set contains every unit vertex.
func universalColors(g *symbolic.Graph, set symbolic.VertexSet) symbolic.ColorSet {
	missing := g.UnitVertices().Minus(set)
	return g.UnitColors().Minus(missing.Colors())
}
