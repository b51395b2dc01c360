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

	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/reach"
	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// TrajectoryColors returns the colors with a path visiting the observations
// of ds in order.
//
// Description:
//
//	With two or more observations that all fix every variable, the states
//	are single vertices and colored backward reachability is used: first a
//	pre-prune by reachability of the last state, then each successive pair
//	from the end. Otherwise the chain o1 & EF(o2 & EF(...)) is model
//	checked and projected to the colors where it holds somewhere.
func (e *Evaluator) TrajectoryColors(g *symbolic.Graph, ds *network.Dataset, progress formula.ProgressFunc) (symbolic.ColorSet, error) {
	obs, err := selectObservations(g.Network(), ds, "")
	if err != nil {
		return symbolic.ColorSet{}, err
	}
	if len(obs) == 0 {
		return symbolic.ColorSet{}, fmt.Errorf("%w: %q", ErrEmptyDataset, ds.ID)
	}
	if len(obs) >= 2 && allFullySpecified(g, obs) {
		return e.reachabilityTrajectory(g, obs, progress)
	}
	set, err := e.formulas.Evaluate(formula.SomeState(trajectoryFormula(g.Network(), obs)), g, nil, progress)
	if err != nil {
		return symbolic.ColorSet{}, err
	}
	return universalColors(g, set), nil
}

func (e *Evaluator) reachabilityTrajectory(g *symbolic.Graph, obs []observed, progress formula.ProgressFunc) (symbolic.ColorSet, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}
	states := make([]symbolic.VertexSet, len(obs))
	for i, o := range obs {
		states[i] = g.Subspace(o.values)
	}
	vars := reach.AllVariables(g)
	unit := g.UnitVertices()

	report("Pre-computing backward reachability from the last observation state.")
	last := states[len(states)-1]
	bwdLast := reach.Backward(g, last, unit, vars, nil)
	colors := g.UnitColors()
	for _, s := range states[:len(states)-1] {
		colors = colors.Intersect(bwdLast.Intersect(s).Colors())
	}
	report(fmt.Sprintf("After pre-pruning, %.0f candidates remain.", colors.ApproxCardinality()))

	to := states[len(states)-2]
	for i := len(states) - 3; i >= 0; i-- {
		if e.check != nil {
			if err := e.check(); err != nil {
				return symbolic.ColorSet{}, err
			}
		}
		report(fmt.Sprintf("Computing reachability from state n.%d.", i))
		universe := unit.IntersectColors(colors)
		colors = reach.ColorsWhereTargetBackwardReachable(g, to, states[i], universe, vars, nil)
		to = states[i]
	}
	return colors, nil
}

func allFullySpecified(g *symbolic.Graph, obs []observed) bool {
	for _, o := range obs {
		if len(o.values) != g.NumVars() {
			return false
		}
	}
	return true
}

// trajectoryFormula builds o1 & EF(o2 & EF(... & EF(on))).
func trajectoryFormula(net *network.Network, obs []observed) *formula.Ctl {
	f := observationFormula(net, obs[len(obs)-1])
	for i := len(obs) - 2; i >= 0; i-- {
		f = formula.CtlAnd(observationFormula(net, obs[i]), formula.EF(f))
	}
	return f
}
