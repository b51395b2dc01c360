// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reach implements saturated forward and backward reachability over
// a colored transition graph.
//
// Saturation fires the highest variable that still adds new vertices and
// restarts from the top after every successful step. Compared to full image
// iteration this keeps intermediate BDDs small on typical regulatory networks.
package reach

import (
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// ImageFunc computes the one-variable image of a set.
type ImageFunc func(v int, set symbolic.VertexSet) symbolic.VertexSet

// ProgressFunc receives the current reached set after each productive step.
type ProgressFunc func(set symbolic.VertexSet, msg string)

// AllVariables lists 0..g.NumVars()-1.
func AllVariables(g *symbolic.Graph) []int {
	out := make([]int, g.NumVars())
	for i := range out {
		out[i] = i
	}
	return out
}

// Step performs one saturation step in place.
//
// Description:
//
//	Tries variables from last to first; the first one whose image adds
//	vertices inside universe is applied and the function returns.
//
// Outputs:
//
//	bool - True if set is already closed under every variable in vars.
func Step(set *symbolic.VertexSet, universe symbolic.VertexSet, vars []int, image ImageFunc) bool {
	for i := len(vars) - 1; i >= 0; i-- {
		stepped := image(vars[i], *set).Minus(*set).Intersect(universe)
		if !stepped.IsEmpty() {
			*set = set.Union(stepped)
			return false
		}
	}
	return true
}

// Forward returns every vertex reachable from initial inside universe using
// transitions of vars. The initial set is always part of the result.
func Forward(g *symbolic.Graph, initial, universe symbolic.VertexSet, vars []int, progress ProgressFunc) symbolic.VertexSet {
	return saturate(initial, universe, vars, g.VarPost, progress, "Computing forward reachability using saturation.")
}

// Backward returns every vertex of universe that can reach initial using
// transitions of vars.
func Backward(g *symbolic.Graph, initial, universe symbolic.VertexSet, vars []int, progress ProgressFunc) symbolic.VertexSet {
	return saturate(initial, universe, vars, g.VarPre, progress, "Computing backward reachability using saturation.")
}

func saturate(initial, universe symbolic.VertexSet, vars []int, image ImageFunc, progress ProgressFunc, msg string) symbolic.VertexSet {
	set := initial
	for !Step(&set, universe, vars, image) {
		if progress != nil {
			progress(set, msg)
		}
	}
	return set
}

// ColorsWhereTargetBackwardReachable returns the colors of universe for which
// every vertex of target can reach initial inside universe.
//
// Description:
//
//	Backward saturation from initial. Colors whose part of target is already
//	covered are dropped from the universe as soon as they finish, so later
//	steps only work on the remaining colors.
func ColorsWhereTargetBackwardReachable(
	g *symbolic.Graph,
	initial, target, universe symbolic.VertexSet,
	vars []int,
	progress ProgressFunc,
) symbolic.ColorSet {
	reached := initial.Intersect(universe)
	target = target.Intersect(universe)
	start := universe.Colors()
	pending := start

	for {
		if progress != nil {
			progress(reached, "Computing reachability set using saturation.")
		}
		live := universe.IntersectColors(pending)
		if Step(&reached, live, vars, g.VarPre) {
			break
		}
		pending = target.Minus(reached).Colors()
	}
	return start.Minus(target.Minus(reached).Colors())
}
