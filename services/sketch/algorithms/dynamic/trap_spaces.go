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

	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// DefaultMaxMinimalTrapFreeVars bounds the subspace enumeration of the
// minimal trap space check. 8 free variables mean 3^8 - 1 subspaces.
const DefaultMaxMinimalTrapFreeVars = 8

// TrapColors returns the colors for which the subspace given by values is a
// trap space: no transition changes a fixed variable.
func TrapColors(g *symbolic.Graph, values map[int]bool) symbolic.ColorSet {
	space := g.Subspace(values)
	leaving := g.EmptyVertices()
	for v := range values {
		leaving = leaving.Union(g.VarCanPost(v, space))
	}
	return g.UnitColors().Minus(leaving.Colors())
}

// NonPercolableColors returns the colors for which no free variable of the
// subspace has a constant update function inside it.
func NonPercolableColors(g *symbolic.Graph, values map[int]bool) symbolic.ColorSet {
	space := g.Subspace(values)
	colors := g.UnitColors()
	for v := 0; v < g.NumVars(); v++ {
		if _, fixed := values[v]; fixed {
			continue
		}
		canBeTrue := space.Intersect(g.UpdateTrue(v)).Colors()
		canBeFalse := space.Intersect(g.UpdateFalse(v)).Colors()
		colors = colors.Intersect(canBeTrue).Intersect(canBeFalse)
	}
	return colors
}

// MinimalTrapColors returns the colors for which the subspace is a trap space
// and none of its proper subspaces is.
//
// Description:
//
//	Enumerates every proper subspace by assigning each free variable one of
//	free, 0 or 1. The enumeration is exponential, so more than maxFree free
//	variables is rejected.
//
// Outputs:
//
//	symbolic.ColorSet - The colors where the subspace is a minimal trap.
//	error - ErrTooManyFreeVariables if the bound is exceeded.
func MinimalTrapColors(g *symbolic.Graph, values map[int]bool, maxFree int) (symbolic.ColorSet, error) {
	var free []int
	for v := 0; v < g.NumVars(); v++ {
		if _, fixed := values[v]; !fixed {
			free = append(free, v)
		}
	}
	if len(free) > maxFree {
		return symbolic.ColorSet{}, fmt.Errorf("%w: %d free, limit %d", ErrTooManyFreeVariables, len(free), maxFree)
	}

	colors := TrapColors(g, values)
	// digits[i]: 0 free, 1 fixed false, 2 fixed true.
	digits := make([]int, len(free))
	for next(digits) {
		if colors.IsEmpty() {
			break
		}
		sub := make(map[int]bool, len(values)+len(free))
		for v, b := range values {
			sub[v] = b
		}
		for i, d := range digits {
			if d > 0 {
				sub[free[i]] = d == 2
			}
		}
		colors = colors.Minus(TrapColors(g, sub))
	}
	return colors, nil
}

// next advances a base-3 counter and reports false after wrapping to zero.
func next(digits []int) bool {
	for i := range digits {
		digits[i]++
		if digits[i] < 3 {
			return true
		}
		digits[i] = 0
	}
	return false
}
