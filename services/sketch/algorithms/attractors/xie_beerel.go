// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package attractors

import (
	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/reach"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// ComponentFunc receives one terminal SCC per call. The set holds, for each of
// its colors, the vertices of exactly one attractor of that color.
type ComponentFunc func(component symbolic.VertexSet)

// XieBeerel enumerates the terminal SCCs of g inside universe.
//
// Description:
//
//	Explicit worklist. For every job a pivot state is picked per color, its
//	forward set F is computed inside the job and the backward set B of the
//	pivot inside F. Colors with F equal to B have found an attractor. F \ B
//	and the part of the job that cannot reach F are pushed as new jobs.
//	universe must be forward closed: every successor of a vertex in universe
//	is in universe, which holds for unit vertices and for ITGR output.
//
// Inputs:
//
//	g - Transition graph.
//	universe - Forward closed vertex set to decompose.
//	vars - Variables whose transitions are followed.
//	onComponent - Called once per discovered component.
//	check - Polled before every job. May be nil.
//
// Outputs:
//
//	int - Number of processed jobs.
//	error - Non-nil only if check failed.
func XieBeerel(
	g *symbolic.Graph,
	universe symbolic.VertexSet,
	vars []int,
	onComponent ComponentFunc,
	check func() error,
) (int, error) {
	jobs := []symbolic.VertexSet{universe}
	processed := 0
	for len(jobs) > 0 {
		if check != nil {
			if err := check(); err != nil {
				return processed, err
			}
		}
		job := jobs[len(jobs)-1]
		jobs = jobs[:len(jobs)-1]
		if job.IsEmpty() {
			continue
		}
		processed++

		pivot := job.PickVertex()
		fwd := reach.Forward(g, pivot, job, vars, nil)
		comp := reach.Backward(g, pivot, fwd, vars, nil)

		escaping := fwd.Minus(comp)
		terminal := job.Colors().Minus(escaping.Colors())
		if !terminal.IsEmpty() {
			onComponent(comp.IntersectColors(terminal))
		}
		if !escaping.IsEmpty() {
			jobs = append(jobs, escaping)
		}
		rest := job.Minus(reach.Backward(g, fwd, job, vars, nil))
		if !rest.IsEmpty() {
			jobs = append(jobs, rest)
		}
	}
	return processed, nil
}
