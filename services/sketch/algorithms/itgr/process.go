// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package itgr

import (
	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/reach"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// Process is one unit of reduction work driven by the Scheduler.
type Process interface {
	// Step advances the process by one saturation step. It returns true
	// once the process has converged and can be dropped.
	Step(s *Scheduler) bool

	// Weight estimates the remaining work. Lighter processes run first.
	Weight() float64

	// DiscardStates removes vertices the scheduler dropped from the universe.
	DiscardStates(set symbolic.VertexSet)
}

// -----------------------------------------------------------------------------
// Backward
// -----------------------------------------------------------------------------

// bwdProcess saturates backward reachability from an initial set inside a
// fixed universe.
type bwdProcess struct {
	reached  symbolic.VertexSet
	universe symbolic.VertexSet
}

func newBwdProcess(initial, universe symbolic.VertexSet) *bwdProcess {
	return &bwdProcess{reached: initial, universe: universe}
}

func (p *bwdProcess) Step(s *Scheduler) bool {
	return reach.Step(&p.reached, p.universe, s.ActiveVariables(), s.Graph().VarPre)
}

func (p *bwdProcess) Weight() float64 { return p.reached.ApproxCardinality() }

func (p *bwdProcess) DiscardStates(set symbolic.VertexSet) {
	p.reached = p.reached.Minus(set)
	p.universe = p.universe.Minus(set)
}

// -----------------------------------------------------------------------------
// Forward
// -----------------------------------------------------------------------------

// fwdProcess computes everything reachable after a transition of variable.
// On convergence it hands over to an extendedProcess.
type fwdProcess struct {
	variable int
	reached  symbolic.VertexSet
	universe symbolic.VertexSet
}

func newFwdProcess(g *symbolic.Graph, variable int, universe symbolic.VertexSet) *fwdProcess {
	initial := g.VarPost(variable, universe).Intersect(universe)
	return &fwdProcess{variable: variable, reached: initial, universe: universe}
}

func (p *fwdProcess) Step(s *Scheduler) bool {
	if !reach.Step(&p.reached, p.universe, s.ActiveVariables(), s.Graph().VarPost) {
		return false
	}
	s.Spawn(newExtendedProcess(s.Graph(), p.variable, p.reached, s.Universe()))
	return true
}

func (p *fwdProcess) Weight() float64 { return p.reached.ApproxCardinality() }

func (p *fwdProcess) DiscardStates(set symbolic.VertexSet) {
	p.reached = p.reached.Minus(set)
	p.universe = p.universe.Minus(set)
}

// -----------------------------------------------------------------------------
// Extended component
// -----------------------------------------------------------------------------

// extendedProcess finds the part of a forward set from which variable can
// still fire. The rest of the forward set is a bottom region; its basin
// outside the bottom cannot hold an attractor and is discarded.
type extendedProcess struct {
	variable int
	fwd      symbolic.VertexSet
	bwd      *bwdProcess
}

func newExtendedProcess(g *symbolic.Graph, variable int, fwd, universe symbolic.VertexSet) *extendedProcess {
	return &extendedProcess{
		variable: variable,
		fwd:      fwd,
		bwd:      newBwdProcess(g.VarCanPost(variable, universe), fwd),
	}
}

func (p *extendedProcess) Step(s *Scheduler) bool {
	if !p.bwd.Step(s) {
		return false
	}
	g := s.Graph()
	bottom := p.fwd.Minus(p.bwd.reached)
	if !bottom.IsEmpty() {
		basin := reach.Backward(g, bottom, s.Universe(), s.ActiveVariables(), nil).Minus(bottom)
		s.DiscardVertices(basin)
	}
	if g.VarCanPost(p.variable, s.Universe()).IsEmpty() {
		s.DiscardVariable(p.variable)
	}
	return true
}

func (p *extendedProcess) Weight() float64 { return p.bwd.Weight() }

func (p *extendedProcess) DiscardStates(set symbolic.VertexSet) {
	p.bwd.DiscardStates(set)
	p.fwd = p.fwd.Minus(set)
}
