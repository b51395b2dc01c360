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
	"sort"

	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// Scheduler owns the reduction frontier: the current universe and the set of
// variables that may still fire inside it. Both only ever shrink.
//
// Thread Safety: Not safe for concurrent use. Owned by one Reduce call.
type Scheduler struct {
	graph     *symbolic.Graph
	universe  symbolic.VertexSet
	active    []int
	pending   symbolic.VertexSet
	hasPend   bool
	processes []Process
}

// NewScheduler starts a frontier at universe with the given active variables.
func NewScheduler(g *symbolic.Graph, universe symbolic.VertexSet, vars []int) *Scheduler {
	active := append([]int(nil), vars...)
	sort.Ints(active)
	return &Scheduler{graph: g, universe: universe, active: active}
}

// Graph returns the transition graph.
func (s *Scheduler) Graph() *symbolic.Graph { return s.graph }

// Universe returns the current universe.
func (s *Scheduler) Universe() symbolic.VertexSet { return s.universe }

// ActiveVariables returns the variables still considered, in ascending order.
// The slice must not be modified.
func (s *Scheduler) ActiveVariables() []int { return s.active }

// DiscardVertices removes set from the universe. Every registered process
// drops the same vertices before its next step.
func (s *Scheduler) DiscardVertices(set symbolic.VertexSet) {
	if set.IsEmpty() {
		return
	}
	s.universe = s.universe.Minus(set)
	if s.hasPend {
		s.pending = s.pending.Union(set)
	} else {
		s.pending, s.hasPend = set, true
	}
}

// DiscardVariable removes v from the active variables. Unknown variables are
// ignored.
func (s *Scheduler) DiscardVariable(v int) {
	i := sort.SearchInts(s.active, v)
	if i < len(s.active) && s.active[i] == v {
		s.active = append(s.active[:i:i], s.active[i+1:]...)
	}
}

// Spawn registers a new process.
func (s *Scheduler) Spawn(p Process) {
	s.processes = append(s.processes, p)
}

// flush hands pending discards to every process.
func (s *Scheduler) flush() {
	if !s.hasPend {
		return
	}
	for _, p := range s.processes {
		p.DiscardStates(s.pending)
	}
	s.hasPend = false
}

// next removes and returns the lightest process, or nil when none is left.
func (s *Scheduler) next() Process {
	if len(s.processes) == 0 {
		return nil
	}
	best := 0
	bestW := s.processes[0].Weight()
	for i := 1; i < len(s.processes); i++ {
		if w := s.processes[i].Weight(); w < bestW {
			best, bestW = i, w
		}
	}
	p := s.processes[best]
	s.processes = append(s.processes[:best], s.processes[best+1:]...)
	return p
}
