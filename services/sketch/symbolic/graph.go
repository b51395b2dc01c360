// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbolic

import (
	"fmt"

	"github.com/dalzilio/rudd"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// Graph is the asynchronous colored transition graph of a parametrized network.
//
// Description:
//
//	For color c and state s, variable v can change iff s[v] differs from the
//	value of its update function under c. Exactly one variable changes per
//	transition. The graph is restricted to its unit colors; every set it
//	returns only contains those colors.
//
// Thread Safety:
//
//	Immutable, but shares the non thread-safe manager of its Context.
type Graph struct {
	ctx     *Context
	unit    rudd.Node
	updates []rudd.Node
	canPost []rudd.Node
}

// NewGraph builds the transition graph over all colors of ctx.
//
// Outputs:
//
//	*Graph - The graph.
//	error - Non-nil if an update function cannot be encoded.
func NewGraph(ctx *Context) (*Graph, error) {
	sp := ctx.sp
	n := sp.numStates
	g := &Graph{
		ctx:     ctx,
		unit:    sp.bdd.True(),
		updates: make([]rudd.Node, n),
		canPost: make([]rudd.Node, n),
	}
	for v := 0; v < n; v++ {
		f, err := sp.eval(sp.net.Update(v), nil)
		if err != nil {
			return nil, fmt.Errorf("update function of %s: %w", sp.net.VarName(v), err)
		}
		g.updates[v] = f
		g.canPost[v] = sp.bdd.Apply(sp.bdd.Ithvar(v), f, rudd.OPxor)
	}
	return g, nil
}

// Context returns the context of the graph.
func (g *Graph) Context() *Context { return g.ctx }

// Network returns the network the graph encodes.
func (g *Graph) Network() *network.Network { return g.ctx.sp.net }

// NumVars returns the number of network variables.
func (g *Graph) NumVars() int { return g.ctx.sp.numStates }

// Restrict returns a graph whose unit colors are the unit colors of g
// intersected with colors. Update functions are shared.
func (g *Graph) Restrict(colors ColorSet) *Graph {
	return &Graph{
		ctx:     g.ctx,
		unit:    g.ctx.sp.and(g.unit, colors.node),
		updates: g.updates,
		canPost: g.canPost,
	}
}

// WithContext returns the same graph viewed from another context of the
// family, for example one exposing more auxiliary variables.
func (g *Graph) WithContext(ctx *Context) (*Graph, error) {
	if !g.ctx.Compatible(ctx) {
		return nil, ErrIncompatibleContext
	}
	return &Graph{ctx: ctx, unit: g.unit, updates: g.updates, canPost: g.canPost}, nil
}

// UnitColors returns the admissible colors of the graph.
func (g *Graph) UnitColors() ColorSet { return ColorSet{ctx: g.ctx, node: g.unit} }

// UnitVertices returns every state paired with every admissible color.
func (g *Graph) UnitVertices() VertexSet { return VertexSet{ctx: g.ctx, node: g.unit} }

// EmptyColors returns the empty color set.
func (g *Graph) EmptyColors() ColorSet { return g.ctx.EmptyColors() }

// EmptyVertices returns the empty vertex set.
func (g *Graph) EmptyVertices() VertexSet { return g.ctx.EmptyVertices() }

// Subspace returns the unit vertices whose state matches the partial
// valuation values (keyed by variable index).
func (g *Graph) Subspace(values map[int]bool) VertexSet {
	sp := g.ctx.sp
	lits := []rudd.Node{g.unit}
	for v, b := range values {
		if b {
			lits = append(lits, sp.bdd.Ithvar(v))
		} else {
			lits = append(lits, sp.bdd.NIthvar(v))
		}
	}
	return VertexSet{ctx: g.ctx, node: sp.and(lits...)}
}

// State returns the vertex set of a single fully specified state for all
// admissible colors.
func (g *Graph) State(state []bool) VertexSet {
	values := make(map[int]bool, len(state))
	for i, b := range state {
		values[i] = b
	}
	return g.Subspace(values)
}

// UpdateTrue returns the unit vertices where the update function of v is true.
func (g *Graph) UpdateTrue(v int) VertexSet {
	return VertexSet{ctx: g.ctx, node: g.ctx.sp.and(g.unit, g.updates[v])}
}

// UpdateFalse returns the unit vertices where the update function of v is false.
func (g *Graph) UpdateFalse(v int) VertexSet {
	sp := g.ctx.sp
	return VertexSet{ctx: g.ctx, node: sp.and(g.unit, sp.bdd.Not(g.updates[v]))}
}

// flip negates variable v in every state of n.
func (g *Graph) flip(v int, n rudd.Node) rudd.Node {
	sp := g.ctx.sp
	x := sp.bdd.Ithvar(v)
	nx := sp.bdd.NIthvar(v)
	wasTrue := sp.andExist(sp.varCubes[v], n, x)
	wasFalse := sp.andExist(sp.varCubes[v], n, nx)
	return sp.or(sp.and(wasTrue, nx), sp.and(wasFalse, x))
}

// VarCanPost returns the vertices of set that have an outgoing v-transition.
func (g *Graph) VarCanPost(v int, set VertexSet) VertexSet {
	return VertexSet{ctx: g.ctx, node: g.ctx.sp.and(set.node, g.canPost[v])}
}

// VarPost returns the v-successors of set.
func (g *Graph) VarPost(v int, set VertexSet) VertexSet {
	sp := g.ctx.sp
	return VertexSet{ctx: g.ctx, node: g.flip(v, sp.and(set.node, g.canPost[v]))}
}

// VarPre returns the v-predecessors of set.
func (g *Graph) VarPre(v int, set VertexSet) VertexSet {
	sp := g.ctx.sp
	return VertexSet{ctx: g.ctx, node: sp.and(g.flip(v, set.node), g.canPost[v], g.unit)}
}

// Post returns all successors of set.
func (g *Graph) Post(set VertexSet) VertexSet {
	out := g.EmptyVertices()
	for v := 0; v < g.NumVars(); v++ {
		out = out.Union(g.VarPost(v, set))
	}
	return out
}

// Pre returns all predecessors of set.
func (g *Graph) Pre(set VertexSet) VertexSet {
	out := g.EmptyVertices()
	for v := 0; v < g.NumVars(); v++ {
		out = out.Union(g.VarPre(v, set))
	}
	return out
}

// CanPost returns the vertices of set that have at least one successor.
func (g *Graph) CanPost(set VertexSet) VertexSet {
	out := g.EmptyVertices()
	for v := 0; v < g.NumVars(); v++ {
		out = out.Union(g.VarCanPost(v, set))
	}
	return out
}

// FixedPoints returns the unit vertices with no outgoing transition.
func (g *Graph) FixedPoints() VertexSet {
	unit := g.UnitVertices()
	return unit.Minus(g.CanPost(unit))
}
