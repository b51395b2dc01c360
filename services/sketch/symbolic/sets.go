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
	"math/big"

	"github.com/dalzilio/rudd"
)

// -----------------------------------------------------------------------------
// ColorSet
// -----------------------------------------------------------------------------

// ColorSet is an immutable set of colors (network parametrizations).
//
// Copying a ColorSet is cheap; the underlying diagram is shared.
type ColorSet struct {
	ctx  *Context
	node rudd.Node
}

// Context returns the context the set belongs to.
func (c ColorSet) Context() *Context { return c.ctx }

// Union returns c ∪ o.
func (c ColorSet) Union(o ColorSet) ColorSet {
	return ColorSet{ctx: c.ctx, node: c.ctx.sp.or(c.node, o.node)}
}

// Intersect returns c ∩ o.
func (c ColorSet) Intersect(o ColorSet) ColorSet {
	return ColorSet{ctx: c.ctx, node: c.ctx.sp.and(c.node, o.node)}
}

// Minus returns c \ o.
func (c ColorSet) Minus(o ColorSet) ColorSet {
	return ColorSet{ctx: c.ctx, node: c.ctx.sp.minus(c.node, o.node)}
}

// IsEmpty reports whether the set has no colors.
func (c ColorSet) IsEmpty() bool { return c.ctx.sp.isFalse(c.node) }

// Equals reports set equality.
func (c ColorSet) Equals(o ColorSet) bool { return c.ctx.sp.same(c.node, o.node) }

// IsSubset reports c ⊆ o.
func (c ColorSet) IsSubset(o ColorSet) bool { return c.Minus(o).IsEmpty() }

// Cardinality returns the exact number of colors.
func (c ColorSet) Cardinality() *big.Int {
	sp := c.ctx.sp
	return sp.count(c.node, sp.total-sp.paramBits)
}

// ApproxCardinality returns the number of colors as a float.
func (c ColorSet) ApproxCardinality() float64 {
	f, _ := new(big.Float).SetInt(c.Cardinality()).Float64()
	return f
}

// String is a short human-readable summary.
func (c ColorSet) String() string {
	return fmt.Sprintf("ColorSet(%s)", c.Cardinality())
}

// -----------------------------------------------------------------------------
// VertexSet
// -----------------------------------------------------------------------------

// VertexSet is an immutable set of colored states, i.e. (state, color) pairs.
type VertexSet struct {
	ctx  *Context
	node rudd.Node
}

// Context returns the context the set belongs to.
func (v VertexSet) Context() *Context { return v.ctx }

// Union returns v ∪ o.
func (v VertexSet) Union(o VertexSet) VertexSet {
	return VertexSet{ctx: v.ctx, node: v.ctx.sp.or(v.node, o.node)}
}

// Intersect returns v ∩ o.
func (v VertexSet) Intersect(o VertexSet) VertexSet {
	return VertexSet{ctx: v.ctx, node: v.ctx.sp.and(v.node, o.node)}
}

// Minus returns v \ o.
func (v VertexSet) Minus(o VertexSet) VertexSet {
	return VertexSet{ctx: v.ctx, node: v.ctx.sp.minus(v.node, o.node)}
}

// IsEmpty reports whether the set has no colored states.
func (v VertexSet) IsEmpty() bool { return v.ctx.sp.isFalse(v.node) }

// Equals reports set equality.
func (v VertexSet) Equals(o VertexSet) bool { return v.ctx.sp.same(v.node, o.node) }

// IsSubset reports v ⊆ o.
func (v VertexSet) IsSubset(o VertexSet) bool { return v.Minus(o).IsEmpty() }

// Colors projects the set onto the colors that have at least one state in it.
func (v VertexSet) Colors() ColorSet {
	sp := v.ctx.sp
	return ColorSet{ctx: v.ctx, node: sp.exist(v.node, sp.nonParamCube())}
}

// IntersectColors keeps the pairs whose color is in c.
func (v VertexSet) IntersectColors(c ColorSet) VertexSet {
	return VertexSet{ctx: v.ctx, node: v.ctx.sp.and(v.node, c.node)}
}

// MinusColors drops the pairs whose color is in c.
func (v VertexSet) MinusColors(c ColorSet) VertexSet {
	return VertexSet{ctx: v.ctx, node: v.ctx.sp.minus(v.node, c.node)}
}

// Cardinality returns the number of (state, color) pairs.
func (v VertexSet) Cardinality() *big.Int {
	sp := v.ctx.sp
	n := sp.exist(v.node, sp.extraCube)
	return sp.count(n, sp.total-sp.paramBits-sp.numStates)
}

// ApproxCardinality returns the number of pairs as a float.
func (v VertexSet) ApproxCardinality() float64 {
	f, _ := new(big.Float).SetInt(v.Cardinality()).Float64()
	return f
}

// StateCount returns the number of distinct states regardless of color.
func (v VertexSet) StateCount() *big.Int {
	sp := v.ctx.sp
	n := sp.exist(v.node, sp.and(sp.extraCube, sp.paramCube))
	return sp.count(n, sp.total-sp.numStates)
}

// PickVertex keeps exactly one state for every color of the set: the
// lexicographically greatest one with variable 0 as the most significant bit.
func (v VertexSet) PickVertex() VertexSet {
	sp := v.ctx.sp
	s := sp.exist(v.node, sp.extraCube)
	for i := 0; i < sp.numStates; i++ {
		x := sp.bdd.Ithvar(i)
		pos := sp.andExist(sp.stateCube, s, x)
		s = sp.or(
			sp.and(s, x, pos),
			sp.and(s, sp.bdd.NIthvar(i), sp.bdd.Not(pos)),
		)
	}
	return VertexSet{ctx: v.ctx, node: s}
}

// HasState reports whether the fully specified state (one value per network
// variable) belongs to the set for at least one color.
func (v VertexSet) HasState(state []bool) bool {
	sp := v.ctx.sp
	lits := make([]rudd.Node, 0, len(state)+1)
	lits = append(lits, v.node)
	for i, b := range state {
		if b {
			lits = append(lits, sp.bdd.Ithvar(i))
		} else {
			lits = append(lits, sp.bdd.NIthvar(i))
		}
	}
	return !sp.isFalse(sp.and(lits...))
}

// String is a short human-readable summary.
func (v VertexSet) String() string {
	return fmt.Sprintf("VertexSet(%s)", v.Cardinality())
}

// -----------------------------------------------------------------------------
// Transfer
// -----------------------------------------------------------------------------

// TransferColors moves c into ctx.
func (c *Context) TransferColors(set ColorSet) (ColorSet, error) {
	if !c.Compatible(set.ctx) {
		return ColorSet{}, ErrIncompatibleContext
	}
	return ColorSet{ctx: c, node: set.node}, nil
}

// TransferVertices moves v into ctx, quantifying away auxiliary variables
// that ctx does not expose.
func (c *Context) TransferVertices(set VertexSet) (VertexSet, error) {
	if !c.Compatible(set.ctx) {
		return VertexSet{}, ErrIncompatibleContext
	}
	sp := c.sp
	node := set.node
	if set.ctx.extras > c.extras {
		node = sp.exist(node, sp.cube(sp.extraRange(c.extras, set.ctx.extras)))
	}
	return VertexSet{ctx: c, node: node}, nil
}

// AllColors returns every color of the layout.
func (c *Context) AllColors() ColorSet {
	return ColorSet{ctx: c, node: c.sp.bdd.True()}
}

// EmptyColors returns the empty color set.
func (c *Context) EmptyColors() ColorSet {
	return ColorSet{ctx: c, node: c.sp.bdd.False()}
}

// EmptyVertices returns the empty vertex set.
func (c *Context) EmptyVertices() VertexSet {
	return VertexSet{ctx: c, node: c.sp.bdd.False()}
}
