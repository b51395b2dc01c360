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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

func buildGraph(t *testing.T, m *network.Model, extras int) *Graph {
	t.Helper()
	net, err := m.DefaultNetwork()
	require.NoError(t, err)
	ctx, err := NewContext(net, extras)
	require.NoError(t, err)
	g, err := NewGraph(ctx)
	require.NoError(t, err)
	return g
}

// selfModel has one variable with a free constant update function.
func selfModel() *network.Model {
	return &network.Model{Variables: []network.Variable{{ID: "A"}}}
}

// cycleModel is a fully specified four-state cycle.
func cycleModel() *network.Model {
	return &network.Model{
		Variables: []network.Variable{
			{ID: "A", Update: network.Not(network.Var("B"))},
			{ID: "B", Update: network.Var("A")},
		},
		Regulations: []network.Regulation{
			{Regulator: "B", Target: "A", Sign: network.SignInhibition},
			{Regulator: "A", Target: "B", Sign: network.SignActivation},
		},
	}
}

// chainModel has A regulated by B, both implicit.
func chainModel() *network.Model {
	return &network.Model{
		Variables:   []network.Variable{{ID: "A"}, {ID: "B"}},
		Regulations: []network.Regulation{{Regulator: "B", Target: "A"}},
	}
}

func TestGraph_SingleParameter(t *testing.T) {
	g := buildGraph(t, selfModel(), 0)

	assert.Equal(t, int64(2), g.UnitColors().Cardinality().Int64())
	assert.Equal(t, int64(4), g.UnitVertices().Cardinality().Int64())

	fixed := g.FixedPoints()
	assert.Equal(t, int64(2), fixed.Cardinality().Int64())
	assert.True(t, fixed.Colors().Equals(g.UnitColors()))

	zero := g.State([]bool{false})
	post := g.Post(zero)
	assert.Equal(t, int64(1), post.Cardinality().Int64())
	assert.True(t, post.HasState([]bool{true}))
	assert.True(t, g.Pre(post).Equals(zero.Intersect(g.VarCanPost(0, zero))))
}

func TestGraph_Cycle(t *testing.T) {
	g := buildGraph(t, cycleModel(), 0)

	assert.Equal(t, int64(1), g.UnitColors().Cardinality().Int64())
	assert.True(t, g.FixedPoints().IsEmpty())

	tests := []struct {
		from, to []bool
	}{
		{[]bool{false, false}, []bool{true, false}},
		{[]bool{true, false}, []bool{true, true}},
		{[]bool{true, true}, []bool{false, true}},
		{[]bool{false, true}, []bool{false, false}},
	}
	for _, tt := range tests {
		post := g.Post(g.State(tt.from))
		assert.True(t, post.Equals(g.State(tt.to)), "post of %v", tt.from)
		pre := g.Pre(g.State(tt.to))
		assert.True(t, pre.Equals(g.State(tt.from)), "pre of %v", tt.to)
	}
}

func TestVertexSet_PickVertex(t *testing.T) {
	g := buildGraph(t, selfModel(), 0)

	picked := g.UnitVertices().PickVertex()
	assert.Equal(t, int64(2), picked.Cardinality().Int64())
	assert.True(t, picked.Colors().Equals(g.UnitColors()))
	assert.True(t, picked.Equals(g.State([]bool{true})))
}

func TestGraph_Restrict(t *testing.T) {
	g := buildGraph(t, chainModel(), 0)
	ctx := g.Context()
	assert.Equal(t, int64(8), g.UnitColors().Cardinality().Int64())

	fb, err := ctx.ApplyFn("f_B", nil)
	require.NoError(t, err)
	r := g.Restrict(fb.Colors())
	assert.Equal(t, int64(4), r.UnitColors().Cardinality().Int64())
	assert.True(t, r.UnitColors().IsSubset(g.UnitColors()))
	assert.True(t, r.Post(r.UnitVertices()).Colors().IsSubset(r.UnitColors()))
	assert.True(t, r.Pre(g.UnitVertices()).Colors().IsSubset(r.UnitColors()))
}

func TestColorSet_UpdateVariants(t *testing.T) {
	g := buildGraph(t, chainModel(), 0)
	all := g.UnitColors()

	assert.Equal(t, int64(4), all.CountUpdateVariants(0).Int64())
	assert.Equal(t, int64(2), all.CountUpdateVariants(1).Int64())

	variants, more := all.UpdateVariants(0, 10)
	assert.False(t, more)
	assert.Equal(t, []string{"true", "(!B)", "(B)", "false"}, variants)

	variants, more = all.UpdateVariants(0, 2)
	assert.True(t, more)
	assert.Len(t, variants, 2)

	assert.Equal(t, int64(0), g.EmptyColors().CountUpdateVariants(0).Int64())

	cyc := buildGraph(t, cycleModel(), 0)
	assert.Equal(t, int64(1), cyc.UnitColors().CountUpdateVariants(0).Int64())
	variants, _ = cyc.UnitColors().UpdateVariants(0, 10)
	assert.Equal(t, []string{"!B"}, variants)
}

func TestContext_Transfer(t *testing.T) {
	g := buildGraph(t, chainModel(), 2)
	ctx := g.Context()
	canonical := ctx.Canonical()
	assert.True(t, ctx.Compatible(canonical))

	x, err := ctx.ExtraVar(1)
	require.NoError(t, err)
	withExtra := x.And(ctx.StateVar(0)).Vertices()
	moved, err := canonical.TransferVertices(withExtra)
	require.NoError(t, err)
	assert.Equal(t, canonical, moved.Context())

	_, err = canonical.ExtraVar(0)
	assert.ErrorIs(t, err, ErrExtraOutOfRange)

	other := buildGraph(t, chainModel(), 0)
	_, err = other.Context().TransferColors(g.UnitColors())
	assert.ErrorIs(t, err, ErrIncompatibleContext)
}

func TestPredicate_Quantifiers(t *testing.T) {
	g := buildGraph(t, chainModel(), 1)
	ctx := g.Context()

	x, err := ctx.ExtraVar(0)
	require.NoError(t, err)
	fx, err := ctx.ApplyFn("f_A", []Predicate{x})
	require.NoError(t, err)

	// ∀x: f_A(x) holds only for the constant-true table.
	all, err := fx.ForallExtra(0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Colors().Cardinality().Int64())

	// ∃x: f_A(x) fails only for the constant-false table.
	some, err := fx.ExistsExtra(0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), some.Colors().Cardinality().Int64())

	_, err = ctx.ApplyFn("f_A", nil)
	assert.ErrorIs(t, err, ErrArityMismatch)
	_, err = ctx.ApplyFn("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownParameter)
}
