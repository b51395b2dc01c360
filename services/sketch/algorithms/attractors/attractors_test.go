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
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/reach"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

func graphOf(t *testing.T, m *network.Model) *symbolic.Graph {
	t.Helper()
	net, err := m.DefaultNetwork()
	require.NoError(t, err)
	ctx, err := symbolic.NewContext(net, 0)
	require.NoError(t, err)
	g, err := symbolic.NewGraph(ctx)
	require.NoError(t, err)
	return g
}

// identity builds n variables with X' = X and a self-loop each.
func identity(names ...string) *network.Model {
	m := &network.Model{}
	for _, n := range names {
		m.Variables = append(m.Variables, network.Variable{ID: n, Update: network.Var(n)})
		m.Regulations = append(m.Regulations, network.Regulation{Regulator: n, Target: n, Sign: network.SignActivation})
	}
	return m
}

func counts(table BucketTable) []int64 {
	out := make([]int64, len(table))
	for i, c := range table.Counts() {
		out[i] = c.Int64()
	}
	return out
}

func TestSortColorsByAttractorCount_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		model *network.Model
		want  []int64
	}{
		// One color, states A=0 and A=1 are both fixed.
		{"single identity", identity("A"), []int64{0, 0, 1}},
		// Four independent fixed points.
		{"two identities", identity("A", "B"), []int64{0, 0, 0, 0, 1}},
		// The four-state cycle is one attractor.
		{"cycle", &network.Model{
			Variables: []network.Variable{
				{ID: "A", Update: network.Not(network.Var("B"))},
				{ID: "B", Update: network.Var("A")},
			},
			Regulations: []network.Regulation{{Regulator: "B", Target: "A"}, {Regulator: "A", Target: "B"}},
		}, []int64{0, 1}},
		// A' = p: each of the two colors has exactly one fixed point.
		{"free constant", &network.Model{Variables: []network.Variable{{ID: "A"}}}, []int64{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphOf(t, tt.model)
			table, err := NewDetector(nil, nil).SortColorsByAttractorCount(context.Background(), g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, counts(table))
			assert.True(t, table.Union().Equals(g.UnitColors()))
		})
	}
}

func TestSortColorsByAttractorCount_ParametrizedSelfLoop(t *testing.T) {
	// A' = f(A): identity has 2 fixed points, constants have 1, negation
	// oscillates as a single attractor.
	g := graphOf(t, &network.Model{
		Variables:   []network.Variable{{ID: "A"}},
		Regulations: []network.Regulation{{Regulator: "A", Target: "A"}},
	})
	table, err := NewDetector(nil, nil).SortColorsByAttractorCount(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 3, 1}, counts(table))
	assert.Equal(t, int64(4), table.Range(1, 2).Cardinality().Int64())
	assert.Equal(t, int64(1), table.Range(2, 9).Cardinality().Int64())
	assert.True(t, table.Range(5, 9).IsEmpty())
}

func TestBucketTable_Invariants(t *testing.T) {
	g := graphOf(t, &network.Model{
		Variables:   []network.Variable{{ID: "A"}, {ID: "B"}},
		Regulations: []network.Regulation{{Regulator: "A", Target: "B"}},
	})
	unit := g.UnitColors()
	table := NewBucketTable(unit)

	// Feed overlapping color sets and check the invariants after each call.
	components := []symbolic.ColorSet{
		unit,
		g.UpdateTrue(1).Colors(),
		g.UpdateFalse(1).Colors(),
		unit,
		g.UpdateTrue(0).Colors(),
	}
	for i, c := range components {
		before := table
		table = table.ProcessComponent(c)

		assert.True(t, table.Union().Equals(unit), "union changed at step %d", i)
		for a := range table {
			for b := a + 1; b < len(table); b++ {
				assert.True(t, table[a].Intersect(table[b]).IsEmpty(), "buckets %d and %d overlap at step %d", a, b, i)
			}
		}
		total := new(big.Int)
		for _, n := range table.Counts() {
			total.Add(total, n)
		}
		assert.Equal(t, unit.Cardinality(), total)
		assert.True(t, before.Union().Equals(unit), "receiver mutated at step %d", i)
	}
	// Every color went up exactly twice from the two full sets.
	assert.True(t, table[0].IsEmpty())
	assert.True(t, table[1].IsEmpty())
}

func TestXieBeerel_ComponentsAreTerminal(t *testing.T) {
	g := graphOf(t, &network.Model{
		Variables:   []network.Variable{{ID: "A"}, {ID: "B"}},
		Regulations: []network.Regulation{{Regulator: "A", Target: "B"}, {Regulator: "B", Target: "A"}},
	})
	vars := reach.AllVariables(g)
	var found int
	_, err := XieBeerel(g, g.UnitVertices(), vars, func(c symbolic.VertexSet) {
		found++
		assert.False(t, c.IsEmpty())
		// Closed under successors: nothing leaves the component.
		assert.True(t, g.Post(c).IsSubset(c))
	}, nil)
	require.NoError(t, err)
	assert.Positive(t, found)

	states, err := NewDetector(nil, nil).AttractorStates(context.Background(), g)
	require.NoError(t, err)
	assert.True(t, g.FixedPoints().IsSubset(states))
	assert.True(t, g.Post(states).IsSubset(states))
}

func TestDetector_Cancelled(t *testing.T) {
	g := graphOf(t, identity("A"))
	stop := errors.New("stop")
	_, err := NewDetector(nil, func() error { return stop }).SortColorsByAttractorCount(context.Background(), g)
	assert.ErrorIs(t, err, stop)
}
