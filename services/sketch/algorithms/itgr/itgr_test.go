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
	"context"
	"errors"
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

func TestReduce(t *testing.T) {
	tests := []struct {
		name      string
		model     *network.Model
		universe  int64
		variables int
	}{
		{
			name:      "constant true drops the basin",
			model:     &network.Model{Variables: []network.Variable{{ID: "A", Update: network.Const(true)}}},
			universe:  1,
			variables: 0,
		},
		{
			name:      "free constant keeps one fixed point per color",
			model:     &network.Model{Variables: []network.Variable{{ID: "A"}}},
			universe:  2,
			variables: 0,
		},
		{
			name: "identity keeps everything",
			model: &network.Model{
				Variables: []network.Variable{
					{ID: "A", Update: network.Var("A")},
					{ID: "B", Update: network.Var("B")},
				},
				Regulations: []network.Regulation{{Regulator: "A", Target: "A"}, {Regulator: "B", Target: "B"}},
			},
			universe:  4,
			variables: 0,
		},
		{
			name: "cycle is one attractor",
			model: &network.Model{
				Variables: []network.Variable{
					{ID: "A", Update: network.Not(network.Var("B"))},
					{ID: "B", Update: network.Var("A")},
				},
				Regulations: []network.Regulation{{Regulator: "B", Target: "A"}, {Regulator: "A", Target: "B"}},
			},
			universe:  4,
			variables: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphOf(t, tt.model)
			in := g.UnitVertices()
			vars := reach.AllVariables(g)

			res, err := Reduce(context.Background(), g, in, vars, nil)
			require.NoError(t, err)

			assert.True(t, res.Universe.IsSubset(in))
			assert.Subset(t, vars, res.Variables)
			assert.Equal(t, tt.universe, res.Universe.Cardinality().Int64())
			assert.Len(t, res.Variables, tt.variables)
			// Every fixed point is an attractor and must survive.
			assert.True(t, g.FixedPoints().IsSubset(res.Universe))
		})
	}
}

func TestReduce_Cancelled(t *testing.T) {
	g := graphOf(t, &network.Model{Variables: []network.Variable{{ID: "A"}}})
	stop := errors.New("stop")
	_, err := Reduce(context.Background(), g, g.UnitVertices(), []int{0}, func() error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestScheduler(t *testing.T) {
	g := graphOf(t, &network.Model{Variables: []network.Variable{{ID: "A"}, {ID: "B"}}})
	s := NewScheduler(g, g.UnitVertices(), []int{1, 0})
	assert.Equal(t, []int{0, 1}, s.ActiveVariables())

	s.DiscardVariable(0)
	s.DiscardVariable(7)
	assert.Equal(t, []int{1}, s.ActiveVariables())

	zero := g.State([]bool{false, false})
	p := newBwdProcess(zero, g.UnitVertices())
	s.Spawn(p)
	s.DiscardVertices(zero)
	s.flush()
	assert.True(t, p.reached.IsEmpty())
	assert.False(t, s.Universe().HasState([]bool{false, false}))
	assert.Same(t, Process(p), s.next())
	assert.Nil(t, s.next())
}
