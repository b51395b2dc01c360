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

func TestMinus_EmptyLeftOperand(t *testing.T) {
	g := buildGraph(t, cycleModel(), 0)
	unit := g.UnitVertices()
	state := g.State([]bool{false, false})

	assert.True(t, g.EmptyVertices().Minus(unit).IsEmpty())
	assert.True(t, g.EmptyVertices().Minus(state).IsEmpty())
	assert.True(t, g.EmptyColors().Minus(g.UnitColors()).IsEmpty())
	assert.True(t, g.EmptyVertices().MinusColors(g.UnitColors()).IsEmpty())

	// An empty single-variable image stays empty after set difference.
	img := g.VarPost(1, state)
	require.True(t, img.IsEmpty())
	assert.True(t, img.Minus(state).Intersect(unit).IsEmpty())

	assert.True(t, unit.Minus(unit).IsEmpty())
	assert.Equal(t, int64(3), unit.Minus(state).Cardinality().Int64())
	assert.True(t, state.Minus(g.EmptyVertices()).Equals(state))
}

func TestCounting_WithoutExtrasOrParameters(t *testing.T) {
	tests := []struct {
		name       string
		model      func() *network.Model
		extras     int
		pairs      int64
		states     int64
		pickStates int64
		picked     []bool
	}{
		{"no extras, no parameters", cycleModel, 0, 4, 4, 1, []bool{true, true}},
		{"extras, no parameters", cycleModel, 2, 4, 4, 1, []bool{true, true}},
		{"no extras, one parameter", selfModel, 0, 4, 2, 1, []bool{true}},
		{"extras, one parameter", selfModel, 1, 4, 2, 1, []bool{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, tt.model(), tt.extras)
			unit := g.UnitVertices()

			assert.Equal(t, tt.pairs, unit.Cardinality().Int64())
			assert.Equal(t, float64(tt.pairs), unit.ApproxCardinality())
			assert.Equal(t, tt.states, unit.StateCount().Int64())

			picked := unit.PickVertex()
			assert.Equal(t, tt.pickStates, picked.StateCount().Int64())
			assert.True(t, picked.HasState(tt.picked))
			assert.True(t, picked.Colors().Equals(g.UnitColors()))

			assert.Equal(t, int64(0), g.EmptyVertices().Cardinality().Int64())
			assert.True(t, g.EmptyVertices().PickVertex().IsEmpty())
		})
	}
}
