// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package formula

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

func graphFor(t *testing.T, m *network.Model, extras int) *symbolic.Graph {
	t.Helper()
	net, err := m.DefaultNetwork()
	require.NoError(t, err)
	ctx, err := symbolic.NewContext(net, extras)
	require.NoError(t, err)
	g, err := symbolic.NewGraph(ctx)
	require.NoError(t, err)
	return g
}

// toggle: A copies itself, B follows A. Fixed points 00 and 11; 10 -> 11, 01 -> 00.
func followModel() *network.Model {
	return &network.Model{
		Variables: []network.Variable{
			{ID: "A", Update: network.Var("A")},
			{ID: "B", Update: network.Var("A")},
		},
		Regulations: []network.Regulation{
			{Regulator: "A", Target: "A"},
			{Regulator: "A", Target: "B"},
		},
	}
}

func TestSymbolicEvaluator_CTL(t *testing.T) {
	g := graphFor(t, followModel(), 0)
	ev := NewSymbolicEvaluator(nil, nil)

	state := func(a, b bool) symbolic.VertexSet { return g.State([]bool{a, b}) }

	tests := []struct {
		name string
		f    *Ctl
		want symbolic.VertexSet
	}{
		{"prop", Prop("A"), state(true, false).Union(state(true, true))},
		{"EF B", EF(Prop("B")), state(true, false).Union(state(true, true)).Union(state(false, true))},
		{"AG !B", AG(CtlNegation(Prop("B"))), state(false, false)},
		{"EX on fixed point", EX(CtlAnd(Prop("A"), Prop("B"))), state(true, true).Union(state(true, false))},
		{"AX", AX(Prop("B")), state(true, true).Union(state(true, false))},
		{"EG A", EG(Prop("A")), state(true, false).Union(state(true, true))},
		{"AF B", AF(Prop("B")), state(true, false).Union(state(true, true)).Union(state(false, true))},
		{"EU", EU(CtlNegation(Prop("B")), CtlAnd(Prop("A"), Prop("B"))), state(true, false).Union(state(true, true))},
		{"some state", SomeState(CtlAnd(Prop("A"), Prop("B"))), g.UnitVertices()},
		{"all states", AllStates(Prop("A")), g.EmptyVertices()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.f, g, nil, nil)
			require.NoError(t, err)
			assert.True(t, got.Equals(tt.want), "%s: got %s want %s", tt.f, got, tt.want)
		})
	}
}

func TestSymbolicEvaluator_NamedAndErrors(t *testing.T) {
	g := graphFor(t, followModel(), 0)
	ev := NewSymbolicEvaluator(nil, nil)

	fp := g.FixedPoints()
	got, err := ev.Evaluate(EF(Named("fp")), g, map[string]symbolic.VertexSet{"fp": fp}, nil)
	require.NoError(t, err)
	assert.True(t, got.Equals(g.UnitVertices()))

	_, err = ev.Evaluate(Named("missing"), g, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownNamedSet)

	_, err = ev.Evaluate(Prop("Z"), g, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownProposition)

	stop := errors.New("stop")
	interrupted := NewSymbolicEvaluator(nil, func() error { return stop })
	_, err = interrupted.Evaluate(EF(Prop("A")), g, nil, nil)
	assert.ErrorIs(t, err, stop)
}

func TestSymbolicEvaluator_FOL(t *testing.T) {
	m := &network.Model{
		Variables:   []network.Variable{{ID: "A"}, {ID: "B"}},
		Regulations: []network.Regulation{{Regulator: "B", Target: "A"}},
	}
	g := graphFor(t, m, 1)
	ev := NewSymbolicEvaluator(nil, nil)

	var messages []string
	progress := func(msg string) { messages = append(messages, msg) }

	// Monotone increasing in its only input: f(0) => f(1). Three of four tables.
	mono := FolBin(network.OpImp, FolFn("f_A", FolFalse()), FolFn("f_A", FolTrue()))
	colors, err := ev.EvaluateFOL(mono, g, progress)
	require.NoError(t, err)
	assert.Equal(t, int64(6), colors.Cardinality().Int64())
	assert.NotEmpty(t, messages)

	// Essential: exists x with f(x) != f(!x). Two of four tables.
	ess := Exists("x", FolBin(network.OpXor,
		FolUpdateFn("A", FolVariable("x")),
		FolUpdateFn("A", FolNegation(FolVariable("x")))))
	colors, err = ev.EvaluateFOL(ess, g, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), colors.Cardinality().Int64())

	_, err = ev.EvaluateFOL(FolVariable("free"), g, nil)
	assert.ErrorIs(t, err, ErrUnboundVariable)

	deep := Forall("x", Forall("y", FolBin(network.OpOr, FolVariable("x"), FolVariable("y"))))
	_, err = ev.EvaluateFOL(deep, g, nil)
	assert.ErrorIs(t, err, symbolic.ErrExtraOutOfRange)
	assert.Equal(t, 2, deep.QuantifierDepth())
}

func TestFormulaDocuments(t *testing.T) {
	src := `
forall:
  var: x
  body:
    imp:
      - fn: f
        args: [x]
      - update: A
        args: ["true"]
`
	var f Fol
	require.NoError(t, yaml.Unmarshal([]byte(src), &f))
	assert.Equal(t, "(forall x: (f(x) => update:A(true)))", f.String())

	raw, err := json.Marshal(&f)
	require.NoError(t, err)
	var back Fol
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, f.String(), back.String())

	ctlSrc := `
eu:
  - not: B
  - and: [A, {named: fp}]
`
	var c Ctl
	require.NoError(t, yaml.Unmarshal([]byte(ctlSrc), &c))
	assert.Equal(t, "E(!B U (A & %fp%))", c.String())
	assert.Contains(t, c.NamedSets(), "fp")

	var bad Ctl
	assert.ErrorIs(t, yaml.Unmarshal([]byte("eu: [A]"), &bad), ErrInvalidFormula)
}
