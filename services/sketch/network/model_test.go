// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package network

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func twoVarModel() *Model {
	return &Model{
		Variables: []Variable{{ID: "B"}, {ID: "A"}},
		Regulations: []Regulation{
			{Regulator: "A", Target: "B", Sign: SignActivation, Essential: EssentialTrue},
			{Regulator: "B", Target: "B"},
			{Regulator: "B", Target: "A", Sign: SignInhibition},
		},
	}
}

func TestParseSign(t *testing.T) {
	tests := []struct {
		in   string
		want Sign
	}{
		{"->", SignActivation},
		{"activation", SignActivation},
		{"-|", SignInhibition},
		{"-", SignInhibition},
		{"dual", SignDual},
		{"-*", SignDual},
		{"", SignUnknown},
		{"-?", SignUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSign(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSign("sideways")
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestDefaultNetwork_ImplicitFunctions(t *testing.T) {
	n, err := twoVarModel().DefaultNetwork()
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, n.Variables())
	// Regulators follow declaration order, not regulation order.
	assert.Equal(t, []string{"B", "A"}, n.RegulatorNames(0))
	assert.Equal(t, "f_B(B, A)", n.Update(0).String())
	assert.Equal(t, "f_A(B)", n.Update(1).String())
	assert.True(t, n.IsImplicit(0))

	p, ok := n.Parameter("f_B")
	require.True(t, ok)
	assert.Equal(t, 2, p.Arity)
	assert.True(t, p.Implicit())
	assert.Equal(t, "B", p.Target)
}

func TestDefaultNetwork_InlinesAndPrunes(t *testing.T) {
	m := twoVarModel()
	m.Functions = []UninterpretedFn{
		{ID: "g", Arity: 1},
		{ID: "unused", Arity: 2},
		{ID: "h", Arity: 2, Expression: Binary(OpAnd, Var("var0"), Apply("g", Var("var1")))},
	}
	m.Variables[1].Update = Apply("h", Var("B"), Not(Var("B")))

	n, err := m.DefaultNetwork()
	require.NoError(t, err)

	assert.Equal(t, "(B & g(!B))", n.Update(1).String())
	assert.False(t, n.IsImplicit(1))

	_, ok := n.Parameter("unused")
	assert.False(t, ok)
	_, ok = n.Parameter("h")
	assert.False(t, ok)
	g, ok := n.Parameter("g")
	require.True(t, ok)
	assert.False(t, g.Implicit())
}

func TestModel_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
		want   error
	}{
		{"duplicate variable", func(m *Model) { m.Variables = append(m.Variables, Variable{ID: "A"}) }, ErrInvalidModel},
		{"bad id", func(m *Model) { m.Variables[0].ID = "1x" }, ErrInvalidModel},
		{"dangling regulator", func(m *Model) {
			m.Regulations = append(m.Regulations, Regulation{Regulator: "C", Target: "A"})
		}, ErrUnknownVariable},
		{"duplicate regulation", func(m *Model) {
			m.Regulations = append(m.Regulations, Regulation{Regulator: "A", Target: "B"})
		}, ErrInvalidModel},
		{"update reads non-regulator", func(m *Model) { m.Variables[1].Update = Var("A") }, ErrInvalidExpression},
		{"unknown function", func(m *Model) { m.Variables[1].Update = Apply("nope", Var("B")) }, ErrUnknownFunction},
		{"arity mismatch", func(m *Model) {
			m.Functions = []UninterpretedFn{{ID: "g", Arity: 2}}
			m.Variables[1].Update = Apply("g", Var("B"))
		}, ErrInvalidExpression},
		{"implicit name clash", func(m *Model) {
			m.Functions = []UninterpretedFn{{ID: "f_A", Arity: 1}}
		}, ErrInvalidModel},
		{"body reads outside arguments", func(m *Model) {
			m.Functions = []UninterpretedFn{{ID: "g", Arity: 1, Expression: Var("var1")}}
		}, ErrInvalidExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := twoVarModel()
			tt.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.NoError(t, twoVarModel().Validate())
}

func TestFnExpr_Serialization(t *testing.T) {
	src := `
and:
  - A
  - not: B
  - fn: g
    args: [A, "true"]
`
	var e FnExpr
	require.NoError(t, yaml.Unmarshal([]byte(src), &e))
	assert.Equal(t, "((A & !B) & g(A, true))", e.String())

	raw, err := json.Marshal(&e)
	require.NoError(t, err)
	var back FnExpr
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, e.String(), back.String())

	var bad FnExpr
	err = yaml.Unmarshal([]byte("imp: [A]"), &bad)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestDataset_Subspace(t *testing.T) {
	n, err := twoVarModel().DefaultNetwork()
	require.NoError(t, err)

	d := &Dataset{
		ID:        "d",
		Variables: []string{"A", "B"},
		Observations: []Observation{
			{ID: "o1", Values: "1*"},
			{ID: "o2", Values: "10"},
		},
	}
	require.NoError(t, d.Validate(n))

	sub, err := d.Subspace(n, d.Observations[0])
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true}, sub)
	assert.False(t, d.FullySpecified(n, d.Observations[0]))
	assert.True(t, d.FullySpecified(n, d.Observations[1]))

	d.Observations = append(d.Observations, Observation{ID: "bad", Values: "1x"})
	assert.ErrorIs(t, d.Validate(n), ErrInvalidObservation)
}
