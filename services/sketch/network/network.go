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

// Parameter is an uninterpreted function symbol left free in the network.
type Parameter struct {
	Name  string
	Arity int
	// Target is set for implicit update functions and names the variable
	// whose update the parameter stands for.
	Target string
}

// Implicit reports whether the parameter replaces an unspecified update.
func (p Parameter) Implicit() bool { return p.Target != "" }

// Network is the concrete parametrized network extracted from a Model.
//
// Every update function is explicit: unspecified ones were replaced by an
// application of their implicit parameter. A Network is read-only after
// construction and safe for concurrent use.
type Network struct {
	variables   []string
	index       map[string]int
	regulators  [][]int
	regulations []Regulation
	updates     []*FnExpr
	implicit    []bool
	params      []Parameter
	paramIndex  map[string]int
}

// NumVars returns the number of variables.
func (n *Network) NumVars() int { return len(n.variables) }

// Variables returns the variable ids in declaration order.
func (n *Network) Variables() []string {
	out := make([]string, len(n.variables))
	copy(out, n.variables)
	return out
}

// VarName returns the id of variable i.
func (n *Network) VarName(i int) string { return n.variables[i] }

// VarIndex returns the position of a variable.
func (n *Network) VarIndex(name string) (int, bool) {
	i, ok := n.index[name]
	return i, ok
}

// Regulators returns the regulator indices of variable i in variable order.
func (n *Network) Regulators(i int) []int {
	out := make([]int, len(n.regulators[i]))
	copy(out, n.regulators[i])
	return out
}

// RegulatorNames returns the regulator ids of variable i in variable order.
func (n *Network) RegulatorNames(i int) []string {
	out := make([]string, len(n.regulators[i]))
	for j, r := range n.regulators[i] {
		out[j] = n.variables[r]
	}
	return out
}

// Targets returns the variables regulated by variable i.
func (n *Network) Targets(i int) []int {
	var out []int
	for t, regs := range n.regulators {
		for _, r := range regs {
			if r == i {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Update returns the update expression of variable i.
func (n *Network) Update(i int) *FnExpr { return n.updates[i] }

// IsImplicit reports whether variable i had an unspecified update.
func (n *Network) IsImplicit(i int) bool { return n.implicit[i] }

// Parameters returns the free function symbols.
func (n *Network) Parameters() []Parameter {
	out := make([]Parameter, len(n.params))
	copy(out, n.params)
	return out
}

// Parameter looks up a free function symbol.
func (n *Network) Parameter(name string) (Parameter, bool) {
	i, ok := n.paramIndex[name]
	if !ok {
		return Parameter{}, false
	}
	return n.params[i], true
}

// Regulations returns the regulations in model order.
func (n *Network) Regulations() []Regulation {
	out := make([]Regulation, len(n.regulations))
	copy(out, n.regulations)
	return out
}

// Regulation looks up the regulation between two variables.
func (n *Network) Regulation(regulator, target string) (Regulation, bool) {
	for _, r := range n.regulations {
		if r.Regulator == regulator && r.Target == target {
			return r, true
		}
	}
	return Regulation{}, false
}
