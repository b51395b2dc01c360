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
	"fmt"
	"regexp"
	"sort"
)

// identifierPattern matches valid variable, function and property ids.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used as an id.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ImplicitFunctionName is the function symbol introduced for a variable
// whose update function is left unspecified.
func ImplicitFunctionName(variable string) string {
	return "f_" + variable
}

// -----------------------------------------------------------------------------
// Model
// -----------------------------------------------------------------------------

// Variable is a network variable with an optional update function.
// A nil Update means the function is unknown and fully parametrized.
type Variable struct {
	ID     string  `yaml:"id" json:"id" validate:"required,identifier"`
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Update *FnExpr `yaml:"update,omitempty" json:"update,omitempty"`
}

// Regulation is an edge of the regulatory graph.
type Regulation struct {
	Regulator string       `yaml:"regulator" json:"regulator" validate:"required,identifier"`
	Target    string       `yaml:"target" json:"target" validate:"required,identifier"`
	Sign      Sign         `yaml:"sign" json:"sign"`
	Essential Essentiality `yaml:"essential" json:"essential"`
}

// FnArgument constrains one argument of an uninterpreted function.
type FnArgument struct {
	Sign      Sign         `yaml:"sign" json:"sign"`
	Essential Essentiality `yaml:"essential" json:"essential"`
}

// UninterpretedFn is a function symbol. With a nil Expression it is a free
// parameter; otherwise the expression (over var0..varN) is inlined wherever
// the symbol is applied.
type UninterpretedFn struct {
	ID         string       `yaml:"id" json:"id" validate:"required,identifier"`
	Arity      int          `yaml:"arity" json:"arity" validate:"gte=0,lte=16"`
	Expression *FnExpr      `yaml:"expression,omitempty" json:"expression,omitempty"`
	Arguments  []FnArgument `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// Model is the editable regulatory model of a sketch.
type Model struct {
	Variables   []Variable        `yaml:"variables" json:"variables" validate:"required,min=1,dive"`
	Regulations []Regulation      `yaml:"regulations" json:"regulations" validate:"dive"`
	Functions   []UninterpretedFn `yaml:"functions,omitempty" json:"functions,omitempty" validate:"dive"`
}

// Validate performs the semantic checks that struct tags cannot express.
//
// Description:
//
//	Checks id syntax and uniqueness, that regulations connect declared
//	variables, that update expressions only read regulators of their
//	variable, and that function applications match declared arities.
//
// Outputs:
//
//	error - Wraps ErrInvalidModel, ErrUnknownVariable or ErrUnknownFunction.
func (m *Model) Validate() error {
	vars := make(map[string]struct{}, len(m.Variables))
	for _, v := range m.Variables {
		if !ValidIdentifier(v.ID) {
			return fmt.Errorf("%w: invalid variable id %q", ErrInvalidModel, v.ID)
		}
		if _, dup := vars[v.ID]; dup {
			return fmt.Errorf("%w: duplicate variable %q", ErrInvalidModel, v.ID)
		}
		vars[v.ID] = struct{}{}
	}

	fns := make(map[string]UninterpretedFn, len(m.Functions))
	for _, f := range m.Functions {
		if !ValidIdentifier(f.ID) {
			return fmt.Errorf("%w: invalid function id %q", ErrInvalidModel, f.ID)
		}
		if _, dup := fns[f.ID]; dup {
			return fmt.Errorf("%w: duplicate function %q", ErrInvalidModel, f.ID)
		}
		if len(f.Arguments) != 0 && len(f.Arguments) != f.Arity {
			return fmt.Errorf("%w: function %q declares %d argument constraints for arity %d",
				ErrInvalidModel, f.ID, len(f.Arguments), f.Arity)
		}
		fns[f.ID] = f
	}
	for v := range vars {
		if _, clash := fns[ImplicitFunctionName(v)]; clash {
			return fmt.Errorf("%w: function %q clashes with the implicit function of %q",
				ErrInvalidModel, ImplicitFunctionName(v), v)
		}
	}

	regulators := make(map[string]map[string]struct{})
	for _, r := range m.Regulations {
		if _, ok := vars[r.Regulator]; !ok {
			return fmt.Errorf("%w: regulator %q", ErrUnknownVariable, r.Regulator)
		}
		if _, ok := vars[r.Target]; !ok {
			return fmt.Errorf("%w: target %q", ErrUnknownVariable, r.Target)
		}
		if regulators[r.Target] == nil {
			regulators[r.Target] = make(map[string]struct{})
		}
		if _, dup := regulators[r.Target][r.Regulator]; dup {
			return fmt.Errorf("%w: duplicate regulation %s -> %s", ErrInvalidModel, r.Regulator, r.Target)
		}
		regulators[r.Target][r.Regulator] = struct{}{}
	}

	for _, f := range m.Functions {
		if f.Expression == nil {
			continue
		}
		for name := range f.Expression.Variables() {
			if !isArgOf(name, f.Arity) {
				return fmt.Errorf("%w: function %q body reads %q", ErrInvalidExpression, f.ID, name)
			}
		}
		for name, arity := range f.Expression.Functions() {
			inner, ok := fns[name]
			if !ok {
				return fmt.Errorf("%w: %q in body of %q", ErrUnknownFunction, name, f.ID)
			}
			if inner.Expression != nil {
				return fmt.Errorf("%w: function %q body applies defined function %q",
					ErrInvalidExpression, f.ID, name)
			}
			if inner.Arity != arity {
				return fmt.Errorf("%w: %q applied to %d arguments, arity is %d",
					ErrInvalidExpression, name, arity, inner.Arity)
			}
		}
	}

	for _, v := range m.Variables {
		if v.Update == nil {
			continue
		}
		for name := range v.Update.Variables() {
			if _, ok := regulators[v.ID][name]; !ok {
				if _, known := vars[name]; !known {
					return fmt.Errorf("%w: %q in update of %q", ErrUnknownVariable, name, v.ID)
				}
				return fmt.Errorf("%w: update of %q reads %q which does not regulate it",
					ErrInvalidExpression, v.ID, name)
			}
		}
		for name, arity := range v.Update.Functions() {
			f, ok := fns[name]
			if !ok {
				return fmt.Errorf("%w: %q in update of %q", ErrUnknownFunction, name, v.ID)
			}
			if f.Arity != arity {
				return fmt.Errorf("%w: %q applied to %d arguments, arity is %d",
					ErrInvalidExpression, name, arity, f.Arity)
			}
		}
	}
	return nil
}

func isArgOf(name string, arity int) bool {
	for i := 0; i < arity; i++ {
		if name == ArgName(i) {
			return true
		}
	}
	return false
}

// Function returns the function with the given id.
func (m *Model) Function(id string) (UninterpretedFn, bool) {
	for _, f := range m.Functions {
		if f.ID == id {
			return f, true
		}
	}
	return UninterpretedFn{}, false
}

// DefaultNetwork extracts the concrete parametrized network.
//
// Description:
//
//	Regulators of each variable are ordered by variable declaration order.
//	Function symbols with an expression are inlined. Every unspecified
//	update becomes f_<var>(regulators...), so later stages only deal with
//	explicit parameters. Function symbols no update refers to are dropped.
//
// Outputs:
//
//	*Network - The concrete network.
//	error - Non-nil if the model fails Validate.
func (m *Model) DefaultNetwork() (*Network, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		index:      make(map[string]int, len(m.Variables)),
		paramIndex: make(map[string]int),
	}
	for i, v := range m.Variables {
		n.variables = append(n.variables, v.ID)
		n.index[v.ID] = i
	}

	n.regulators = make([][]int, len(m.Variables))
	for _, r := range m.Regulations {
		t := n.index[r.Target]
		n.regulators[t] = append(n.regulators[t], n.index[r.Regulator])
	}
	for t := range n.regulators {
		sort.Ints(n.regulators[t])
	}
	n.regulations = append(n.regulations, m.Regulations...)

	used := make(map[string]int)
	n.updates = make([]*FnExpr, len(m.Variables))
	n.implicit = make([]bool, len(m.Variables))
	for i, v := range m.Variables {
		if v.Update == nil {
			args := make([]*FnExpr, len(n.regulators[i]))
			for j, r := range n.regulators[i] {
				args[j] = Var(n.variables[r])
			}
			name := ImplicitFunctionName(v.ID)
			n.updates[i] = Apply(name, args...)
			n.implicit[i] = true
			n.params = append(n.params, Parameter{Name: name, Arity: len(args), Target: v.ID})
			continue
		}
		expr := v.Update
		for _, f := range m.Functions {
			if f.Expression != nil {
				expr = expr.Inline(f.ID, f.Expression)
			}
		}
		n.updates[i] = expr
		for name, arity := range expr.Functions() {
			used[name] = arity
		}
	}

	for _, f := range m.Functions {
		if _, ok := used[f.ID]; ok && f.Expression == nil {
			n.params = append(n.params, Parameter{Name: f.ID, Arity: f.Arity})
		}
	}
	for i, p := range n.params {
		n.paramIndex[p.Name] = i
	}
	return n, nil
}
