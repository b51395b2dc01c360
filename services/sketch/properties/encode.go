// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package properties

import (
	"fmt"
	"strconv"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// Encoder turns static properties into closed FOL formulas.
type Encoder struct {
	model *network.Model
	net   *network.Network
}

// NewEncoder creates an encoder for a model and its default network.
func NewEncoder(model *network.Model, net *network.Network) *Encoder {
	return &Encoder{model: model, net: net}
}

// Encode returns the formula whose satisfying colors are the colors
// admitted by p.
func (e *Encoder) Encode(p StaticProperty) (*formula.Fol, error) {
	var (
		body *formula.Fol
		err  error
	)
	switch p.Kind {
	case StaticGeneric:
		if p.Formula == nil {
			return nil, fmt.Errorf("%w: %s has no formula", ErrInvalidProperty, p.ID)
		}
		return p.Formula, nil
	case StaticRegulationMonotonic, StaticRegulationEssential:
		body, err = e.regulation(p)
	case StaticFnInputMonotonic, StaticFnInputEssential:
		body, err = e.fnInput(p)
	default:
		return nil, fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidProperty, p.ID, p.Kind)
	}
	if err != nil {
		return nil, err
	}
	if p.Context != nil {
		body = formula.FolBin(network.OpImp, p.Context, body)
	}
	return body, nil
}

// ExtraCount returns the number of auxiliary variables needed to evaluate
// every property in props.
func (e *Encoder) ExtraCount(props []StaticProperty) (int, error) {
	best := 0
	for _, p := range props {
		f, err := e.Encode(p)
		if err != nil {
			return 0, err
		}
		if d := f.QuantifierDepth(); d > best {
			best = d
		}
	}
	return best, nil
}

func (e *Encoder) regulation(p StaticProperty) (*formula.Fol, error) {
	t, ok := e.net.VarIndex(p.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown target %q", ErrInvalidProperty, p.ID, p.Target)
	}
	input := -1
	regs := e.net.RegulatorNames(t)
	for i, r := range regs {
		if r == p.Regulator {
			input = i
		}
	}
	if input < 0 {
		return nil, fmt.Errorf("%w: %s: %q does not regulate %q", ErrInvalidProperty, p.ID, p.Regulator, p.Target)
	}
	apply := func(args []*formula.Fol) *formula.Fol { return formula.FolUpdateFn(p.Target, args...) }
	if p.Kind == StaticRegulationMonotonic {
		return monotonicity(apply, len(regs), input, p.Sign), nil
	}
	return essentiality(apply, len(regs), input, p.Essential), nil
}

func (e *Encoder) fnInput(p StaticProperty) (*formula.Fol, error) {
	fn, ok := e.model.Function(p.Function)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown function %q", ErrInvalidProperty, p.ID, p.Function)
	}
	if p.Input < 0 || p.Input >= fn.Arity {
		return nil, fmt.Errorf("%w: %s: input %d out of range for %q", ErrInvalidProperty, p.ID, p.Input, p.Function)
	}
	var apply func(args []*formula.Fol) *formula.Fol
	switch {
	case fn.Expression != nil:
		for name := range fn.Expression.Functions() {
			if _, used := e.net.Parameter(name); !used {
				return formula.FolTrue(), nil
			}
		}
		apply = func(args []*formula.Fol) *formula.Fol { return exprToFol(fn.Expression, args) }
	default:
		if _, used := e.net.Parameter(fn.ID); !used {
			// Nothing in the network applies the symbol, so no color can
			// violate a constraint on it.
			return formula.FolTrue(), nil
		}
		apply = func(args []*formula.Fol) *formula.Fol { return formula.FolFn(fn.ID, args...) }
	}
	if p.Kind == StaticFnInputMonotonic {
		return monotonicity(apply, fn.Arity, p.Input, p.Sign), nil
	}
	return essentiality(apply, fn.Arity, p.Input, p.Essential), nil
}

// argsWith builds x_0..x_{n-1} with position i replaced by value and returns
// the names of the remaining variables.
func argsWith(n, i int, value bool) ([]*formula.Fol, []string) {
	args := make([]*formula.Fol, n)
	names := make([]string, 0, n)
	for j := 0; j < n; j++ {
		if j == i {
			if value {
				args[j] = formula.FolTrue()
			} else {
				args[j] = formula.FolFalse()
			}
			continue
		}
		name := "x_" + strconv.Itoa(j)
		args[j] = formula.FolVariable(name)
		names = append(names, name)
	}
	return args, names
}

// monotonicity encodes activation as ∀others: f(..0..) ⇒ f(..1..) and
// inhibition as the converse. Dual is neither.
func monotonicity(apply func([]*formula.Fol) *formula.Fol, arity, i int, sign network.Sign) *formula.Fol {
	lo, others := argsWith(arity, i, false)
	hi, _ := argsWith(arity, i, true)
	increasing := formula.ForallAll(others, formula.FolBin(network.OpImp, apply(lo), apply(hi)))
	decreasing := formula.ForallAll(others, formula.FolBin(network.OpImp, apply(hi), apply(lo)))
	switch sign {
	case network.SignActivation:
		return increasing
	case network.SignInhibition:
		return decreasing
	case network.SignDual:
		return formula.FolAnd(formula.FolNegation(increasing), formula.FolNegation(decreasing))
	default:
		return formula.FolTrue()
	}
}

// essentiality encodes ∃others: f(..0..) ⊕ f(..1..).
func essentiality(apply func([]*formula.Fol) *formula.Fol, arity, i int, ess network.Essentiality) *formula.Fol {
	lo, others := argsWith(arity, i, false)
	hi, _ := argsWith(arity, i, true)
	essential := formula.ExistsAll(others, formula.FolBin(network.OpXor, apply(lo), apply(hi)))
	switch ess {
	case network.EssentialTrue:
		return essential
	case network.EssentialFalse:
		return formula.FolNegation(essential)
	default:
		return formula.FolTrue()
	}
}

// exprToFol rewrites a function body over var0..varN into a formula with
// the given arguments.
func exprToFol(e *network.FnExpr, args []*formula.Fol) *formula.Fol {
	switch e.Kind {
	case network.ExprConst:
		if e.Value {
			return formula.FolTrue()
		}
		return formula.FolFalse()
	case network.ExprVar:
		for i, a := range args {
			if e.Name == network.ArgName(i) {
				return a
			}
		}
		return formula.FolFalse()
	case network.ExprApply:
		inner := make([]*formula.Fol, len(e.Args))
		for i, a := range e.Args {
			inner[i] = exprToFol(a, args)
		}
		return formula.FolFn(e.Name, inner...)
	case network.ExprNot:
		return formula.FolNegation(exprToFol(e.Left, args))
	default:
		return formula.FolBin(e.Op, exprToFol(e.Left, args), exprToFol(e.Right, args))
	}
}
