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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// ProgressFunc receives short human-readable progress messages.
type ProgressFunc func(message string)

// Evaluator computes the colored states satisfying a CTL formula.
//
// named maps wildcard names to precomputed sets. progress may be nil.
type Evaluator interface {
	Evaluate(f *Ctl, g *symbolic.Graph, named map[string]symbolic.VertexSet, progress ProgressFunc) (symbolic.VertexSet, error)
}

// FOLEvaluator computes the colors satisfying a closed FOL formula.
type FOLEvaluator interface {
	EvaluateFOL(f *Fol, g *symbolic.Graph, progress ProgressFunc) (symbolic.ColorSet, error)
}

// SymbolicEvaluator implements Evaluator and FOLEvaluator with fixpoint
// iteration over symbolic sets.
//
// Thread Safety:
//
//	Stateless apart from its configuration; the graphs it evaluates are not
//	thread-safe.
type SymbolicEvaluator struct {
	logger    *slog.Logger
	interrupt func() error
}

// NewSymbolicEvaluator creates an evaluator.
//
// Inputs:
//
//	logger - Logger for debug output. Nil uses slog.Default().
//	interrupt - Polled once per fixpoint iteration; a non-nil error aborts
//	  the evaluation and is returned as is. May be nil.
func NewSymbolicEvaluator(logger *slog.Logger, interrupt func() error) *SymbolicEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolicEvaluator{
		logger:    logger.With(slog.String("component", "formula_evaluator")),
		interrupt: interrupt,
	}
}

// Evaluate implements Evaluator.
func (e *SymbolicEvaluator) Evaluate(
	f *Ctl,
	g *symbolic.Graph,
	named map[string]symbolic.VertexSet,
	progress ProgressFunc,
) (symbolic.VertexSet, error) {
	if err := f.Check(); err != nil {
		return symbolic.VertexSet{}, err
	}
	r := &ctlRun{
		e:        e,
		g:        g,
		named:    named,
		progress: progress,
		unit:     g.UnitVertices(),
	}
	e.logger.Debug("evaluating CTL formula", slog.String("formula", f.String()))
	return r.eval(f)
}

// EvaluateFOL implements FOLEvaluator.
func (e *SymbolicEvaluator) EvaluateFOL(f *Fol, g *symbolic.Graph, progress ProgressFunc) (symbolic.ColorSet, error) {
	if err := f.CheckClosed(); err != nil {
		return symbolic.ColorSet{}, err
	}
	ctx := g.Context()
	if need := f.QuantifierDepth(); need > ctx.NumExtra() {
		return symbolic.ColorSet{}, fmt.Errorf("%w: formula needs %d auxiliary variables, context has %d",
			symbolic.ErrExtraOutOfRange, need, ctx.NumExtra())
	}
	e.logger.Debug("evaluating FOL formula", slog.String("formula", f.String()))
	p, err := e.evalFOL(ctx, f, map[string]int{}, 0)
	if err != nil {
		return symbolic.ColorSet{}, err
	}
	if progress != nil {
		progress("evaluated first-order formula")
	}
	return p.Colors().Intersect(g.UnitColors()), nil
}

func (e *SymbolicEvaluator) evalFOL(ctx *symbolic.Context, f *Fol, env map[string]int, depth int) (symbolic.Predicate, error) {
	switch f.Kind {
	case FolConst:
		if f.Value {
			return ctx.True(), nil
		}
		return ctx.False(), nil
	case FolVar:
		j, ok := env[f.Name]
		if !ok {
			return symbolic.Predicate{}, fmt.Errorf("%w: %q", ErrUnboundVariable, f.Name)
		}
		return ctx.ExtraVar(j)
	case FolApply, FolUpdate:
		args := make([]symbolic.Predicate, len(f.Args))
		for i, a := range f.Args {
			p, err := e.evalFOL(ctx, a, env, depth)
			if err != nil {
				return symbolic.Predicate{}, err
			}
			args[i] = p
		}
		if f.Kind == FolApply {
			return ctx.ApplyFn(f.Name, args)
		}
		v, ok := ctx.Network().VarIndex(f.Name)
		if !ok {
			return symbolic.Predicate{}, fmt.Errorf("%w: update of %q", ErrUnknownProposition, f.Name)
		}
		return ctx.UpdateOf(v, args)
	case FolNot:
		p, err := e.evalFOL(ctx, f.Left, env, depth)
		if err != nil {
			return symbolic.Predicate{}, err
		}
		return p.Not(), nil
	case FolBinary:
		l, err := e.evalFOL(ctx, f.Left, env, depth)
		if err != nil {
			return symbolic.Predicate{}, err
		}
		r, err := e.evalFOL(ctx, f.Right, env, depth)
		if err != nil {
			return symbolic.Predicate{}, err
		}
		return combinePredicates(f.Op, l, r), nil
	case FolExists, FolForall:
		prev, shadowed := env[f.Name]
		env[f.Name] = depth
		body, err := e.evalFOL(ctx, f.Left, env, depth+1)
		if shadowed {
			env[f.Name] = prev
		} else {
			delete(env, f.Name)
		}
		if err != nil {
			return symbolic.Predicate{}, err
		}
		if f.Kind == FolExists {
			return body.ExistsExtra(depth)
		}
		return body.ForallExtra(depth)
	default:
		return symbolic.Predicate{}, fmt.Errorf("%w: unknown node kind %d", ErrInvalidFormula, f.Kind)
	}
}

// -----------------------------------------------------------------------------
// CTL
// -----------------------------------------------------------------------------

type ctlRun struct {
	e        *SymbolicEvaluator
	g        *symbolic.Graph
	named    map[string]symbolic.VertexSet
	progress ProgressFunc

	unit     symbolic.VertexSet
	fixed    symbolic.VertexSet
	hasFixed bool
}

func (r *ctlRun) eval(f *Ctl) (symbolic.VertexSet, error) {
	switch f.Kind {
	case CtlConst:
		if f.Value {
			return r.unit, nil
		}
		return r.g.EmptyVertices(), nil
	case CtlProp:
		v, ok := r.g.Network().VarIndex(f.Name)
		if !ok {
			return symbolic.VertexSet{}, fmt.Errorf("%w: %q", ErrUnknownProposition, f.Name)
		}
		return r.g.Subspace(map[int]bool{v: true}), nil
	case CtlNamed:
		s, ok := r.named[f.Name]
		if !ok {
			return symbolic.VertexSet{}, fmt.Errorf("%w: %q", ErrUnknownNamedSet, f.Name)
		}
		return s.Intersect(r.unit), nil
	case CtlBinary, CtlEU, CtlAU:
		l, err := r.eval(f.Left)
		if err != nil {
			return symbolic.VertexSet{}, err
		}
		rt, err := r.eval(f.Right)
		if err != nil {
			return symbolic.VertexSet{}, err
		}
		switch f.Kind {
		case CtlEU:
			return r.lfp("EU", rt, func(z symbolic.VertexSet) symbolic.VertexSet {
				return l.Intersect(r.ex(z))
			})
		case CtlAU:
			return r.lfp("AU", rt, func(z symbolic.VertexSet) symbolic.VertexSet {
				return l.Intersect(r.ax(z))
			})
		}
		return combineVertices(f.Op, r.unit, l, rt), nil
	}

	x, err := r.eval(f.Left)
	if err != nil {
		return symbolic.VertexSet{}, err
	}
	switch f.Kind {
	case CtlNot:
		return r.unit.Minus(x), nil
	case CtlEX:
		return r.ex(x), nil
	case CtlAX:
		return r.ax(x), nil
	case CtlEF:
		return r.lfp("EF", x, r.g.Pre)
	case CtlAF:
		return r.lfp("AF", x, r.ax)
	case CtlEG:
		return r.gfp("EG", x, r.ex)
	case CtlAG:
		ef, err := r.lfp("EF", r.unit.Minus(x), r.g.Pre)
		if err != nil {
			return symbolic.VertexSet{}, err
		}
		return r.unit.Minus(ef), nil
	case CtlSomeState:
		return r.unit.IntersectColors(x.Colors()), nil
	case CtlAllStates:
		bad := r.unit.Minus(x).Colors()
		return r.unit.MinusColors(bad), nil
	default:
		return symbolic.VertexSet{}, fmt.Errorf("%w: unknown node kind %d", ErrInvalidFormula, f.Kind)
	}
}

func (r *ctlRun) fixedPoints() symbolic.VertexSet {
	if !r.hasFixed {
		r.fixed = r.g.FixedPoints()
		r.hasFixed = true
	}
	return r.fixed
}

// ex treats fixed points as having a self-loop.
func (r *ctlRun) ex(x symbolic.VertexSet) symbolic.VertexSet {
	return r.g.Pre(x).Union(x.Intersect(r.fixedPoints()))
}

func (r *ctlRun) ax(x symbolic.VertexSet) symbolic.VertexSet {
	return r.unit.Minus(r.ex(r.unit.Minus(x)))
}

// lfp computes μZ. base ∪ step(Z).
func (r *ctlRun) lfp(name string, base symbolic.VertexSet, step func(symbolic.VertexSet) symbolic.VertexSet) (symbolic.VertexSet, error) {
	z := base
	for i := 1; ; i++ {
		if err := r.poll(); err != nil {
			return symbolic.VertexSet{}, err
		}
		next := z.Union(step(z))
		if next.Equals(z) {
			r.report(name, i)
			return z, nil
		}
		z = next
	}
}

// gfp computes νZ. base ∩ step(Z).
func (r *ctlRun) gfp(name string, base symbolic.VertexSet, step func(symbolic.VertexSet) symbolic.VertexSet) (symbolic.VertexSet, error) {
	z := base
	for i := 1; ; i++ {
		if err := r.poll(); err != nil {
			return symbolic.VertexSet{}, err
		}
		next := base.Intersect(step(z))
		if next.Equals(z) {
			r.report(name, i)
			return z, nil
		}
		z = next
	}
}

func (r *ctlRun) poll() error {
	if r.e.interrupt == nil {
		return nil
	}
	return r.e.interrupt()
}

func (r *ctlRun) report(name string, iterations int) {
	if r.progress != nil {
		r.progress(fmt.Sprintf("%s fixpoint converged after %d iterations", name, iterations))
	}
}

func combineVertices(op network.BinaryOp, unit, l, r symbolic.VertexSet) symbolic.VertexSet {
	switch op {
	case network.OpAnd:
		return l.Intersect(r)
	case network.OpOr:
		return l.Union(r)
	case network.OpImp:
		return unit.Minus(l).Union(r)
	case network.OpIff:
		both := l.Intersect(r)
		neither := unit.Minus(l.Union(r))
		return both.Union(neither)
	default:
		return l.Minus(r).Union(r.Minus(l))
	}
}

func combinePredicates(op network.BinaryOp, l, r symbolic.Predicate) symbolic.Predicate {
	switch op {
	case network.OpAnd:
		return l.And(r)
	case network.OpOr:
		return l.Or(r)
	case network.OpImp:
		return l.Imp(r)
	case network.OpIff:
		return l.Iff(r)
	default:
		return l.Xor(r)
	}
}
