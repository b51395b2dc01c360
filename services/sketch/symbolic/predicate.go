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
	"fmt"

	"github.com/dalzilio/rudd"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// Predicate is a Boolean function over states, auxiliary variables and
// colors. Formula evaluators build predicates and project them back into
// ColorSet or VertexSet once all auxiliary variables are quantified.
type Predicate struct {
	ctx  *Context
	node rudd.Node
}

// True returns the constant true predicate.
func (c *Context) True() Predicate { return Predicate{ctx: c, node: c.sp.bdd.True()} }

// False returns the constant false predicate.
func (c *Context) False() Predicate { return Predicate{ctx: c, node: c.sp.bdd.False()} }

// StateVar returns the predicate "network variable i is true".
func (c *Context) StateVar(i int) Predicate {
	return Predicate{ctx: c, node: c.sp.bdd.Ithvar(i)}
}

// ExtraVar returns the predicate "auxiliary variable j is true".
func (c *Context) ExtraVar(j int) (Predicate, error) {
	if j < 0 || j >= c.extras {
		return Predicate{}, fmt.Errorf("%w: %d of %d", ErrExtraOutOfRange, j, c.extras)
	}
	return Predicate{ctx: c, node: c.sp.bdd.Ithvar(c.sp.extraVar(j))}, nil
}

// ApplyFn returns the predicate fn(args...) for a free function symbol.
func (c *Context) ApplyFn(fn string, args []Predicate) (Predicate, error) {
	nodes := make([]rudd.Node, len(args))
	for i, a := range args {
		nodes[i] = a.node
	}
	n, err := c.sp.apply(fn, nodes)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{ctx: c, node: n}, nil
}

// UpdateOf returns the update function of variable v with its regulators
// replaced by args, given in regulator order.
func (c *Context) UpdateOf(v int, args []Predicate) (Predicate, error) {
	net := c.sp.net
	regs := net.RegulatorNames(v)
	if len(args) != len(regs) {
		return Predicate{}, fmt.Errorf("%w: update of %s takes %d arguments, got %d",
			ErrArityMismatch, net.VarName(v), len(regs), len(args))
	}
	binding := make(map[string]rudd.Node, len(regs))
	for i, r := range regs {
		binding[r] = args[i].node
	}
	n, err := c.sp.eval(net.Update(v), binding)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{ctx: c, node: n}, nil
}

// EvalExpr translates expr. Variable names resolve through binding first
// and then to network state variables.
func (c *Context) EvalExpr(expr *network.FnExpr, binding map[string]Predicate) (Predicate, error) {
	nodes := make(map[string]rudd.Node, len(binding))
	for k, p := range binding {
		nodes[k] = p.node
	}
	n, err := c.sp.eval(expr, nodes)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{ctx: c, node: n}, nil
}

// And returns p ∧ o.
func (p Predicate) And(o Predicate) Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.and(p.node, o.node)}
}

// Or returns p ∨ o.
func (p Predicate) Or(o Predicate) Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.or(p.node, o.node)}
}

// Not returns ¬p.
func (p Predicate) Not() Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.bdd.Not(p.node)}
}

// Imp returns p ⇒ o.
func (p Predicate) Imp(o Predicate) Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.bdd.Apply(p.node, o.node, rudd.OPimp)}
}

// Iff returns p ⇔ o.
func (p Predicate) Iff(o Predicate) Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.bdd.Apply(p.node, o.node, rudd.OPbiimp)}
}

// Xor returns p ⊕ o.
func (p Predicate) Xor(o Predicate) Predicate {
	return Predicate{ctx: p.ctx, node: p.ctx.sp.bdd.Apply(p.node, o.node, rudd.OPxor)}
}

// ExistsExtra quantifies auxiliary variable j existentially.
func (p Predicate) ExistsExtra(j int) (Predicate, error) {
	if j < 0 || j >= p.ctx.extras {
		return Predicate{}, fmt.Errorf("%w: %d of %d", ErrExtraOutOfRange, j, p.ctx.extras)
	}
	sp := p.ctx.sp
	return Predicate{ctx: p.ctx, node: sp.exist(p.node, sp.bdd.Makeset([]int{sp.extraVar(j)}))}, nil
}

// ForallExtra quantifies auxiliary variable j universally.
func (p Predicate) ForallExtra(j int) (Predicate, error) {
	e, err := p.Not().ExistsExtra(j)
	if err != nil {
		return Predicate{}, err
	}
	return e.Not(), nil
}

// IsFalse reports whether the predicate is unsatisfiable.
func (p Predicate) IsFalse() bool { return p.ctx.sp.isFalse(p.node) }

// IsTrue reports whether the predicate is valid.
func (p Predicate) IsTrue() bool { return p.ctx.sp.isTrue(p.node) }

// Colors returns the colors for which some assignment of the remaining
// variables satisfies p.
func (p Predicate) Colors() ColorSet {
	sp := p.ctx.sp
	return ColorSet{ctx: p.ctx, node: sp.exist(p.node, sp.nonParamCube())}
}

// Vertices returns the colored states for which some assignment of the
// auxiliary variables satisfies p.
func (p Predicate) Vertices() VertexSet {
	sp := p.ctx.sp
	return VertexSet{ctx: p.ctx, node: sp.exist(p.node, sp.extraCube)}
}

// AsPredicate lifts a vertex set into a predicate.
func (v VertexSet) AsPredicate() Predicate { return Predicate{ctx: v.ctx, node: v.node} }

// AsPredicate lifts a color set into a predicate.
func (c ColorSet) AsPredicate() Predicate { return Predicate{ctx: c.ctx, node: c.node} }
