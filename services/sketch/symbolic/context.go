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
	"math/big"

	"github.com/dalzilio/rudd"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

const (
	defaultNodeSize  = 1 << 16
	defaultCacheSize = 1 << 14
)

// paramLayout locates the truth table of one parameter.
type paramLayout struct {
	name   string
	arity  int
	offset int // first BDD variable of the table
}

func (p paramLayout) rows() int { return 1 << p.arity }

// space is the manager shared by every Context of one family.
type space struct {
	bdd       *rudd.BDD
	net       *network.Network
	numStates int
	maxExtra  int
	params    []paramLayout
	paramIdx  map[string]int
	paramBits int
	total     int

	stateCube rudd.Node
	varCubes  []rudd.Node
	extraCube rudd.Node
	paramCube rudd.Node

	canonical *Context
}

// Context gives access to a BDD manager laid out for one network.
//
// Description:
//
//	A Context exposes the first NumExtra auxiliary variables of its family.
//	The canonical context exposes none. All contexts of a family can
//	exchange sets freely; sets from different families cannot be mixed.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Context struct {
	sp     *space
	extras int
}

// NewContext creates a context family for net reserving maxExtra auxiliary
// variables and returns the context exposing all of them.
//
// Inputs:
//
//	net - The concrete network. Must not be nil.
//	maxExtra - Number of auxiliary variables needed by any formula.
//
// Outputs:
//
//	*Context - The widest context of the family.
//	error - Non-nil if the BDD manager cannot be created.
func NewContext(net *network.Network, maxExtra int) (*Context, error) {
	if maxExtra < 0 {
		maxExtra = 0
	}
	sp := &space{
		net:       net,
		numStates: net.NumVars(),
		maxExtra:  maxExtra,
		paramIdx:  make(map[string]int),
	}
	offset := sp.numStates + maxExtra
	for _, p := range net.Parameters() {
		layout := paramLayout{name: p.Name, arity: p.Arity, offset: offset}
		sp.paramIdx[p.Name] = len(sp.params)
		sp.params = append(sp.params, layout)
		offset += layout.rows()
		sp.paramBits += layout.rows()
	}
	sp.total = offset

	bdd, err := rudd.New(sp.total, rudd.Nodesize(defaultNodeSize), rudd.Cachesize(defaultCacheSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBDD, err)
	}
	sp.bdd = bdd

	states := make([]int, sp.numStates)
	sp.varCubes = make([]rudd.Node, sp.numStates)
	for i := range states {
		states[i] = i
		sp.varCubes[i] = bdd.Makeset([]int{i})
	}
	sp.stateCube = sp.cube(states)
	sp.extraCube = sp.cube(sp.extraRange(0, maxExtra))
	sp.paramCube = sp.cube(sp.paramVars())

	sp.canonical = &Context{sp: sp}
	return &Context{sp: sp, extras: maxExtra}, nil
}

// Network returns the network the context was laid out for.
func (c *Context) Network() *network.Network { return c.sp.net }

// NumExtra returns the number of auxiliary variables this context exposes.
func (c *Context) NumExtra() int { return c.extras }

// Derive returns a context of the same family exposing k auxiliary variables.
func (c *Context) Derive(k int) (*Context, error) {
	if k < 0 || k > c.sp.maxExtra {
		return nil, fmt.Errorf("%w: %d requested, %d reserved", ErrExtraOutOfRange, k, c.sp.maxExtra)
	}
	if k == 0 {
		return c.sp.canonical, nil
	}
	return &Context{sp: c.sp, extras: k}, nil
}

// Canonical returns the context of the family with no auxiliary variables.
func (c *Context) Canonical() *Context { return c.sp.canonical }

// Compatible reports whether both contexts belong to the same family.
func (c *Context) Compatible(o *Context) bool {
	return c != nil && o != nil && c.sp == o.sp
}

// NumParameterVars returns the number of BDD variables encoding colors.
func (c *Context) NumParameterVars() int { return c.sp.paramBits }

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

func (sp *space) extraVar(j int) int { return sp.numStates + j }

func (sp *space) extraRange(from, to int) []int {
	out := make([]int, 0, to-from)
	for j := from; j < to; j++ {
		out = append(out, sp.extraVar(j))
	}
	return out
}

func (sp *space) paramVars() []int {
	out := make([]int, 0, sp.paramBits)
	for _, p := range sp.params {
		for r := 0; r < p.rows(); r++ {
			out = append(out, p.offset+r)
		}
	}
	return out
}

func (sp *space) tableVars(p paramLayout) []int {
	out := make([]int, p.rows())
	for r := range out {
		out[r] = p.offset + r
	}
	return out
}

// nonParamCube quantifies everything a color does not depend on.
func (sp *space) nonParamCube() rudd.Node {
	vars := make([]int, 0, sp.numStates+sp.maxExtra)
	for i := 0; i < sp.numStates+sp.maxExtra; i++ {
		vars = append(vars, i)
	}
	return sp.cube(vars)
}

// exceptTablesCube quantifies every parameter variable not in keep.
func (sp *space) exceptTablesCube(keep map[string]struct{}) rudd.Node {
	var vars []int
	for _, p := range sp.params {
		if _, ok := keep[p.name]; ok {
			continue
		}
		vars = append(vars, sp.tableVars(p)...)
	}
	return sp.cube(vars)
}

// cube is Makeset with the empty set mapped to true.
func (sp *space) cube(vars []int) rudd.Node {
	if len(vars) == 0 {
		return sp.bdd.True()
	}
	return sp.bdd.Makeset(vars)
}

func (sp *space) isFalse(n rudd.Node) bool { return *n == *sp.bdd.False() }

func (sp *space) isTrue(n rudd.Node) bool { return *n == *sp.bdd.True() }

func (sp *space) same(a, b rudd.Node) bool { return *a == *b }

func (sp *space) and(n ...rudd.Node) rudd.Node { return sp.bdd.And(n...) }

func (sp *space) or(n ...rudd.Node) rudd.Node { return sp.bdd.Or(n...) }

// minus is a AND NOT b. rudd's OPdiff shortcut returns b for an empty a.
func (sp *space) minus(a, b rudd.Node) rudd.Node { return sp.bdd.And(a, sp.bdd.Not(b)) }

// exist quantifies cube out of n. An empty cube (true) is the identity;
// rudd rejects it as a varset.
func (sp *space) exist(n, cube rudd.Node) rudd.Node {
	if sp.isTrue(cube) {
		return n
	}
	return sp.bdd.Exist(n, cube)
}

// andExist is exist(a AND b, cube) with the same empty cube handling.
func (sp *space) andExist(cube, a, b rudd.Node) rudd.Node {
	if sp.isTrue(cube) {
		return sp.and(a, b)
	}
	return sp.bdd.AndExist(cube, a, b)
}

// count returns Satcount(n) divided by 2^free.
func (sp *space) count(n rudd.Node, free int) *big.Int {
	total := sp.bdd.Satcount(n)
	if free <= 0 {
		return total
	}
	return new(big.Int).Rsh(total, uint(free))
}

// apply encodes fn(args) as a decision tree over the arguments ending in the
// table variable of the selected row. Bit i of the row index is args[i].
func (sp *space) apply(fn string, args []rudd.Node) (rudd.Node, error) {
	idx, ok := sp.paramIdx[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, fn)
	}
	p := sp.params[idx]
	if len(args) != p.arity {
		return nil, fmt.Errorf("%w: %q takes %d arguments, got %d", ErrArityMismatch, fn, p.arity, len(args))
	}
	var build func(i, row int) rudd.Node
	build = func(i, row int) rudd.Node {
		if i == len(args) {
			return sp.bdd.Ithvar(p.offset + row)
		}
		return sp.bdd.Ite(args[i], build(i+1, row|1<<i), build(i+1, row))
	}
	return build(0, 0), nil
}

// eval translates an update expression. Variables resolve through binding
// first and fall back to network state variables.
func (sp *space) eval(e *network.FnExpr, binding map[string]rudd.Node) (rudd.Node, error) {
	switch e.Kind {
	case network.ExprConst:
		if e.Value {
			return sp.bdd.True(), nil
		}
		return sp.bdd.False(), nil
	case network.ExprVar:
		if n, ok := binding[e.Name]; ok {
			return n, nil
		}
		if i, ok := sp.net.VarIndex(e.Name); ok {
			return sp.bdd.Ithvar(i), nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnboundVariable, e.Name)
	case network.ExprApply:
		args := make([]rudd.Node, len(e.Args))
		for i, a := range e.Args {
			n, err := sp.eval(a, binding)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		return sp.apply(e.Name, args)
	case network.ExprNot:
		n, err := sp.eval(e.Left, binding)
		if err != nil {
			return nil, err
		}
		return sp.bdd.Not(n), nil
	default:
		l, err := sp.eval(e.Left, binding)
		if err != nil {
			return nil, err
		}
		r, err := sp.eval(e.Right, binding)
		if err != nil {
			return nil, err
		}
		return sp.bdd.Apply(l, r, binaryOperator(e.Op)), nil
	}
}

func binaryOperator(op network.BinaryOp) rudd.Operator {
	switch op {
	case network.OpAnd:
		return rudd.OPand
	case network.OpOr:
		return rudd.OPor
	case network.OpImp:
		return rudd.OPimp
	case network.OpIff:
		return rudd.OPbiimp
	default:
		return rudd.OPxor
	}
}
