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
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExprKind identifies the node type of an FnExpr.
type ExprKind int

const (
	// ExprConst is a Boolean constant.
	ExprConst ExprKind = iota

	// ExprVar references a network variable (or a function argument placeholder).
	ExprVar

	// ExprApply applies an uninterpreted function symbol to arguments.
	ExprApply

	// ExprNot negates its operand.
	ExprNot

	// ExprBinary combines two operands with a BinaryOp.
	ExprBinary
)

// BinaryOp is a binary Boolean connective.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpImp
	OpIff
	OpXor
)

// String returns the infix symbol of the operator.
func (op BinaryOp) String() string {
	switch op {
	case OpAnd:
		return "&"
	case OpOr:
		return "|"
	case OpImp:
		return "=>"
	case OpIff:
		return "<=>"
	case OpXor:
		return "^"
	default:
		return "?"
	}
}

// FnExpr is an update function expression tree.
//
// Expressions are immutable once built; rewriting helpers return new trees
// and share untouched subtrees.
type FnExpr struct {
	Kind  ExprKind
	Value bool
	// Name is the variable name for ExprVar and the function symbol for ExprApply.
	Name string
	Args []*FnExpr
	Op   BinaryOp
	// Left holds the operand of ExprNot and the left operand of ExprBinary.
	Left  *FnExpr
	Right *FnExpr
}

// Const builds a constant expression.
func Const(v bool) *FnExpr { return &FnExpr{Kind: ExprConst, Value: v} }

// Var builds a variable reference.
func Var(name string) *FnExpr { return &FnExpr{Kind: ExprVar, Name: name} }

// Apply builds an application of function symbol fn.
func Apply(fn string, args ...*FnExpr) *FnExpr {
	return &FnExpr{Kind: ExprApply, Name: fn, Args: args}
}

// Not builds a negation.
func Not(e *FnExpr) *FnExpr { return &FnExpr{Kind: ExprNot, Left: e} }

// Binary builds a binary expression.
func Binary(op BinaryOp, l, r *FnExpr) *FnExpr {
	return &FnExpr{Kind: ExprBinary, Op: op, Left: l, Right: r}
}

// And folds operands with conjunction. An empty list is true.
func And(es ...*FnExpr) *FnExpr { return fold(OpAnd, true, es) }

// Or folds operands with disjunction. An empty list is false.
func Or(es ...*FnExpr) *FnExpr { return fold(OpOr, false, es) }

func fold(op BinaryOp, empty bool, es []*FnExpr) *FnExpr {
	if len(es) == 0 {
		return Const(empty)
	}
	acc := es[0]
	for _, e := range es[1:] {
		acc = Binary(op, acc, e)
	}
	return acc
}

// String renders the expression in the usual infix notation.
func (e *FnExpr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprConst:
		return strconv.FormatBool(e.Value)
	case ExprVar:
		return e.Name
	case ExprApply:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
	case ExprNot:
		return "!" + e.Left.String()
	case ExprBinary:
		return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
	default:
		return "<invalid>"
	}
}

// Variables returns the set of variable names referenced by the expression.
func (e *FnExpr) Variables() map[string]struct{} {
	out := make(map[string]struct{})
	e.walk(func(n *FnExpr) {
		if n.Kind == ExprVar {
			out[n.Name] = struct{}{}
		}
	})
	return out
}

// Functions returns the function symbols used by the expression with the
// arity of their first use.
func (e *FnExpr) Functions() map[string]int {
	out := make(map[string]int)
	e.walk(func(n *FnExpr) {
		if n.Kind == ExprApply {
			if _, ok := out[n.Name]; !ok {
				out[n.Name] = len(n.Args)
			}
		}
	})
	return out
}

func (e *FnExpr) walk(visit func(*FnExpr)) {
	if e == nil {
		return
	}
	visit(e)
	for _, a := range e.Args {
		a.walk(visit)
	}
	e.Left.walk(visit)
	e.Right.walk(visit)
}

// Substitute replaces variable references according to mapping.
// Variables missing from mapping are kept.
func (e *FnExpr) Substitute(mapping map[string]*FnExpr) *FnExpr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprConst:
		return e
	case ExprVar:
		if r, ok := mapping[e.Name]; ok {
			return r
		}
		return e
	case ExprApply:
		args := make([]*FnExpr, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.Substitute(mapping)
		}
		return Apply(e.Name, args...)
	case ExprNot:
		return Not(e.Left.Substitute(mapping))
	default:
		return Binary(e.Op, e.Left.Substitute(mapping), e.Right.Substitute(mapping))
	}
}

// Inline replaces every application of fn by body, where body refers to its
// arguments as ArgName(0), ArgName(1), ...
func (e *FnExpr) Inline(fn string, body *FnExpr) *FnExpr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprConst, ExprVar:
		return e
	case ExprApply:
		args := make([]*FnExpr, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.Inline(fn, body)
		}
		if e.Name != fn {
			return Apply(e.Name, args...)
		}
		mapping := make(map[string]*FnExpr, len(args))
		for i, a := range args {
			mapping[ArgName(i)] = a
		}
		return body.Substitute(mapping)
	case ExprNot:
		return Not(e.Left.Inline(fn, body))
	default:
		return Binary(e.Op, e.Left.Inline(fn, body), e.Right.Inline(fn, body))
	}
}

// ArgName is the placeholder used for the i-th argument inside a function body.
func ArgName(i int) string { return "var" + strconv.Itoa(i) }

// -----------------------------------------------------------------------------
// Serialization
// -----------------------------------------------------------------------------

// exprDoc is the document form of an expression: exactly one field is set.
type exprDoc struct {
	Const *bool     `yaml:"const,omitempty" json:"const,omitempty"`
	Var   string    `yaml:"var,omitempty" json:"var,omitempty"`
	Fn    string    `yaml:"fn,omitempty" json:"fn,omitempty"`
	Args  []*FnExpr `yaml:"args,omitempty" json:"args,omitempty"`
	Not   *FnExpr   `yaml:"not,omitempty" json:"not,omitempty"`
	And   []*FnExpr `yaml:"and,omitempty" json:"and,omitempty"`
	Or    []*FnExpr `yaml:"or,omitempty" json:"or,omitempty"`
	Imp   []*FnExpr `yaml:"imp,omitempty" json:"imp,omitempty"`
	Iff   []*FnExpr `yaml:"iff,omitempty" json:"iff,omitempty"`
	Xor   []*FnExpr `yaml:"xor,omitempty" json:"xor,omitempty"`
}

func (d exprDoc) build() (*FnExpr, error) {
	set := 0
	var out *FnExpr
	if d.Const != nil {
		set++
		out = Const(*d.Const)
	}
	if d.Var != "" {
		set++
		out = Var(d.Var)
	}
	if d.Fn != "" {
		set++
		out = Apply(d.Fn, d.Args...)
	}
	if d.Not != nil {
		set++
		out = Not(d.Not)
	}
	if d.And != nil {
		set++
		out = And(d.And...)
	}
	if d.Or != nil {
		set++
		out = Or(d.Or...)
	}
	for _, pair := range []struct {
		op  BinaryOp
		ops []*FnExpr
	}{{OpImp, d.Imp}, {OpIff, d.Iff}, {OpXor, d.Xor}} {
		if pair.ops == nil {
			continue
		}
		set++
		if len(pair.ops) != 2 {
			return nil, fmt.Errorf("%w: %q needs exactly two operands", ErrInvalidExpression, pair.op)
		}
		out = Binary(pair.op, pair.ops[0], pair.ops[1])
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: expected exactly one node kind, got %d", ErrInvalidExpression, set)
	}
	return out, nil
}

func (e *FnExpr) doc() any {
	switch e.Kind {
	case ExprConst:
		return e.Value
	case ExprVar:
		return e.Name
	case ExprApply:
		return exprDoc{Fn: e.Name, Args: e.Args}
	case ExprNot:
		return exprDoc{Not: e.Left}
	default:
		ops := []*FnExpr{e.Left, e.Right}
		switch e.Op {
		case OpAnd:
			return exprDoc{And: ops}
		case OpOr:
			return exprDoc{Or: ops}
		case OpImp:
			return exprDoc{Imp: ops}
		case OpIff:
			return exprDoc{Iff: ops}
		default:
			return exprDoc{Xor: ops}
		}
	}
}

// scalarExpr interprets a bare scalar: Boolean literals become constants and
// anything else is a variable name.
func scalarExpr(s string) *FnExpr {
	switch strings.ToLower(s) {
	case "true", "1":
		return Const(true)
	case "false", "0":
		return Const(false)
	}
	return Var(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *FnExpr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = *scalarExpr(node.Value)
		return nil
	}
	var d exprDoc
	if err := node.Decode(&d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	built, err := d.build()
	if err != nil {
		return err
	}
	*e = *built
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e *FnExpr) MarshalYAML() (any, error) {
	return e.doc(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *FnExpr) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*e = *Const(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = *scalarExpr(s)
		return nil
	}
	var d exprDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	built, err := d.build()
	if err != nil {
		return err
	}
	*e = *built
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *FnExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.doc())
}
