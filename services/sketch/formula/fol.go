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
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// FolKind identifies the node type of a Fol formula.
type FolKind int

const (
	FolConst FolKind = iota
	FolVar
	// FolApply applies a free function symbol of the network.
	FolApply
	// FolUpdate applies the update function of the network variable Name,
	// with arguments in regulator order.
	FolUpdate
	FolNot
	FolBinary
	FolExists
	FolForall
)

// Fol is a first-order formula over Boolean variables.
//
// For quantifiers Name is the bound variable and Left the body.
type Fol struct {
	Kind  FolKind
	Value bool
	Name  string
	Args  []*Fol
	Op    network.BinaryOp
	Left  *Fol
	Right *Fol
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func FolTrue() *Fol { return &Fol{Kind: FolConst, Value: true} }
func FolFalse() *Fol { return &Fol{Kind: FolConst} }
func FolVariable(x string) *Fol { return &Fol{Kind: FolVar, Name: x} }
func FolNegation(f *Fol) *Fol { return &Fol{Kind: FolNot, Left: f} }

// FolFn applies the function symbol fn.
func FolFn(fn string, args ...*Fol) *Fol {
	return &Fol{Kind: FolApply, Name: fn, Args: args}
}

// FolUpdateFn applies the update function of variable v.
func FolUpdateFn(v string, args ...*Fol) *Fol {
	return &Fol{Kind: FolUpdate, Name: v, Args: args}
}

// FolBin combines two formulas.
func FolBin(op network.BinaryOp, l, r *Fol) *Fol {
	return &Fol{Kind: FolBinary, Op: op, Left: l, Right: r}
}

// FolAnd folds a conjunction; empty is true.
func FolAnd(fs ...*Fol) *Fol { return folFold(network.OpAnd, FolTrue(), fs) }

// FolOr folds a disjunction; empty is false.
func FolOr(fs ...*Fol) *Fol { return folFold(network.OpOr, FolFalse(), fs) }

func folFold(op network.BinaryOp, empty *Fol, fs []*Fol) *Fol {
	if len(fs) == 0 {
		return empty
	}
	acc := fs[0]
	for _, f := range fs[1:] {
		acc = FolBin(op, acc, f)
	}
	return acc
}

// Exists binds x existentially in body.
func Exists(x string, body *Fol) *Fol { return &Fol{Kind: FolExists, Name: x, Left: body} }

// Forall binds x universally in body.
func Forall(x string, body *Fol) *Fol { return &Fol{Kind: FolForall, Name: x, Left: body} }

// ExistsAll binds every name in xs, outermost first.
func ExistsAll(xs []string, body *Fol) *Fol {
	for i := len(xs) - 1; i >= 0; i-- {
		body = Exists(xs[i], body)
	}
	return body
}

// ForallAll binds every name in xs, outermost first.
func ForallAll(xs []string, body *Fol) *Fol {
	for i := len(xs) - 1; i >= 0; i-- {
		body = Forall(xs[i], body)
	}
	return body
}

// -----------------------------------------------------------------------------
// Inspection
// -----------------------------------------------------------------------------

// String renders the formula.
func (f *Fol) String() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Kind {
	case FolConst:
		return strconv.FormatBool(f.Value)
	case FolVar:
		return f.Name
	case FolApply, FolUpdate:
		parts := make([]string, len(f.Args))
		for i, a := range f.Args {
			parts[i] = a.String()
		}
		name := f.Name
		if f.Kind == FolUpdate {
			name = "update:" + name
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
	case FolNot:
		return "!" + f.Left.String()
	case FolBinary:
		return fmt.Sprintf("(%s %s %s)", f.Left, f.Op, f.Right)
	case FolExists:
		return fmt.Sprintf("(exists %s: %s)", f.Name, f.Left)
	case FolForall:
		return fmt.Sprintf("(forall %s: %s)", f.Name, f.Left)
	default:
		return "<invalid>"
	}
}

// QuantifierDepth is the deepest nesting of quantifiers, which is the number
// of auxiliary variables the formula needs.
func (f *Fol) QuantifierDepth() int {
	if f == nil {
		return 0
	}
	best := 0
	for _, a := range f.Args {
		if d := a.QuantifierDepth(); d > best {
			best = d
		}
	}
	if d := f.Left.QuantifierDepth(); d > best {
		best = d
	}
	if d := f.Right.QuantifierDepth(); d > best {
		best = d
	}
	if f.Kind == FolExists || f.Kind == FolForall {
		best++
	}
	return best
}

// Functions returns the function symbols applied by the formula with their
// number of arguments.
func (f *Fol) Functions() map[string]int {
	out := make(map[string]int)
	f.walk(func(n *Fol) {
		if n.Kind == FolApply {
			out[n.Name] = len(n.Args)
		}
	})
	return out
}

// UpdatedVariables returns the variables whose update function is applied.
func (f *Fol) UpdatedVariables() map[string]int {
	out := make(map[string]int)
	f.walk(func(n *Fol) {
		if n.Kind == FolUpdate {
			out[n.Name] = len(n.Args)
		}
	})
	return out
}

func (f *Fol) walk(visit func(*Fol)) {
	if f == nil {
		return
	}
	visit(f)
	for _, a := range f.Args {
		a.walk(visit)
	}
	f.Left.walk(visit)
	f.Right.walk(visit)
}

// CheckClosed verifies every variable is bound by an enclosing quantifier.
func (f *Fol) CheckClosed() error {
	return f.checkClosed(map[string]int{})
}

func (f *Fol) checkClosed(bound map[string]int) error {
	if f == nil {
		return fmt.Errorf("%w: missing operand", ErrInvalidFormula)
	}
	switch f.Kind {
	case FolVar:
		if bound[f.Name] == 0 {
			return fmt.Errorf("%w: %q", ErrUnboundVariable, f.Name)
		}
	case FolExists, FolForall:
		bound[f.Name]++
		err := f.Left.checkClosed(bound)
		bound[f.Name]--
		return err
	case FolNot:
		return f.Left.checkClosed(bound)
	case FolBinary:
		if err := f.Left.checkClosed(bound); err != nil {
			return err
		}
		return f.Right.checkClosed(bound)
	}
	for _, a := range f.Args {
		if err := a.checkClosed(bound); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Serialization
// -----------------------------------------------------------------------------

type quantDoc struct {
	Var  string `yaml:"var" json:"var"`
	Body *Fol   `yaml:"body" json:"body"`
}

type folDoc struct {
	Const  *bool     `yaml:"const,omitempty" json:"const,omitempty"`
	Var    string    `yaml:"var,omitempty" json:"var,omitempty"`
	Fn     string    `yaml:"fn,omitempty" json:"fn,omitempty"`
	Update string    `yaml:"update,omitempty" json:"update,omitempty"`
	Args   []*Fol    `yaml:"args,omitempty" json:"args,omitempty"`
	Not    *Fol      `yaml:"not,omitempty" json:"not,omitempty"`
	And    []*Fol    `yaml:"and,omitempty" json:"and,omitempty"`
	Or     []*Fol    `yaml:"or,omitempty" json:"or,omitempty"`
	Imp    []*Fol    `yaml:"imp,omitempty" json:"imp,omitempty"`
	Iff    []*Fol    `yaml:"iff,omitempty" json:"iff,omitempty"`
	Xor    []*Fol    `yaml:"xor,omitempty" json:"xor,omitempty"`
	Exists *quantDoc `yaml:"exists,omitempty" json:"exists,omitempty"`
	Forall *quantDoc `yaml:"forall,omitempty" json:"forall,omitempty"`
}

func (d folDoc) build() (*Fol, error) {
	var out []*Fol
	if d.Const != nil {
		out = append(out, &Fol{Kind: FolConst, Value: *d.Const})
	}
	if d.Var != "" {
		out = append(out, FolVariable(d.Var))
	}
	if d.Fn != "" {
		out = append(out, FolFn(d.Fn, d.Args...))
	}
	if d.Update != "" {
		out = append(out, FolUpdateFn(d.Update, d.Args...))
	}
	if d.Not != nil {
		out = append(out, FolNegation(d.Not))
	}
	if d.And != nil {
		out = append(out, FolAnd(d.And...))
	}
	if d.Or != nil {
		out = append(out, FolOr(d.Or...))
	}
	for _, pair := range []struct {
		op  network.BinaryOp
		ops []*Fol
	}{{network.OpImp, d.Imp}, {network.OpIff, d.Iff}, {network.OpXor, d.Xor}} {
		if pair.ops == nil {
			continue
		}
		if len(pair.ops) != 2 {
			return nil, fmt.Errorf("%w: %q needs exactly two operands", ErrInvalidFormula, pair.op)
		}
		out = append(out, FolBin(pair.op, pair.ops[0], pair.ops[1]))
	}
	for _, q := range []struct {
		kind FolKind
		doc  *quantDoc
	}{{FolExists, d.Exists}, {FolForall, d.Forall}} {
		if q.doc == nil {
			continue
		}
		if q.doc.Var == "" || q.doc.Body == nil {
			return nil, fmt.Errorf("%w: quantifier needs var and body", ErrInvalidFormula)
		}
		out = append(out, &Fol{Kind: q.kind, Name: q.doc.Var, Left: q.doc.Body})
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one node kind, got %d", ErrInvalidFormula, len(out))
	}
	return out[0], nil
}

func (f *Fol) doc() any {
	switch f.Kind {
	case FolConst:
		return f.Value
	case FolVar:
		return f.Name
	case FolApply:
		return folDoc{Fn: f.Name, Args: f.Args}
	case FolUpdate:
		return folDoc{Update: f.Name, Args: f.Args}
	case FolNot:
		return folDoc{Not: f.Left}
	case FolExists:
		return folDoc{Exists: &quantDoc{Var: f.Name, Body: f.Left}}
	case FolForall:
		return folDoc{Forall: &quantDoc{Var: f.Name, Body: f.Left}}
	default:
		ops := []*Fol{f.Left, f.Right}
		switch f.Op {
		case network.OpAnd:
			return folDoc{And: ops}
		case network.OpOr:
			return folDoc{Or: ops}
		case network.OpImp:
			return folDoc{Imp: ops}
		case network.OpIff:
			return folDoc{Iff: ops}
		default:
			return folDoc{Xor: ops}
		}
	}
}

func folScalar(s string) *Fol {
	switch strings.ToLower(s) {
	case "true":
		return FolTrue()
	case "false":
		return FolFalse()
	}
	return FolVariable(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Fol) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = *folScalar(node.Value)
		return nil
	}
	var d folDoc
	if err := node.Decode(&d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormula, err)
	}
	built, err := d.build()
	if err != nil {
		return err
	}
	*f = *built
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f *Fol) MarshalYAML() (any, error) { return f.doc(), nil }

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fol) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Fol{Kind: FolConst, Value: b}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = *folScalar(s)
		return nil
	}
	var d folDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormula, err)
	}
	built, err := d.build()
	if err != nil {
		return err
	}
	*f = *built
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f *Fol) MarshalJSON() ([]byte, error) { return json.Marshal(f.doc()) }
