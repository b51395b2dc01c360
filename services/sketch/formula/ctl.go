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

// CtlKind identifies the node type of a Ctl formula.
type CtlKind int

const (
	CtlConst CtlKind = iota
	// CtlProp is true in states where network variable Name is true.
	CtlProp
	// CtlNamed refers to a set supplied by the caller under Name.
	CtlNamed
	CtlNot
	CtlBinary
	CtlEX
	CtlAX
	CtlEF
	CtlAF
	CtlEG
	CtlAG
	CtlEU
	CtlAU
	// CtlSomeState holds everywhere for colors where Left holds in some state.
	CtlSomeState
	// CtlAllStates holds everywhere for colors where Left holds in every state.
	CtlAllStates
)

var ctlUnaryNames = map[CtlKind]string{
	CtlEX: "EX", CtlAX: "AX", CtlEF: "EF", CtlAF: "AF", CtlEG: "EG", CtlAG: "AG",
	CtlSomeState: "some_state", CtlAllStates: "all_states",
}

// Ctl is a CTL formula. Unary operators use Left; EU and AU read
// "Left until Right".
type Ctl struct {
	Kind  CtlKind
	Value bool
	Name  string
	Op    network.BinaryOp
	Left  *Ctl
	Right *Ctl
}

func CtlTrue() *Ctl { return &Ctl{Kind: CtlConst, Value: true} }
func CtlFalse() *Ctl { return &Ctl{Kind: CtlConst} }
func Prop(v string) *Ctl { return &Ctl{Kind: CtlProp, Name: v} }
func Named(name string) *Ctl { return &Ctl{Kind: CtlNamed, Name: name} }
func CtlNegation(f *Ctl) *Ctl { return &Ctl{Kind: CtlNot, Left: f} }
func EX(f *Ctl) *Ctl { return &Ctl{Kind: CtlEX, Left: f} }
func AX(f *Ctl) *Ctl { return &Ctl{Kind: CtlAX, Left: f} }
func EF(f *Ctl) *Ctl { return &Ctl{Kind: CtlEF, Left: f} }
func AF(f *Ctl) *Ctl { return &Ctl{Kind: CtlAF, Left: f} }
func EG(f *Ctl) *Ctl { return &Ctl{Kind: CtlEG, Left: f} }
func AG(f *Ctl) *Ctl { return &Ctl{Kind: CtlAG, Left: f} }
func EU(hold, until *Ctl) *Ctl { return &Ctl{Kind: CtlEU, Left: hold, Right: until} }
func AU(hold, until *Ctl) *Ctl { return &Ctl{Kind: CtlAU, Left: hold, Right: until} }
func SomeState(f *Ctl) *Ctl { return &Ctl{Kind: CtlSomeState, Left: f} }
func AllStates(f *Ctl) *Ctl { return &Ctl{Kind: CtlAllStates, Left: f} }
func CtlBin(op network.BinaryOp, l, r *Ctl) *Ctl {
	return &Ctl{Kind: CtlBinary, Op: op, Left: l, Right: r}
}

// CtlAnd folds a conjunction; empty is true.
func CtlAnd(fs ...*Ctl) *Ctl {
	if len(fs) == 0 {
		return CtlTrue()
	}
	acc := fs[0]
	for _, f := range fs[1:] {
		acc = CtlBin(network.OpAnd, acc, f)
	}
	return acc
}

// CtlOr folds a disjunction; empty is false.
func CtlOr(fs ...*Ctl) *Ctl {
	if len(fs) == 0 {
		return CtlFalse()
	}
	acc := fs[0]
	for _, f := range fs[1:] {
		acc = CtlBin(network.OpOr, acc, f)
	}
	return acc
}

// String renders the formula.
func (f *Ctl) String() string {
	if f == nil {
		return "<nil>"
	}
	switch f.Kind {
	case CtlConst:
		return strconv.FormatBool(f.Value)
	case CtlProp:
		return f.Name
	case CtlNamed:
		return "%" + f.Name + "%"
	case CtlNot:
		return "!" + f.Left.String()
	case CtlBinary:
		return fmt.Sprintf("(%s %s %s)", f.Left, f.Op, f.Right)
	case CtlEU:
		return fmt.Sprintf("E(%s U %s)", f.Left, f.Right)
	case CtlAU:
		return fmt.Sprintf("A(%s U %s)", f.Left, f.Right)
	default:
		return fmt.Sprintf("%s(%s)", ctlUnaryNames[f.Kind], f.Left)
	}
}

// Propositions returns the network variables the formula mentions.
func (f *Ctl) Propositions() map[string]struct{} {
	out := make(map[string]struct{})
	f.walk(func(n *Ctl) {
		if n.Kind == CtlProp {
			out[n.Name] = struct{}{}
		}
	})
	return out
}

// NamedSets returns the named sets the formula refers to.
func (f *Ctl) NamedSets() map[string]struct{} {
	out := make(map[string]struct{})
	f.walk(func(n *Ctl) {
		if n.Kind == CtlNamed {
			out[n.Name] = struct{}{}
		}
	})
	return out
}

func (f *Ctl) walk(visit func(*Ctl)) {
	if f == nil {
		return
	}
	visit(f)
	f.Left.walk(visit)
	f.Right.walk(visit)
}

// Check verifies the tree shape: every operator has its operands.
func (f *Ctl) Check() error {
	if f == nil {
		return fmt.Errorf("%w: missing operand", ErrInvalidFormula)
	}
	switch f.Kind {
	case CtlConst:
		return nil
	case CtlProp, CtlNamed:
		if f.Name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidFormula)
		}
		return nil
	case CtlBinary, CtlEU, CtlAU:
		if err := f.Left.Check(); err != nil {
			return err
		}
		return f.Right.Check()
	default:
		return f.Left.Check()
	}
}

// -----------------------------------------------------------------------------
// Serialization
// -----------------------------------------------------------------------------

type ctlDoc struct {
	Const     *bool  `yaml:"const,omitempty" json:"const,omitempty"`
	Prop      string `yaml:"prop,omitempty" json:"prop,omitempty"`
	Named     string `yaml:"named,omitempty" json:"named,omitempty"`
	Not       *Ctl   `yaml:"not,omitempty" json:"not,omitempty"`
	And       []*Ctl `yaml:"and,omitempty" json:"and,omitempty"`
	Or        []*Ctl `yaml:"or,omitempty" json:"or,omitempty"`
	Imp       []*Ctl `yaml:"imp,omitempty" json:"imp,omitempty"`
	Iff       []*Ctl `yaml:"iff,omitempty" json:"iff,omitempty"`
	Xor       []*Ctl `yaml:"xor,omitempty" json:"xor,omitempty"`
	EX        *Ctl   `yaml:"ex,omitempty" json:"ex,omitempty"`
	AX        *Ctl   `yaml:"ax,omitempty" json:"ax,omitempty"`
	EF        *Ctl   `yaml:"ef,omitempty" json:"ef,omitempty"`
	AF        *Ctl   `yaml:"af,omitempty" json:"af,omitempty"`
	EG        *Ctl   `yaml:"eg,omitempty" json:"eg,omitempty"`
	AG        *Ctl   `yaml:"ag,omitempty" json:"ag,omitempty"`
	EU        []*Ctl `yaml:"eu,omitempty" json:"eu,omitempty"`
	AU        []*Ctl `yaml:"au,omitempty" json:"au,omitempty"`
	SomeState *Ctl   `yaml:"some_state,omitempty" json:"some_state,omitempty"`
	AllStates *Ctl   `yaml:"all_states,omitempty" json:"all_states,omitempty"`
}

func (d ctlDoc) build() (*Ctl, error) {
	var out []*Ctl
	if d.Const != nil {
		out = append(out, &Ctl{Kind: CtlConst, Value: *d.Const})
	}
	if d.Prop != "" {
		out = append(out, Prop(d.Prop))
	}
	if d.Named != "" {
		out = append(out, Named(d.Named))
	}
	if d.Not != nil {
		out = append(out, CtlNegation(d.Not))
	}
	if d.And != nil {
		out = append(out, CtlAnd(d.And...))
	}
	if d.Or != nil {
		out = append(out, CtlOr(d.Or...))
	}
	for _, u := range []struct {
		kind CtlKind
		f    *Ctl
	}{
		{CtlEX, d.EX}, {CtlAX, d.AX}, {CtlEF, d.EF}, {CtlAF, d.AF}, {CtlEG, d.EG}, {CtlAG, d.AG},
		{CtlSomeState, d.SomeState}, {CtlAllStates, d.AllStates},
	} {
		if u.f != nil {
			out = append(out, &Ctl{Kind: u.kind, Left: u.f})
		}
	}
	for _, b := range []struct {
		name string
		ops  []*Ctl
		join func(l, r *Ctl) *Ctl
	}{
		{"imp", d.Imp, func(l, r *Ctl) *Ctl { return CtlBin(network.OpImp, l, r) }},
		{"iff", d.Iff, func(l, r *Ctl) *Ctl { return CtlBin(network.OpIff, l, r) }},
		{"xor", d.Xor, func(l, r *Ctl) *Ctl { return CtlBin(network.OpXor, l, r) }},
		{"eu", d.EU, EU},
		{"au", d.AU, AU},
	} {
		if b.ops == nil {
			continue
		}
		if len(b.ops) != 2 {
			return nil, fmt.Errorf("%w: %s needs exactly two operands", ErrInvalidFormula, b.name)
		}
		out = append(out, b.join(b.ops[0], b.ops[1]))
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one node kind, got %d", ErrInvalidFormula, len(out))
	}
	return out[0], nil
}

func (f *Ctl) doc() any {
	pair := []*Ctl{f.Left, f.Right}
	switch f.Kind {
	case CtlConst:
		return f.Value
	case CtlProp:
		return f.Name
	case CtlNamed:
		return ctlDoc{Named: f.Name}
	case CtlNot:
		return ctlDoc{Not: f.Left}
	case CtlEX:
		return ctlDoc{EX: f.Left}
	case CtlAX:
		return ctlDoc{AX: f.Left}
	case CtlEF:
		return ctlDoc{EF: f.Left}
	case CtlAF:
		return ctlDoc{AF: f.Left}
	case CtlEG:
		return ctlDoc{EG: f.Left}
	case CtlAG:
		return ctlDoc{AG: f.Left}
	case CtlEU:
		return ctlDoc{EU: pair}
	case CtlAU:
		return ctlDoc{AU: pair}
	case CtlSomeState:
		return ctlDoc{SomeState: f.Left}
	case CtlAllStates:
		return ctlDoc{AllStates: f.Left}
	default:
		switch f.Op {
		case network.OpAnd:
			return ctlDoc{And: pair}
		case network.OpOr:
			return ctlDoc{Or: pair}
		case network.OpImp:
			return ctlDoc{Imp: pair}
		case network.OpIff:
			return ctlDoc{Iff: pair}
		default:
			return ctlDoc{Xor: pair}
		}
	}
}

func ctlScalar(s string) *Ctl {
	switch strings.ToLower(s) {
	case "true":
		return CtlTrue()
	case "false":
		return CtlFalse()
	}
	return Prop(s)
}

// UnmarshalYAML implements yaml.Unmarshaler. A bare scalar is a proposition.
func (f *Ctl) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = *ctlScalar(node.Value)
		return nil
	}
	var d ctlDoc
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
func (f *Ctl) MarshalYAML() (any, error) { return f.doc(), nil }

// UnmarshalJSON implements json.Unmarshaler.
func (f *Ctl) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Ctl{Kind: CtlConst, Value: b}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = *ctlScalar(s)
		return nil
	}
	var d ctlDoc
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
func (f *Ctl) MarshalJSON() ([]byte, error) { return json.Marshal(f.doc()) }
