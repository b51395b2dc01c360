// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package properties defines the static and dynamic properties of a sketch,
// validates them against the network and datasets, and encodes static
// properties into first-order formulas.
package properties

import (
	"errors"
	"sort"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// ErrInvalidProperty wraps every property input error.
var ErrInvalidProperty = errors.New("invalid property")

// StaticKind selects the meaning of a StaticProperty.
type StaticKind string

const (
	StaticRegulationEssential StaticKind = "regulation_essential"
	StaticRegulationMonotonic StaticKind = "regulation_monotonic"
	StaticFnInputEssential    StaticKind = "fn_input_essential"
	StaticFnInputMonotonic    StaticKind = "fn_input_monotonic"
	StaticGeneric             StaticKind = "generic"
)

// StaticProperty constrains the colors directly, independent of dynamics.
//
// Which fields are read depends on Kind:
//
//	regulation_*  Regulator, Target, and Sign or Essential
//	fn_input_*    Function, Input, and Sign or Essential
//	generic       Formula
//
// Context, when set, weakens a regulation or input property to
// "Context implies property".
type StaticProperty struct {
	ID        string               `yaml:"id" json:"id" validate:"required,identifier"`
	Name      string               `yaml:"name,omitempty" json:"name,omitempty"`
	Kind      StaticKind           `yaml:"kind" json:"kind" validate:"required,oneof=regulation_essential regulation_monotonic fn_input_essential fn_input_monotonic generic"`
	Regulator string               `yaml:"regulator,omitempty" json:"regulator,omitempty"`
	Target    string               `yaml:"target,omitempty" json:"target,omitempty"`
	Function  string               `yaml:"function,omitempty" json:"function,omitempty"`
	Input     int                  `yaml:"input,omitempty" json:"input,omitempty" validate:"gte=0"`
	Sign      network.Sign         `yaml:"sign,omitempty" json:"sign,omitempty"`
	Essential network.Essentiality `yaml:"essential,omitempty" json:"essential,omitempty"`
	Context   *formula.Fol         `yaml:"context,omitempty" json:"context,omitempty"`
	Formula   *formula.Fol         `yaml:"formula,omitempty" json:"formula,omitempty"`
}

// SortStatic orders properties by id.
func SortStatic(props []StaticProperty) {
	sort.SliceStable(props, func(i, j int) bool { return props[i].ID < props[j].ID })
}
