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
	"sort"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
)

// DynamicKind selects the meaning of a DynamicProperty.
type DynamicKind string

const (
	DynamicGeneric          DynamicKind = "generic"
	DynamicAttractorCount   DynamicKind = "attractor_count"
	DynamicExistsFixedPoint DynamicKind = "exists_fixed_point"
	DynamicHasAttractor     DynamicKind = "has_attractor"
	DynamicExistsTrapSpace  DynamicKind = "exists_trap_space"
	DynamicExistsTrajectory DynamicKind = "exists_trajectory"
)

// WildcardKind selects how a named set of a generic property is computed.
type WildcardKind string

const (
	WildcardObservation    WildcardKind = "observation"
	WildcardTrajectory     WildcardKind = "trajectory"
	WildcardAttractors     WildcardKind = "attractors"
	WildcardFixedPoints    WildcardKind = "fixed_points"
	WildcardTrapSpaces     WildcardKind = "trap_spaces"
	WildcardAttractorCount WildcardKind = "attractor_count"
)

// Wildcard is a named set referenced from a generic CTL formula.
type Wildcard struct {
	Name          string       `yaml:"name" json:"name" validate:"required"`
	Kind          WildcardKind `yaml:"kind" json:"kind" validate:"required,oneof=observation trajectory attractors fixed_points trap_spaces attractor_count"`
	Dataset       string       `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	Observation   string       `yaml:"observation,omitempty" json:"observation,omitempty"`
	Min           int          `yaml:"min,omitempty" json:"min,omitempty"`
	Max           int          `yaml:"max,omitempty" json:"max,omitempty"`
	Minimal       bool         `yaml:"minimal,omitempty" json:"minimal,omitempty"`
	NonPercolable bool         `yaml:"nonpercolable,omitempty" json:"nonpercolable,omitempty"`
}

// DynamicProperty constrains the colors through the network dynamics.
//
// Which fields are read depends on Kind:
//
//	generic             Formula, Wildcards
//	attractor_count     Min, Max
//	exists_fixed_point  Dataset, optional Observation
//	has_attractor       Dataset, optional Observation
//	exists_trap_space   Dataset, optional Observation, Minimal, NonPercolable
//	exists_trajectory   Dataset
type DynamicProperty struct {
	ID            string       `yaml:"id" json:"id" validate:"required,identifier"`
	Name          string       `yaml:"name,omitempty" json:"name,omitempty"`
	Kind          DynamicKind  `yaml:"kind" json:"kind" validate:"required,oneof=generic attractor_count exists_fixed_point has_attractor exists_trap_space exists_trajectory"`
	Formula       *formula.Ctl `yaml:"formula,omitempty" json:"formula,omitempty"`
	Wildcards     []Wildcard   `yaml:"wildcards,omitempty" json:"wildcards,omitempty" validate:"dive"`
	Min           int          `yaml:"min,omitempty" json:"min,omitempty"`
	Max           int          `yaml:"max,omitempty" json:"max,omitempty"`
	Dataset       string       `yaml:"dataset,omitempty" json:"dataset,omitempty"`
	Observation   string       `yaml:"observation,omitempty" json:"observation,omitempty"`
	Minimal       bool         `yaml:"minimal,omitempty" json:"minimal,omitempty"`
	NonPercolable bool         `yaml:"nonpercolable,omitempty" json:"nonpercolable,omitempty"`
}

// SortDynamic orders properties by id.
func SortDynamic(props []DynamicProperty) {
	sort.SliceStable(props, func(i, j int) bool { return props[i].ID < props[j].ID })
}
