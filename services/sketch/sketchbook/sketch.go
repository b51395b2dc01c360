// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sketchbook holds the complete user-authored sketch: the network
// skeleton, the observed datasets, and the static and dynamic properties.
package sketchbook

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
)

// ErrInvalidSketch wraps struct-level validation failures.
var ErrInvalidSketch = errors.New("invalid sketch")

var sketchValidate *validator.Validate

func init() {
	sketchValidate = validator.New()
	if err := network.RegisterValidations(sketchValidate); err != nil {
		panic(fmt.Sprintf("sketchbook: register validations: %v", err))
	}
}

// Sketch is the full input of an inference run.
type Sketch struct {
	Name              string                       `yaml:"name,omitempty" json:"name,omitempty" validate:"max=256"`
	Model             network.Model                `yaml:"model" json:"model"`
	Datasets          []network.Dataset            `yaml:"datasets,omitempty" json:"datasets,omitempty" validate:"dive"`
	StaticProperties  []properties.StaticProperty  `yaml:"static_properties,omitempty" json:"static_properties,omitempty" validate:"dive"`
	DynamicProperties []properties.DynamicProperty `yaml:"dynamic_properties,omitempty" json:"dynamic_properties,omitempty" validate:"dive"`
}

// DefaultNetwork extracts the parametrized network of the sketch model.
func (s *Sketch) DefaultNetwork() (*network.Network, error) {
	return s.Model.DefaultNetwork()
}

// DatasetIndex maps dataset ids to datasets. The pointers alias s.Datasets.
func (s *Sketch) DatasetIndex() map[string]*network.Dataset {
	out := make(map[string]*network.Dataset, len(s.Datasets))
	for i := range s.Datasets {
		out[s.Datasets[i].ID] = &s.Datasets[i]
	}
	return out
}

// AllStaticProperties returns the properties generated from the model
// annotations together with the explicit ones. An explicit property with
// the id of a generated one replaces it.
func (s *Sketch) AllStaticProperties() []properties.StaticProperty {
	explicit := make(map[string]struct{}, len(s.StaticProperties))
	for _, p := range s.StaticProperties {
		explicit[p.ID] = struct{}{}
	}
	var out []properties.StaticProperty
	for _, p := range properties.FromModel(&s.Model) {
		if _, ok := explicit[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return append(out, s.StaticProperties...)
}

// Validate checks the sketch in layers.
//
// Description:
//
//	Runs struct tag validation first, then the semantic model checks, then
//	each dataset against the extracted network, and finally every property
//	(generated and explicit) against the model and datasets.
//
// Outputs:
//   - error: Wraps ErrInvalidSketch, network.ErrInvalidModel or
//     properties.ErrInvalidProperty depending on the failing layer.
func (s *Sketch) Validate() error {
	if err := sketchValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSketch, err)
	}
	if err := s.Model.Validate(); err != nil {
		return err
	}
	net, err := s.DefaultNetwork()
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(s.Datasets))
	for i := range s.Datasets {
		d := &s.Datasets[i]
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate dataset %q", ErrInvalidSketch, d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.Validate(net); err != nil {
			return err
		}
	}
	checker := properties.NewChecker(&s.Model, net, s.DatasetIndex())
	return checker.CheckAll(s.AllStaticProperties(), s.DynamicProperties)
}
