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
	"fmt"
	"strings"
)

// Observation is one measured (possibly partial) state. Values holds one
// character per dataset variable: '0', '1' or '*' for unobserved.
type Observation struct {
	ID     string `yaml:"id" json:"id" validate:"required,identifier"`
	Values string `yaml:"values" json:"values" validate:"required,observation"`
}

// Dataset groups observations over a fixed list of variables.
type Dataset struct {
	ID           string        `yaml:"id" json:"id" validate:"required,identifier"`
	Variables    []string      `yaml:"variables" json:"variables" validate:"required,min=1"`
	Observations []Observation `yaml:"observations" json:"observations" validate:"dive"`
}

// Validate checks the dataset against itself and the network variables.
func (d *Dataset) Validate(n *Network) error {
	seen := make(map[string]struct{}, len(d.Variables))
	for _, v := range d.Variables {
		if _, ok := n.VarIndex(v); !ok {
			return fmt.Errorf("%w: %q in dataset %q", ErrUnknownVariable, v, d.ID)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: variable %q listed twice in dataset %q", ErrInvalidObservation, v, d.ID)
		}
		seen[v] = struct{}{}
	}
	ids := make(map[string]struct{}, len(d.Observations))
	for _, o := range d.Observations {
		if _, dup := ids[o.ID]; dup {
			return fmt.Errorf("%w: duplicate observation %q in dataset %q", ErrInvalidObservation, o.ID, d.ID)
		}
		ids[o.ID] = struct{}{}
		if len(o.Values) != len(d.Variables) {
			return fmt.Errorf("%w: observation %q has %d values for %d variables",
				ErrInvalidObservation, o.ID, len(o.Values), len(d.Variables))
		}
		if strings.Trim(o.Values, "01*") != "" {
			return fmt.Errorf("%w: observation %q contains characters other than 0, 1, *",
				ErrInvalidObservation, o.ID)
		}
	}
	return nil
}

// Observation looks up an observation by id.
func (d *Dataset) Observation(id string) (Observation, bool) {
	for _, o := range d.Observations {
		if o.ID == id {
			return o, true
		}
	}
	return Observation{}, false
}

// Subspace converts an observation into a partial valuation keyed by network
// variable index. Unobserved variables are absent.
func (d *Dataset) Subspace(n *Network, o Observation) (map[int]bool, error) {
	if len(o.Values) != len(d.Variables) {
		return nil, fmt.Errorf("%w: observation %q length mismatch", ErrInvalidObservation, o.ID)
	}
	out := make(map[int]bool)
	for i, c := range o.Values {
		idx, ok := n.VarIndex(d.Variables[i])
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, d.Variables[i])
		}
		switch c {
		case '0':
			out[idx] = false
		case '1':
			out[idx] = true
		case '*':
		default:
			return nil, fmt.Errorf("%w: %q in observation %q", ErrInvalidObservation, c, o.ID)
		}
	}
	return out, nil
}

// FullySpecified reports whether the observation fixes every network variable.
func (d *Dataset) FullySpecified(n *Network, o Observation) bool {
	sub, err := d.Subspace(n, o)
	return err == nil && len(sub) == n.NumVars()
}
