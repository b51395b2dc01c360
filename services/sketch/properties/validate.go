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
	"fmt"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
)

// Checker validates properties against a network and its datasets.
type Checker struct {
	model    *network.Model
	net      *network.Network
	datasets map[string]*network.Dataset
}

// NewChecker creates a checker. datasets is keyed by dataset id.
func NewChecker(model *network.Model, net *network.Network, datasets map[string]*network.Dataset) *Checker {
	return &Checker{model: model, net: net, datasets: datasets}
}

// CheckAll validates every property and the uniqueness of ids across both lists.
func (c *Checker) CheckAll(static []StaticProperty, dynamic []DynamicProperty) error {
	seen := make(map[string]struct{}, len(static)+len(dynamic))
	claim := func(id string) error {
		if !network.ValidIdentifier(id) {
			return fmt.Errorf("%w: invalid id %q", ErrInvalidProperty, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidProperty, id)
		}
		seen[id] = struct{}{}
		return nil
	}
	for _, p := range static {
		if err := claim(p.ID); err != nil {
			return err
		}
		if err := c.CheckStatic(p); err != nil {
			return err
		}
	}
	for _, p := range dynamic {
		if err := claim(p.ID); err != nil {
			return err
		}
		if err := c.CheckDynamic(p); err != nil {
			return err
		}
	}
	return nil
}

// CheckStatic validates one static property.
func (c *Checker) CheckStatic(p StaticProperty) error {
	if p.Context != nil {
		if err := p.Context.CheckClosed(); err != nil {
			return fmt.Errorf("%w: %s context: %v", ErrInvalidProperty, p.ID, err)
		}
	}
	if p.Kind == StaticGeneric {
		if p.Formula == nil {
			return fmt.Errorf("%w: %s has no formula", ErrInvalidProperty, p.ID)
		}
		if err := p.Formula.CheckClosed(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidProperty, p.ID, err)
		}
		return c.checkSymbols(p.ID, p.Formula.Functions(), p.Formula.UpdatedVariables())
	}
	if p.Context != nil {
		if err := c.checkSymbols(p.ID, p.Context.Functions(), p.Context.UpdatedVariables()); err != nil {
			return err
		}
	}
	_, err := NewEncoder(c.model, c.net).Encode(p)
	return err
}

func (c *Checker) checkSymbols(id string, fns, updates map[string]int) error {
	for name, arity := range fns {
		p, ok := c.net.Parameter(name)
		if !ok {
			return fmt.Errorf("%w: %s applies unknown function %q", ErrInvalidProperty, id, name)
		}
		if p.Arity != arity {
			return fmt.Errorf("%w: %s applies %q to %d arguments, arity is %d", ErrInvalidProperty, id, name, arity, p.Arity)
		}
	}
	for name, arity := range updates {
		v, ok := c.net.VarIndex(name)
		if !ok {
			return fmt.Errorf("%w: %s uses update of unknown variable %q", ErrInvalidProperty, id, name)
		}
		if n := len(c.net.Regulators(v)); n != arity {
			return fmt.Errorf("%w: %s applies update of %q to %d arguments, it has %d regulators",
				ErrInvalidProperty, id, name, arity, n)
		}
	}
	return nil
}

// CheckDynamic validates one dynamic property.
func (c *Checker) CheckDynamic(p DynamicProperty) error {
	switch p.Kind {
	case DynamicGeneric:
		if p.Formula == nil {
			return fmt.Errorf("%w: %s has no formula", ErrInvalidProperty, p.ID)
		}
		if err := p.Formula.Check(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidProperty, p.ID, err)
		}
		for v := range p.Formula.Propositions() {
			if _, ok := c.net.VarIndex(v); !ok {
				return fmt.Errorf("%w: %s mentions unknown variable %q", ErrInvalidProperty, p.ID, v)
			}
		}
		names := make(map[string]struct{}, len(p.Wildcards))
		for _, w := range p.Wildcards {
			if _, dup := names[w.Name]; dup {
				return fmt.Errorf("%w: %s declares wildcard %q twice", ErrInvalidProperty, p.ID, w.Name)
			}
			names[w.Name] = struct{}{}
			if err := c.checkWildcard(p.ID, w); err != nil {
				return err
			}
		}
		for n := range p.Formula.NamedSets() {
			if _, ok := names[n]; !ok {
				return fmt.Errorf("%w: %s references undeclared wildcard %q", ErrInvalidProperty, p.ID, n)
			}
		}
		return nil
	case DynamicAttractorCount:
		return checkCount(p.ID, p.Min, p.Max)
	case DynamicExistsFixedPoint, DynamicHasAttractor, DynamicExistsTrapSpace:
		_, err := c.dataset(p.ID, p.Dataset, p.Observation)
		return err
	case DynamicExistsTrajectory:
		if p.Observation != "" {
			return fmt.Errorf("%w: %s: trajectories use the whole dataset", ErrInvalidProperty, p.ID)
		}
		d, err := c.dataset(p.ID, p.Dataset, "")
		if err != nil {
			return err
		}
		if len(d.Observations) == 0 {
			return fmt.Errorf("%w: %s: dataset %q has no observations", ErrInvalidProperty, p.ID, p.Dataset)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidProperty, p.ID, p.Kind)
	}
}

func (c *Checker) checkWildcard(id string, w Wildcard) error {
	switch w.Kind {
	case WildcardAttractorCount:
		return checkCount(id+"."+w.Name, w.Min, w.Max)
	case WildcardObservation:
		if w.Observation == "" {
			return fmt.Errorf("%w: %s.%s needs an observation", ErrInvalidProperty, id, w.Name)
		}
		_, err := c.dataset(id, w.Dataset, w.Observation)
		return err
	case WildcardTrajectory, WildcardAttractors, WildcardFixedPoints, WildcardTrapSpaces:
		_, err := c.dataset(id, w.Dataset, w.Observation)
		return err
	default:
		return fmt.Errorf("%w: %s.%s has unknown kind %q", ErrInvalidProperty, id, w.Name, w.Kind)
	}
}

func (c *Checker) dataset(id, name, observation string) (*network.Dataset, error) {
	d, ok := c.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w %q", ErrInvalidProperty, id, network.ErrUnknownDataset, name)
	}
	if observation != "" {
		if _, ok := d.Observation(observation); !ok {
			return nil, fmt.Errorf("%w: %s: dataset %q has no observation %q", ErrInvalidProperty, id, name, observation)
		}
	}
	return d, nil
}

func checkCount(id string, lo, hi int) error {
	if lo < 1 || lo > hi {
		return fmt.Errorf("%w: %s: attractor count range [%d, %d] must satisfy 1 <= min <= max",
			ErrInvalidProperty, id, lo, hi)
	}
	return nil
}
