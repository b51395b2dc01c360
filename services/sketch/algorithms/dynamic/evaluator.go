// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dynamic evaluates dynamic properties against a transition graph
// and returns the colors that satisfy them.
//
// Generic properties go through a CTL evaluator with their wildcards bound
// as named sets. Attractor counts use the attractor detector. Fixed points,
// trap spaces and trajectories have specialized symbolic algorithms.
package dynamic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/attractors"
	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// Config configures an Evaluator.
type Config struct {
	// Logger for debug output. Nil uses slog.Default().
	Logger *slog.Logger

	// Formulas evaluates CTL formulas. Nil uses a SymbolicEvaluator.
	Formulas formula.Evaluator

	// Datasets resolves dataset ids used by properties.
	Datasets map[string]*network.Dataset

	// Check is the cancellation poll handed to long computations. May be nil.
	Check func() error

	// MaxMinimalTrapFreeVars bounds the minimal trap space check.
	// Zero uses DefaultMaxMinimalTrapFreeVars.
	MaxMinimalTrapFreeVars int
}

// Evaluator computes the satisfying colors of dynamic properties.
//
// Thread Safety: Not safe for concurrent use with a shared graph.
type Evaluator struct {
	logger   *slog.Logger
	formulas formula.Evaluator
	datasets map[string]*network.Dataset
	check    func() error
	detector *attractors.Detector
	maxFree  int
}

// NewEvaluator creates an evaluator from cfg.
func NewEvaluator(cfg Config) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	formulas := cfg.Formulas
	if formulas == nil {
		formulas = formula.NewSymbolicEvaluator(logger, cfg.Check)
	}
	maxFree := cfg.MaxMinimalTrapFreeVars
	if maxFree <= 0 {
		maxFree = DefaultMaxMinimalTrapFreeVars
	}
	return &Evaluator{
		logger:   logger.With(slog.String("component", "dynamic_evaluator")),
		formulas: formulas,
		datasets: cfg.Datasets,
		check:    cfg.Check,
		detector: attractors.NewDetector(logger, cfg.Check),
		maxFree:  maxFree,
	}
}

// Evaluate returns the colors of g that satisfy p.
//
// Inputs:
//
//	ctx - Context for tracing.
//	p - The property. Must have passed properties.Checker.
//	g - Transition graph restricted to the admissible colors.
//	progress - Optional progress sink.
//
// Outputs:
//
//	symbolic.ColorSet - A subset of g.UnitColors().
//	error - Non-nil on evaluation failure or cancellation.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	p properties.DynamicProperty,
	g *symbolic.Graph,
	progress formula.ProgressFunc,
) (symbolic.ColorSet, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}
	e.logger.Debug("evaluating dynamic property",
		slog.String("id", p.ID),
		slog.String("kind", string(p.Kind)),
	)

	switch p.Kind {
	case properties.DynamicGeneric:
		named, err := e.wildcards(ctx, p.Wildcards, g, progress)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		report("Starting computation with the CTL model checker.")
		set, err := e.formulas.Evaluate(p.Formula, g, named, progress)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		return universalColors(g, set), nil

	case properties.DynamicAttractorCount:
		report("Starting attractor computation.")
		return e.AttractorCountColors(ctx, g, p.Min, p.Max)

	case properties.DynamicExistsFixedPoint:
		report("Starting fixed point computation.")
		obs, err := e.observations(g, p.Dataset, p.Observation)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		return colorsWithIntersection(g, g.FixedPoints(), obs), nil

	case properties.DynamicHasAttractor:
		report("Starting attractor computation.")
		obs, err := e.observations(g, p.Dataset, p.Observation)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		states, err := e.detector.AttractorStates(ctx, g)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		return colorsWithIntersection(g, states, obs), nil

	case properties.DynamicExistsTrapSpace:
		report("Starting trap space computation.")
		obs, err := e.observations(g, p.Dataset, p.Observation)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		colors := g.UnitColors()
		for _, o := range obs {
			c, err := e.trapColors(g, o.values, p.Minimal, p.NonPercolable)
			if err != nil {
				return symbolic.ColorSet{}, err
			}
			colors = colors.Intersect(c)
		}
		return colors, nil

	case properties.DynamicExistsTrajectory:
		report("Starting trajectory computation.")
		ds, err := e.dataset(p.Dataset)
		if err != nil {
			return symbolic.ColorSet{}, err
		}
		return e.TrajectoryColors(g, ds, progress)

	default:
		return symbolic.ColorSet{}, fmt.Errorf("%w: kind %q of %q", ErrUnsupportedProperty, p.Kind, p.ID)
	}
}

// AttractorCountColors returns the colors with lo..hi attractors.
func (e *Evaluator) AttractorCountColors(ctx context.Context, g *symbolic.Graph, lo, hi int) (symbolic.ColorSet, error) {
	table, err := e.detector.SortColorsByAttractorCount(ctx, g)
	if err != nil {
		return symbolic.ColorSet{}, err
	}
	return table.Range(lo, hi), nil
}

func (e *Evaluator) trapColors(g *symbolic.Graph, values map[int]bool, minimal, nonPercolable bool) (symbolic.ColorSet, error) {
	if minimal {
		return MinimalTrapColors(g, values, e.maxFree)
	}
	colors := TrapColors(g, values)
	if nonPercolable {
		colors = colors.Intersect(NonPercolableColors(g, values))
	}
	return colors, nil
}

func (e *Evaluator) dataset(id string) (*network.Dataset, error) {
	ds, ok := e.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, id)
	}
	return ds, nil
}

func (e *Evaluator) observations(g *symbolic.Graph, datasetID, obsID string) ([]observed, error) {
	ds, err := e.dataset(datasetID)
	if err != nil {
		return nil, err
	}
	return selectObservations(g.Network(), ds, obsID)
}
