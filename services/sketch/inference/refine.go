// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inference

import (
	"fmt"

	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
)

var (
	refineSigns      = []network.Sign{network.SignActivation, network.SignInhibition, network.SignDual}
	refineEssentials  = []network.Essentiality{network.EssentialTrue, network.EssentialFalse}
)

// refinementProperties lists every regulation property RefineRegulations
// may evaluate. The solver reserves auxiliary variables for them.
func refinementProperties(m *network.Model) []properties.StaticProperty {
	var out []properties.StaticProperty
	for _, r := range m.Regulations {
		out = append(out,
			regulationProperty(r, properties.StaticRegulationMonotonic, network.SignActivation, network.EssentialUnknown),
			regulationProperty(r, properties.StaticRegulationEssential, network.SignUnknown, network.EssentialTrue),
		)
	}
	return out
}

func regulationProperty(r network.Regulation, kind properties.StaticKind, sign network.Sign, ess network.Essentiality) properties.StaticProperty {
	return properties.StaticProperty{
		ID:        fmt.Sprintf("refine_%s_%s", r.Regulator, r.Target),
		Kind:      kind,
		Regulator: r.Regulator,
		Target:    r.Target,
		Sign:      sign,
		Essential: ess,
	}
}

// RefineRegulations returns the regulations of m strengthened to what all
// satisfying colors of f agree on.
//
// Description:
//
//	For every regulation with an unknown sign, the first of activation,
//	inhibition and dual that holds for every satisfying color is adopted.
//	Unknown essentiality is refined the same way. Known annotations are
//	kept. m must be the model f was inferred from.
//
// Inputs:
//
//	f - A finished solver.
//	m - The sketch model of the run.
//
// Outputs:
//
//	[]network.Regulation - The refined regulations, in model order.
//	error - Non-nil if a property cannot be encoded or evaluated.
func RefineRegulations(f *FinishedSolver, m *network.Model) ([]network.Regulation, error) {
	enc := properties.NewEncoder(m, f.Network)
	ev := formula.NewSymbolicEvaluator(nil, nil)

	holds := func(p properties.StaticProperty) (bool, error) {
		fol, err := enc.Encode(p)
		if err != nil {
			return false, err
		}
		symCtx, err := f.Graph.Context().Derive(fol.QuantifierDepth())
		if err != nil {
			return false, err
		}
		g, err := f.Graph.WithContext(symCtx)
		if err != nil {
			return false, err
		}
		colors, err := ev.EvaluateFOL(fol, g, nil)
		if err != nil {
			return false, err
		}
		colors, err = f.Graph.Context().TransferColors(colors)
		if err != nil {
			return false, err
		}
		return f.SatColors.IsSubset(colors), nil
	}

	out := make([]network.Regulation, len(m.Regulations))
	for i, r := range m.Regulations {
		refined := r
		if r.Sign == network.SignUnknown {
			for _, sign := range refineSigns {
				ok, err := holds(regulationProperty(r, properties.StaticRegulationMonotonic, sign, network.EssentialUnknown))
				if err != nil {
					return nil, fmt.Errorf("refine %s -> %s: %w", r.Regulator, r.Target, err)
				}
				if ok {
					refined.Sign = sign
					break
				}
			}
		}
		if r.Essential == network.EssentialUnknown {
			for _, ess := range refineEssentials {
				ok, err := holds(regulationProperty(r, properties.StaticRegulationEssential, network.SignUnknown, ess))
				if err != nil {
					return nil, fmt.Errorf("refine %s -> %s: %w", r.Regulator, r.Target, err)
				}
				if ok {
					refined.Essential = ess
					break
				}
			}
		}
		out[i] = refined
	}
	return out, nil
}
