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

// FromModel derives the static properties implied by the regulation and
// function annotations of a model. Unknown signs and essentialities produce
// nothing.
//
// Ids follow a fixed scheme:
//
//	monotonicity_<regulator>_<target>
//	essentiality_<regulator>_<target>
//	fn_monotonicity_<function>_<input>
//	fn_essentiality_<function>_<input>
func FromModel(m *network.Model) []StaticProperty {
	var out []StaticProperty
	for _, r := range m.Regulations {
		if r.Sign != network.SignUnknown {
			out = append(out, StaticProperty{
				ID:        fmt.Sprintf("monotonicity_%s_%s", r.Regulator, r.Target),
				Name:      fmt.Sprintf("Monotonicity of %s -> %s", r.Regulator, r.Target),
				Kind:      StaticRegulationMonotonic,
				Regulator: r.Regulator,
				Target:    r.Target,
				Sign:      r.Sign,
			})
		}
		if r.Essential != network.EssentialUnknown {
			out = append(out, StaticProperty{
				ID:        fmt.Sprintf("essentiality_%s_%s", r.Regulator, r.Target),
				Name:      fmt.Sprintf("Essentiality of %s -> %s", r.Regulator, r.Target),
				Kind:      StaticRegulationEssential,
				Regulator: r.Regulator,
				Target:    r.Target,
				Essential: r.Essential,
			})
		}
	}
	for _, f := range m.Functions {
		for i, arg := range f.Arguments {
			if arg.Sign != network.SignUnknown {
				out = append(out, StaticProperty{
					ID:       fmt.Sprintf("fn_monotonicity_%s_%d", f.ID, i),
					Name:     fmt.Sprintf("Monotonicity of %s in input %d", f.ID, i),
					Kind:     StaticFnInputMonotonic,
					Function: f.ID,
					Input:    i,
					Sign:     arg.Sign,
				})
			}
			if arg.Essential != network.EssentialUnknown {
				out = append(out, StaticProperty{
					ID:        fmt.Sprintf("fn_essentiality_%s_%d", f.ID, i),
					Name:      fmt.Sprintf("Essentiality of %s in input %d", f.ID, i),
					Kind:      StaticFnInputEssential,
					Function:  f.ID,
					Input:     i,
					Essential: arg.Essential,
				})
			}
		}
	}
	return out
}
