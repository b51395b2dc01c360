// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package formula defines the typed formula trees used by sketch properties
// and evaluates them over a symbolic transition graph.
//
// Two logics are supported:
//
//   - FOL: first-order formulas over Boolean quantified variables and the
//     network's function symbols. They constrain colors only and back
//     static properties.
//   - CTL: computation tree logic over network states, extended with
//     references to named sets (wildcards) and existential/universal state
//     projection. They back dynamic properties.
//
// Formulas are built with the constructors in this package or decoded from
// their YAML/JSON document form; there is no textual parser.
//
// Fixed points have a self-loop in CTL semantics, so every state has a
// successor and EX, AX, EG and AF behave as on a total transition relation.
package formula
