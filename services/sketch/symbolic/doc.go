// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbolic provides colored sets of network states backed by binary
// decision diagrams.
//
// A color is one valuation of every free function symbol of a parametrized
// network, i.e. one fully specified Boolean network. A VertexSet holds
// (state, color) pairs; a ColorSet holds colors only. Graph adds the
// asynchronous transition relation of the network over these sets.
//
// # Variable Layout
//
// All sets of one computation live in a single BDD manager owned by the
// Context family created by NewContext. The variable order is:
//
//	[0, n)                  network state variables
//	[n, n+maxExtra)         auxiliary variables used by quantified formulas
//	[n+maxExtra, ...)       one variable per truth-table row of each parameter
//
// Contexts derived with Derive expose a prefix of the auxiliary variables and
// share the manager, so moving sets between them never rebuilds a BDD.
//
// # Thread Safety
//
// A context family is NOT safe for concurrent use. One inference run owns
// its context exclusively; independent runs use independent contexts.
//
// # Representation
//
// Callers never see BDD nodes. Algorithms only use the set operations here,
// so the backing representation can change without touching them.
package symbolic
