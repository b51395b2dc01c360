// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbolic

import (
	"math/big"
	"strings"

	"github.com/dalzilio/rudd"
)

// CountUpdateVariants returns how many distinct update functions of
// variable v occur among colors.
//
// Description:
//
//	For an implicit update this is the number of distinct truth tables of
//	its parameter. For an explicit expression it is the number of distinct
//	valuations of the parameters the expression applies; a parameter-free
//	expression has exactly one variant (zero if colors is empty).
func (c ColorSet) CountUpdateVariants(v int) *big.Int {
	sp := c.ctx.sp
	if c.IsEmpty() {
		return big.NewInt(0)
	}
	used := make(map[string]struct{})
	bits := 0
	for name := range sp.net.Update(v).Functions() {
		idx, ok := sp.paramIdx[name]
		if !ok {
			continue
		}
		used[name] = struct{}{}
		bits += sp.params[idx].rows()
	}
	if len(used) == 0 {
		return big.NewInt(1)
	}
	projected := sp.exist(c.node, sp.and(sp.nonParamCube(), sp.exceptTablesCube(used)))
	return sp.count(projected, sp.total-bits)
}

// UpdateVariants renders up to limit distinct update functions of an
// implicitly specified variable v admitted by colors, as disjunctive normal
// forms over its regulators. For an explicitly specified variable the
// expression itself is returned.
//
// Outputs:
//
//	[]string - Rendered variants, in a deterministic order.
//	bool - True if more variants exist than were returned.
func (c ColorSet) UpdateVariants(v, limit int) ([]string, bool) {
	sp := c.ctx.sp
	net := sp.net
	if c.IsEmpty() {
		return nil, false
	}
	if !net.IsImplicit(v) {
		return []string{net.Update(v).String()}, false
	}
	p := sp.params[sp.paramIdx[net.Update(v).Name]]
	keep := map[string]struct{}{p.name: {}}
	rest := sp.exist(c.node, sp.and(sp.nonParamCube(), sp.exceptTablesCube(keep)))
	regs := net.RegulatorNames(v)

	var out []string
	for !sp.isFalse(rest) {
		if len(out) == limit {
			return out, true
		}
		minterm, table := sp.pickAssignment(rest, sp.tableVars(p))
		out = append(out, renderTable(table, regs))
		rest = sp.minus(rest, minterm)
	}
	return out, false
}

// pickAssignment fixes vars one by one, preferring true, so that the result
// is a single satisfying assignment of n restricted to vars.
func (sp *space) pickAssignment(n rudd.Node, vars []int) (rudd.Node, []bool) {
	values := make([]bool, len(vars))
	lits := make([]rudd.Node, len(vars))
	for i, x := range vars {
		pos := sp.and(n, sp.bdd.Ithvar(x))
		if !sp.isFalse(pos) {
			n = pos
			values[i] = true
			lits[i] = sp.bdd.Ithvar(x)
			continue
		}
		n = sp.and(n, sp.bdd.NIthvar(x))
		lits[i] = sp.bdd.NIthvar(x)
	}
	return sp.and(lits...), values
}

// renderTable prints a truth table as a DNF of its true rows. Bit i of a
// row index is the value of regulator i.
func renderTable(table []bool, regs []string) string {
	var terms []string
	all := true
	for row, on := range table {
		if !on {
			all = false
			continue
		}
		lits := make([]string, len(regs))
		for i, r := range regs {
			if row&(1<<i) != 0 {
				lits[i] = r
			} else {
				lits[i] = "!" + r
			}
		}
		terms = append(terms, "("+strings.Join(lits, " & ")+")")
	}
	switch {
	case all:
		return "true"
	case len(terms) == 0:
		return "false"
	default:
		return strings.Join(terms, " | ")
	}
}
