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
	"math/big"
	"sort"
	"strings"

	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// MaxUpdateFnCount caps the number of update function variants counted or
// rendered per variable.
const MaxUpdateFnCount = 1000

// Results summarizes a finished run.
type Results struct {
	Mode Mode `json:"analysis_type"`

	// NumSatNetworks is the exact number of satisfying colors.
	NumSatNetworks *big.Int `json:"num_sat_networks"`

	CompTimeMs int64  `json:"comp_time_ms"`
	Summary    string `json:"summary_message"`

	Statuses []StatusReport `json:"progress_statuses"`

	// NumUpdateFnsPerVar counts admissible update functions per variable,
	// capped at MaxUpdateFnCount.
	NumUpdateFnsPerVar map[string]int `json:"num_update_fns_per_var"`
}

// ExtendSummary appends msg to the summary.
func (r *Results) ExtendSummary(msg string) {
	r.Summary += msg
}

// FormatReport renders the results as a plain-text report.
func (r *Results) FormatReport() string {
	var b strings.Builder
	count := "0"
	if r.NumSatNetworks != nil {
		count = r.NumSatNetworks.String()
	}
	fmt.Fprintf(&b, "Number of satisfying candidates: %s\n", count)
	fmt.Fprintf(&b, "Computation time: %d milliseconds\n\n", r.CompTimeMs)

	b.WriteString("--------------\nExtended summary:\n--------------\n")
	fmt.Fprintf(&b, "%s\n", r.Summary)

	b.WriteString("--------------\nNumber of admissible update functions per variable:\n--------------\n")
	vars := make([]string, 0, len(r.NumUpdateFnsPerVar))
	for v := range r.NumUpdateFnsPerVar {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, v := range vars {
		n := r.NumUpdateFnsPerVar[v]
		if n >= MaxUpdateFnCount {
			fmt.Fprintf(&b, "%s: more than %d\n", v, MaxUpdateFnCount)
			continue
		}
		fmt.Fprintf(&b, "%s: %d\n", v, n)
	}

	b.WriteString("--------------\nDetailed progress report:\n--------------\n")
	for _, s := range r.Statuses {
		b.WriteString(s.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// updateFnCounts counts the update function variants of every variable.
func updateFnCounts(colors symbolic.ColorSet, net *network.Network) map[string]int {
	limit := big.NewInt(MaxUpdateFnCount)
	out := make(map[string]int, net.NumVars())
	for v, name := range net.Variables() {
		n := colors.CountUpdateVariants(v)
		if n.Cmp(limit) >= 0 {
			out[name] = MaxUpdateFnCount
			continue
		}
		out[name] = int(n.Int64())
	}
	return out
}

// -----------------------------------------------------------------------------
// FinishedSolver
// -----------------------------------------------------------------------------

// FinishedSolver is the outcome of a successful run.
//
// Graph is in the canonical context and restricted to SatColors.
type FinishedSolver struct {
	Network   *network.Network
	Graph     *symbolic.Graph
	SatColors symbolic.ColorSet
	Results   *Results
}

// UpdateFnVariants renders up to MaxUpdateFnCount admissible update
// functions of the named variable. The bool is true when more exist.
func (f *FinishedSolver) UpdateFnVariants(variable string) ([]string, bool, error) {
	v, ok := f.Network.VarIndex(variable)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownVariable, variable)
	}
	variants, more := f.SatColors.UpdateVariants(v, MaxUpdateFnCount)
	return variants, more, nil
}
