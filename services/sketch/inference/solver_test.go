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
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/BNSketch/services/sketch/cancel"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

// twoVars has B -? A and A -? B with no annotations: 4 x 4 colors.
func twoVars() *sketchbook.Sketch {
	return &sketchbook.Sketch{
		Name: "two",
		Model: network.Model{
			Variables: []network.Variable{{ID: "A"}, {ID: "B"}},
			Regulations: []network.Regulation{
				{Regulator: "B", Target: "A"},
				{Regulator: "A", Target: "B"},
			},
		},
	}
}

func monotonic(id string, sign network.Sign) properties.StaticProperty {
	return properties.StaticProperty{ID: id, Kind: properties.StaticRegulationMonotonic, Regulator: "B", Target: "A", Sign: sign}
}

func statusKinds(log []StatusReport) []StatusKind {
	out := make([]StatusKind, len(log))
	for i, r := range log {
		out[i] = r.Status
	}
	return out
}

func TestSolver_NoProperties(t *testing.T) {
	s := NewSolver(SolverConfig{})
	res, err := s.Run(context.Background(), twoVars(), ModeFull)
	require.NoError(t, err)

	assert.Equal(t, int64(16), res.NumSatNetworks.Int64())
	want := []StatusKind{
		StatusCreated,
		StatusStarted,
		StatusProcessedInputs,
		StatusGeneratedContextStatic,
		StatusEvaluatedAllStatic,
		StatusGeneratedContextDynamic,
		StatusEvaluatedAllDynamic,
		StatusFinishedSuccessfully,
	}
	if diff := cmp.Diff(want, statusKinds(s.StatusLog())); diff != "" {
		t.Errorf("status sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, statusKinds(res.Statuses))
	assert.Equal(t, map[string]int{"A": 4, "B": 4}, res.NumUpdateFnsPerVar)
	assert.Equal(t,
		"N. of candidates before evaluating any properties: 16\n"+
			"N. of candidates after evaluating static props: 16\n"+
			"N. of candidates after evaluating dynamic props: 16\n",
		res.Summary)

	assert.True(t, s.IsFinished())
	d, err := s.TotalDuration()
	require.NoError(t, err)
	assert.Equal(t, res.CompTimeMs, d.Milliseconds())

	f, err := s.Finished()
	require.NoError(t, err)
	assert.Equal(t, int64(16), f.SatColors.Cardinality().Int64())
	assert.Equal(t, 0, f.Graph.Context().NumExtra())
}

func TestSolver_UnsatStaticStopsEarly(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{
		monotonic("a_act", network.SignActivation),
		monotonic("b_inh", network.SignInhibition),
		{ID: "c_ess", Kind: properties.StaticRegulationEssential, Regulator: "B", Target: "A", Essential: network.EssentialTrue},
	}
	sk.DynamicProperties = []properties.DynamicProperty{
		{ID: "one", Kind: properties.DynamicAttractorCount, Min: 1, Max: 1},
	}

	s := NewSolver(SolverConfig{})
	res, err := s.Run(context.Background(), sk, ModeFull)
	require.NoError(t, err)

	assert.Equal(t, 0, res.NumSatNetworks.Sign())
	assert.Equal(t, []StatusKind{
		StatusCreated,
		StatusStarted,
		StatusProcessedInputs,
		StatusGeneratedContextStatic,
		StatusEvaluatedStatic,
		StatusEvaluatedStatic,
		StatusEvaluatedStatic,
		StatusDetectedUnsat,
		StatusFinishedSuccessfully,
	}, statusKinds(s.StatusLog()))
	assert.Equal(t, 3, s.NumFinishedStaticProps())
	assert.Equal(t, 0, s.NumFinishedDynamicProps())
	assert.Contains(t, res.Summary, "Sketch found unsatisfiable after processing 3 static and 0 dynamic properties\n")

	log := s.StatusLog()
	assert.Equal(t, "c_ess", log[6].Property)
	assert.Equal(t, "0", log[6].NumCandidates)
}

func TestSolver_CandidatesNeverIncrease(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{monotonic("a_act", network.SignActivation)}
	sk.DynamicProperties = []properties.DynamicProperty{
		{ID: "one", Kind: properties.DynamicAttractorCount, Min: 1, Max: 1},
	}

	s := NewSolver(SolverConfig{})
	_, err := s.Run(context.Background(), sk, ModeFull)
	require.NoError(t, err)

	var prev *big.Int
	for _, r := range s.StatusLog() {
		if r.NumCandidates == "" {
			continue
		}
		n, ok := new(big.Int).SetString(r.NumCandidates, 10)
		require.True(t, ok, r.NumCandidates)
		if prev != nil {
			assert.LessOrEqual(t, n.Cmp(prev), 0, "candidates grew at %s", r.Message)
		}
		prev = n
	}
	require.NotNil(t, prev)
}

func TestSolver_Modes(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{monotonic("a_act", network.SignActivation)}
	sk.DynamicProperties = []properties.DynamicProperty{
		{ID: "two", Kind: properties.DynamicAttractorCount, Min: 2, Max: 2},
	}

	tests := []struct {
		name      string
		mode      Mode
		wantStat  int
		wantDyn   int
		notExpect StatusKind
	}{
		{"static only", ModeStaticOnly, 1, 0, StatusGeneratedContextDynamic},
		{"dynamic only", ModeDynamicOnly, 0, 1, StatusGeneratedContextStatic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSolver(SolverConfig{})
			res, err := s.Run(context.Background(), sk, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, res.Mode)
			assert.Equal(t, tt.wantStat, s.NumFinishedStaticProps())
			assert.Equal(t, tt.wantDyn, s.NumFinishedDynamicProps())
			assert.NotContains(t, statusKinds(s.StatusLog()), tt.notExpect)
		})
	}

	// Activation keeps 3 of 4 functions of A.
	s := NewSolver(SolverConfig{})
	res, err := s.Run(context.Background(), sk, ModeStaticOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.NumSatNetworks.Int64())
}

func TestSolver_StatusMessages(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{monotonic("a_act", network.SignActivation)}

	s := NewSolver(SolverConfig{})
	_, err := s.Run(context.Background(), sk, ModeStaticOnly)
	require.NoError(t, err)
	log := s.StatusLog()

	assert.Equal(t, "> 0ms: Created solver instance", log[0].Message)
	assert.Regexp(t, `^> \d+ms: Started inference computation$`, log[1].Message)
	assert.Regexp(t, `^> \d+ms: Pre-processed all inputs$`, log[2].Message)
	assert.Regexp(t, `^> \d+ms: Starting to evaluate static properties \(16 candidates\)$`, log[3].Message)
	assert.Regexp(t, "^> \\d+ms: Evaluated static property `a_act` \\(12 candidates\\)$", log[4].Message)
	assert.Regexp(t, `^> \d+ms: Evaluated all static properties$`, log[5].Message)
	assert.Regexp(t, `^> \d+ms: Successfully finished computation \(12 candidates\)$`, log[6].Message)
}

func TestSolver_CancelBeforeEvaluation(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{
		monotonic("a_act", network.SignActivation),
		monotonic("b_inh", network.SignInhibition),
	}

	var s *Solver
	s = NewSolver(SolverConfig{Observer: ObserverFunc(func(r StatusReport) bool {
		if r.Status == StatusGeneratedContextStatic {
			s.Cancel()
		}
		return true
	})})
	_, err := s.Run(context.Background(), sk, ModeFull)
	require.ErrorIs(t, err, cancel.ErrCancelled)

	assert.Equal(t, 0, s.NumFinishedStaticProps())
	assert.Equal(t, StatusError, s.StatusLog()[len(s.StatusLog())-1].Status)
	assert.True(t, s.IsFinished())

	_, err = s.Finished()
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Contains(t, err.Error(), "Computation was cancelled.")
	_, err = s.TotalDuration()
	assert.ErrorIs(t, err, ErrRunFailed)
}

func TestSolver_ObserverGoneCancels(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{monotonic("a_act", network.SignActivation)}

	obs := NewChannelObserver(16)
	obs.Close()
	s := NewSolver(SolverConfig{Observer: obs})
	_, err := s.Run(context.Background(), sk, ModeFull)
	require.ErrorIs(t, err, cancel.ErrCancelled)

	reason, ok := s.Token().Reason()
	require.True(t, ok)
	assert.Equal(t, cancel.CauseObserverGone, reason.Cause)
	assert.Equal(t, []StatusKind{StatusCreated, StatusStarted, StatusError}, statusKinds(s.StatusLog()))
}

func TestSolver_ChannelObserverReceivesReports(t *testing.T) {
	obs := NewChannelObserver(64)
	s := NewSolver(SolverConfig{Observer: obs})
	_, err := s.Run(context.Background(), twoVars(), ModeStaticOnly)
	require.NoError(t, err)

	var got []StatusKind
	for len(obs.Updates()) > 0 {
		got = append(got, (<-obs.Updates()).Status)
	}
	// Created is recorded before any observer could listen.
	assert.Equal(t, statusKinds(s.StatusLog())[1:], got)
}

func TestSolver_InvalidSketch(t *testing.T) {
	sk := twoVars()
	sk.DynamicProperties = []properties.DynamicProperty{{ID: "x", Kind: properties.DynamicHasAttractor, Dataset: "missing"}}

	s := NewSolver(SolverConfig{})
	_, err := s.Run(context.Background(), sk, ModeFull)
	require.ErrorIs(t, err, properties.ErrInvalidProperty)
	assert.Equal(t, StatusError, s.StatusLog()[len(s.StatusLog())-1].Status)

	_, err = s.Run(context.Background(), sk, ModeFull)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestSolver_NotFinished(t *testing.T) {
	s := NewSolver(SolverConfig{})
	assert.False(t, s.IsFinished())
	_, err := s.Finished()
	assert.ErrorIs(t, err, ErrNotFinished)
	_, err = s.TotalDuration()
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestRunAsync(t *testing.T) {
	s := NewSolver(SolverConfig{})
	run := s.RunAsync(context.Background(), twoVars(), ModeFull)
	res, err := run.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(16), res.NumSatNetworks.Int64())
	assert.Same(t, s, run.Solver())

	select {
	case <-run.Done():
	default:
		t.Fatal("done channel not closed after Wait")
	}
}

func TestFinishedSolver_UpdateFnVariants(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{
		monotonic("a_act", network.SignActivation),
		monotonic("b_inh", network.SignInhibition),
	}
	s := NewSolver(SolverConfig{})
	res, err := s.Run(context.Background(), sk, ModeStaticOnly)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 4}, res.NumUpdateFnsPerVar)

	f, err := s.Finished()
	require.NoError(t, err)
	variants, more, err := f.UpdateFnVariants("A")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, variants, 2)

	_, _, err = f.UpdateFnVariants("Z")
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestRefineRegulations(t *testing.T) {
	sk := twoVars()
	sk.StaticProperties = []properties.StaticProperty{
		monotonic("a_act", network.SignActivation),
		monotonic("b_inh", network.SignInhibition),
	}
	s := NewSolver(SolverConfig{})
	_, err := s.Run(context.Background(), sk, ModeStaticOnly)
	require.NoError(t, err)
	f, err := s.Finished()
	require.NoError(t, err)

	refined, err := RefineRegulations(f, &sk.Model)
	require.NoError(t, err)
	require.Len(t, refined, 2)

	// Only constant functions of A survive: B is non-essential and both
	// monotonicities hold, so the first one tried wins.
	assert.Equal(t, network.SignActivation, refined[0].Sign)
	assert.Equal(t, network.EssentialFalse, refined[0].Essential)

	// B keeps all four functions; nothing can be refined.
	assert.Equal(t, network.SignUnknown, refined[1].Sign)
	assert.Equal(t, network.EssentialUnknown, refined[1].Essential)
}

func TestResults_FormatReport(t *testing.T) {
	r := &Results{
		Mode:           ModeFull,
		NumSatNetworks: big.NewInt(5),
		CompTimeMs:     1500,
		Summary:        "Initial summary.",
		Statuses: []StatusReport{
			{Status: StatusCreated, Message: "Started"},
			{Status: StatusFinishedSuccessfully, NumCandidates: "5", CompTimeMs: 1500, Message: "Finished"},
		},
		NumUpdateFnsPerVar: map[string]int{"var2": 7, "var1": 3, "big": MaxUpdateFnCount},
	}
	r.ExtendSummary(" Additional details.")
	assert.Equal(t, "Initial summary. Additional details.", r.Summary)

	report := r.FormatReport()
	assert.True(t, strings.HasPrefix(report, "Number of satisfying candidates: 5\nComputation time: 1500 milliseconds\n\n"))
	assert.Contains(t, report, "--------------\nExtended summary:\n--------------\nInitial summary. Additional details.\n")
	assert.Contains(t, report, "big: more than 1000\nvar1: 3\nvar2: 7\n")
	assert.True(t, strings.HasSuffix(report, "--------------\nDetailed progress report:\n--------------\nStarted\nFinished\n"))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"full", ModeFull, false},
		{"", ModeFull, false},
		{"Static", ModeStaticOnly, false},
		{"dynamic", ModeDynamicOnly, false},
		{"hybrid", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusReport_JSON(t *testing.T) {
	r := newStatusReport(StatusEvaluatedDynamic, "fp", "3", 42)
	assert.Equal(t, "> 42ms: Evaluated dynamic property `fp` (3 candidates)", r.Message)
	assert.JSONEq(t,
		`{"status":"EvaluatedDynamic","property":"fp","num_candidates":"3","comp_time_ms":42,"message":"> 42ms: Evaluated dynamic property `+"`fp`"+` (3 candidates)"}`,
		r.JSON())

	var k StatusKind
	require.NoError(t, k.UnmarshalText([]byte("DetectedUnsat")))
	assert.Equal(t, StatusDetectedUnsat, k)
	assert.Error(t, k.UnmarshalText([]byte("Nope")))
}
