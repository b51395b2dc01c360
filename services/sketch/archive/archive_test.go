// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/BNSketch/services/sketch/inference"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

func openTest(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_PutGet(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()

	rec := &Record{
		SketchName: "toggle",
		Mode:       inference.ModeStaticOnly,
		Outcome:    OutcomeFinished,
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: &inference.Results{
			Mode:               inference.ModeStaticOnly,
			NumSatNetworks:     big.NewInt(12),
			NumUpdateFnsPerVar: map[string]int{"A": 3},
		},
	}
	id, err := a.Put(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.ID)

	got, err := a.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "toggle", got.SketchName)
	assert.Equal(t, inference.ModeStaticOnly, got.Mode)
	assert.Equal(t, OutcomeFinished, got.Outcome)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	require.NotNil(t, got.Results)
	assert.Equal(t, int64(12), got.Results.NumSatNetworks.Int64())
	assert.Equal(t, 3, got.Results.NumUpdateFnsPerVar["A"])
}

func TestArchive_Errors(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"not a uuid", "run-1", ErrInvalidID},
		{"unknown", NewID(), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Get(ctx, tt.id)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, a.Delete(ctx, tt.id), tt.want)
		})
	}

	cancelled, stop := context.WithCancel(ctx)
	stop()
	_, err := a.Put(cancelled, &Record{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchive_ListAndDelete(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := a.Put(ctx, &Record{Outcome: OutcomeFinished, StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)

	require.NoError(t, a.Delete(ctx, ids[1]))
	list, err = a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRecordFromSolver(t *testing.T) {
	sk := &sketchbook.Sketch{Model: network.Model{
		Variables:   []network.Variable{{ID: "A"}},
		Regulations: []network.Regulation{{Regulator: "A", Target: "A"}},
	}}

	t.Run("finished", func(t *testing.T) {
		s := inference.NewSolver(inference.SolverConfig{})
		_, err := s.Run(context.Background(), sk, inference.ModeFull)
		require.NoError(t, err)
		rec := RecordFromSolver(NewID(), "self", inference.ModeFull, time.Now(), s)
		assert.Equal(t, OutcomeFinished, rec.Outcome)
		require.NotNil(t, rec.Results)
		assert.Equal(t, int64(4), rec.Results.NumSatNetworks.Int64())
	})

	t.Run("cancelled", func(t *testing.T) {
		s := inference.NewSolver(inference.SolverConfig{})
		s.Cancel()
		_, err := s.Run(context.Background(), sk, inference.ModeFull)
		require.Error(t, err)
		rec := RecordFromSolver(NewID(), "self", inference.ModeFull, time.Now(), s)
		assert.Equal(t, OutcomeCancelled, rec.Outcome)
		assert.Contains(t, rec.Error, "Computation was cancelled.")
	})
}
