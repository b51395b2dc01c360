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

	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

// Run is a handle on a computation started with RunAsync.
type Run struct {
	solver  *Solver
	done    chan struct{}
	results *Results
	err     error
}

// RunAsync starts s.Run on its own goroutine and returns immediately.
//
// The goroutine exits when the computation ends; cancel it through ctx,
// Solver.Cancel or by closing the observer.
func (s *Solver) RunAsync(ctx context.Context, sk *sketchbook.Sketch, mode Mode) *Run {
	r := &Run{solver: s, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.results, r.err = s.Run(ctx, sk, mode)
	}()
	return r
}

// Solver returns the solver executing the run.
func (r *Run) Solver() *Solver { return r.solver }

// Done is closed when the run ends.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its outcome.
func (r *Run) Wait() (*Results, error) {
	<-r.done
	return r.results, r.err
}

// WaitContext is Wait bounded by ctx. It does not cancel the run.
func (r *Run) WaitContext(ctx context.Context) (*Results, error) {
	select {
	case <-r.done:
		return r.results, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
