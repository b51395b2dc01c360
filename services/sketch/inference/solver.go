// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inference runs the sketch inference state machine: it narrows the
// colors of a parametrized network property by property and reports its
// progress as a log of status reports.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/dynamic"
	"github.com/AleutianAI/BNSketch/services/sketch/cancel"
	"github.com/AleutianAI/BNSketch/services/sketch/formula"
	"github.com/AleutianAI/BNSketch/services/sketch/network"
	"github.com/AleutianAI/BNSketch/services/sketch/properties"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// cancelledMessage is recorded as the error message of a cancelled run.
const cancelledMessage = "Computation was cancelled."

// SolverConfig configures a Solver.
type SolverConfig struct {
	// Logger for debug output. Nil uses slog.Default().
	Logger *slog.Logger

	// MaxMinimalTrapFreeVars bounds minimal trap space checks.
	// Zero uses dynamic.DefaultMaxMinimalTrapFreeVars.
	MaxMinimalTrapFreeVars int

	// Observer receives every status report after Created. May be nil.
	Observer Observer
}

// Solver runs one inference computation.
//
// Description:
//
//	A solver is created, run once, and then queried. Status reports are
//	appended to an append-only log and forwarded to the observer. The run
//	can be cancelled from any goroutine; the flag is polled before every
//	property and inside long fixpoint and attractor computations.
//
// Thread Safety:
//
//	Run must be called once. StatusLog, Cancel, IsFinished and the other
//	accessors are safe to call concurrently with a running computation.
type Solver struct {
	logger   *slog.Logger
	cfg      SolverConfig
	observer Observer
	token    *cancel.Token
	started  atomic.Bool

	// Owned by the running goroutine.
	net   *network.Network
	graph *symbolic.Graph
	start time.Time

	mu       sync.RWMutex
	statuses []StatusReport
	finished *FinishedSolver
	errMsg   string
}

// NewSolver creates a solver and records the Created status.
func NewSolver(cfg SolverConfig) *Solver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Solver{
		logger:   logger.With(slog.String("component", "inference_solver")),
		cfg:      cfg,
		observer: cfg.Observer,
		token:    cancel.NewToken(),
	}
	created := newStatusReport(StatusCreated, "", "", 0)
	s.statuses = []StatusReport{created}
	s.logger.Debug(created.Message)
	return s
}

// Cancel sets the cancellation flag. The run stops at its next checkpoint.
func (s *Solver) Cancel() {
	s.token.Cancel(cancel.CauseExplicit, "cancelled by caller")
}

// Token exposes the cancellation token, for example to wire shutdown.
func (s *Solver) Token() *cancel.Token { return s.token }

// StatusLog returns a copy of the status log.
func (s *Solver) StatusLog() []StatusReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StatusReport, len(s.statuses))
	copy(out, s.statuses)
	return out
}

func (s *Solver) last() StatusReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[len(s.statuses)-1]
}

// IsFinished reports whether the run ended, successfully or not.
func (s *Solver) IsFinished() bool {
	return s.last().Status.Terminal()
}

// NumFinishedStaticProps counts EvaluatedStatic reports.
func (s *Solver) NumFinishedStaticProps() int { return s.count(StatusEvaluatedStatic) }

// NumFinishedDynamicProps counts EvaluatedDynamic reports.
func (s *Solver) NumFinishedDynamicProps() int { return s.count(StatusEvaluatedDynamic) }

func (s *Solver) count(kind StatusKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.statuses {
		if r.Status == kind {
			n++
		}
	}
	return n
}

// TotalDuration returns the run time of a successful run.
func (s *Solver) TotalDuration() (time.Duration, error) {
	last := s.last()
	switch last.Status {
	case StatusFinishedSuccessfully:
		return time.Duration(last.CompTimeMs) * time.Millisecond, nil
	case StatusError:
		return 0, fmt.Errorf("%w: there was an error", ErrRunFailed)
	default:
		return 0, ErrNotFinished
	}
}

// Finished returns the outcome of a successful run.
//
// Outputs:
//
//	*FinishedSolver - Network, canonical graph, satisfying colors, results.
//	error - ErrNotFinished while running; wraps ErrRunFailed after an error.
func (s *Solver) Finished() (*FinishedSolver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.statuses[len(s.statuses)-1].Status {
	case StatusFinishedSuccessfully:
		return s.finished, nil
	case StatusError:
		if s.errMsg == "" {
			return nil, fmt.Errorf("%w: internal error", ErrRunFailed)
		}
		return nil, fmt.Errorf("%w: %s", ErrRunFailed, s.errMsg)
	default:
		return nil, ErrNotFinished
	}
}

// -----------------------------------------------------------------------------
// Status posting
// -----------------------------------------------------------------------------

func (s *Solver) candidates() string {
	if s.graph == nil {
		return ""
	}
	return s.graph.UnitColors().Cardinality().String()
}

// post appends a report and forwards it.
func (s *Solver) post(kind StatusKind, property string) {
	s.publish(kind, property, nil)
}

// publish appends a report, runs locked while the log lock is held, and
// then forwards the report. An observer that is gone cancels the run.
func (s *Solver) publish(kind StatusKind, property string, locked func(StatusReport)) {
	ms := time.Since(s.start).Milliseconds()
	report := newStatusReport(kind, property, s.candidates(), ms)
	s.logger.Debug(report.Message)
	recordStatus(kind)

	s.mu.Lock()
	s.statuses = append(s.statuses, report)
	if locked != nil {
		locked(report)
	}
	s.mu.Unlock()

	if s.observer != nil && !s.observer.Notify(report) {
		if s.token.Cancel(cancel.CauseObserverGone, "status observer is gone") {
			s.logger.Info("status observer gone, cancelling run")
		}
	}
}

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

// Run executes the inference on sk.
//
// Description:
//
//	Validates and pre-processes the sketch, evaluates static properties on
//	a graph with auxiliary variables, moves the surviving colors to a
//	dynamic graph and evaluates dynamic properties, then finalizes the
//	result in the canonical context. Which groups run depends on mode.
//	Unsatisfiability stops evaluation early and is a successful outcome.
//
// Inputs:
//
//	ctx - Cancelling ctx cancels the run at its next checkpoint.
//	sk - The sketch. Not modified.
//	mode - Which property groups to evaluate.
//
// Outputs:
//
//	*Results - Summary of the run.
//	error - Wraps cancel.ErrCancelled on cancellation, the input error on
//	  invalid sketches, or the evaluation error. The status log ends with
//	  Error in every failure case.
func (s *Solver) Run(ctx context.Context, sk *sketchbook.Sketch, mode Mode) (*Results, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	ctx, span := tracer.Start(ctx, "inference.Run",
		trace.WithAttributes(attribute.String("inference.mode", mode.String())),
	)
	defer span.End()
	stop := s.token.WatchContext(ctx)
	defer stop()

	s.start = time.Now()
	results, err := s.run(ctx, sk, mode)
	elapsed := time.Since(s.start)
	if err != nil {
		msg := err.Error()
		outcome := "error"
		if errors.Is(err, cancel.ErrCancelled) {
			msg = cancelledMessage
			outcome = "cancelled"
		}
		s.publish(StatusError, "", func(StatusReport) { s.errMsg = msg })
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		recordRun(mode, outcome, elapsed)
		s.logger.Warn("inference failed", slog.String("error", err.Error()))
		return nil, err
	}

	outcome := "sat"
	if results.NumSatNetworks.Sign() == 0 {
		outcome = "unsat"
	}
	span.SetAttributes(attribute.String("inference.candidates", results.NumSatNetworks.String()))
	recordRun(mode, outcome, elapsed)
	s.logger.Info("inference finished",
		slog.String("mode", mode.String()),
		slog.String("candidates", results.NumSatNetworks.String()),
		slog.Int64("ms", results.CompTimeMs),
	)
	return results, nil
}

func (s *Solver) run(ctx context.Context, sk *sketchbook.Sketch, mode Mode) (*Results, error) {
	s.post(StatusStarted, "")
	if err := s.token.Check(); err != nil {
		return nil, err
	}

	// Step 1: inputs.
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	net, err := sk.DefaultNetwork()
	if err != nil {
		return nil, err
	}
	s.net = net
	static := sk.AllStaticProperties()
	properties.SortStatic(static)
	dynamicProps := append([]properties.DynamicProperty(nil), sk.DynamicProperties...)
	properties.SortDynamic(dynamicProps)

	enc := properties.NewEncoder(&sk.Model, net)
	extras, err := enc.ExtraCount(refinementProperties(&sk.Model))
	if err != nil {
		return nil, err
	}
	if mode.usesStatic() {
		staticExtras, err := enc.ExtraCount(static)
		if err != nil {
			return nil, err
		}
		extras = max(extras, staticExtras)
	}
	s.post(StatusProcessedInputs, "")

	var summary strings.Builder
	symCtx, err := symbolic.NewContext(net, extras)
	if err != nil {
		return nil, err
	}

	// Step 2: static properties.
	if mode.usesStatic() {
		g, err := symbolic.NewGraph(symCtx)
		if err != nil {
			return nil, err
		}
		s.graph = g
		s.post(StatusGeneratedContextStatic, "")
		fmt.Fprintf(&summary, "N. of candidates before evaluating any properties: %s\n", s.candidates())
		if err := s.evalStatic(ctx, enc, static); err != nil {
			return nil, err
		}
		fmt.Fprintf(&summary, "N. of candidates after evaluating static props: %s\n", s.candidates())
	}

	// Step 3: dynamic properties.
	unsat := s.graph != nil && s.graph.UnitColors().IsEmpty()
	if mode.usesDynamic() && !unsat {
		if s.graph == nil {
			g, err := symbolic.NewGraph(symCtx)
			if err != nil {
				return nil, err
			}
			s.graph = g
		}
		g, err := s.graph.WithContext(symCtx.Canonical())
		if err != nil {
			return nil, err
		}
		s.graph = g
		s.post(StatusGeneratedContextDynamic, "")
		if err := s.evalDynamic(ctx, sk.DatasetIndex(), dynamicProps); err != nil {
			return nil, err
		}
		fmt.Fprintf(&summary, "N. of candidates after evaluating dynamic props: %s\n", s.candidates())
	}

	return s.finalize(mode, &summary)
}

func (s *Solver) evalStatic(ctx context.Context, enc *properties.Encoder, props []properties.StaticProperty) error {
	ctx, span := startPhaseSpan(ctx, "inference.evalStatic", len(props))
	defer span.End()
	folEval := formula.NewSymbolicEvaluator(s.logger, s.token.Check)

	for _, p := range props {
		if err := s.token.Check(); err != nil {
			return err
		}
		began := time.Now()
		f, err := enc.Encode(p)
		if err != nil {
			return err
		}
		colors, err := folEval.EvaluateFOL(f, s.graph, nil)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("static property %q: %w", p.ID, err)
		}
		s.graph = s.graph.Restrict(colors)
		remaining := s.graph.UnitColors()
		recordProperty(ctx, "static", string(p.Kind), time.Since(began), remaining.ApproxCardinality())
		s.post(StatusEvaluatedStatic, p.ID)
		if remaining.IsEmpty() {
			s.post(StatusDetectedUnsat, "")
			return nil
		}
	}
	s.post(StatusEvaluatedAllStatic, "")
	return nil
}

func (s *Solver) evalDynamic(ctx context.Context, datasets map[string]*network.Dataset, props []properties.DynamicProperty) error {
	ctx, span := startPhaseSpan(ctx, "inference.evalDynamic", len(props))
	defer span.End()
	ev := dynamic.NewEvaluator(dynamic.Config{
		Logger:                 s.logger,
		Datasets:               datasets,
		Check:                  s.token.Check,
		MaxMinimalTrapFreeVars: s.cfg.MaxMinimalTrapFreeVars,
	})

	for _, p := range props {
		if err := s.token.Check(); err != nil {
			return err
		}
		began := time.Now()
		progress := func(msg string) {
			s.logger.Debug(msg, slog.String("property", p.ID))
		}
		colors, err := ev.Evaluate(ctx, p, s.graph, progress)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("dynamic property %q: %w", p.ID, err)
		}
		s.graph = s.graph.Restrict(colors)
		remaining := s.graph.UnitColors()
		recordProperty(ctx, "dynamic", string(p.Kind), time.Since(began), remaining.ApproxCardinality())
		s.post(StatusEvaluatedDynamic, p.ID)
		if remaining.IsEmpty() {
			s.post(StatusDetectedUnsat, "")
			return nil
		}
	}
	s.post(StatusEvaluatedAllDynamic, "")
	return nil
}

// finalize moves the admissible colors into the canonical context and
// assembles the results.
func (s *Solver) finalize(mode Mode, summary *strings.Builder) (*Results, error) {
	canonical, err := s.graph.WithContext(s.graph.Context().Canonical())
	if err != nil {
		return nil, err
	}
	sat := canonical.UnitColors()
	s.graph = canonical
	num := sat.Cardinality()
	if num.Sign() == 0 {
		fmt.Fprintf(summary, "Sketch found unsatisfiable after processing %d static and %d dynamic properties\n",
			s.NumFinishedStaticProps(), s.NumFinishedDynamicProps())
	}

	results := &Results{
		Mode:               mode,
		NumSatNetworks:     num,
		Summary:            summary.String(),
		NumUpdateFnsPerVar: updateFnCounts(sat, s.net),
	}
	s.publish(StatusFinishedSuccessfully, "", func(r StatusReport) {
		results.CompTimeMs = r.CompTimeMs
		results.Statuses = append([]StatusReport(nil), s.statuses...)
		s.finished = &FinishedSolver{Network: s.net, Graph: canonical, SatColors: sat, Results: results}
	})
	return results, nil
}
