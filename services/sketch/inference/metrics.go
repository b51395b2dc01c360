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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for inference runs.
var (
	tracer = otel.Tracer("bnsketch.inference")
	meter  = otel.Meter("bnsketch.inference")
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// runsTotal counts finished runs.
	// Labels: mode, outcome (sat, unsat, error, cancelled)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bnsketch",
		Subsystem: "inference",
		Name:      "runs_total",
		Help:      "Total inference runs by mode and outcome",
	}, []string{"mode", "outcome"})

	// runDuration measures whole runs.
	// Labels: mode
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bnsketch",
		Subsystem: "inference",
		Name:      "run_duration_seconds",
		Help:      "Inference run duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800},
	}, []string{"mode"})

	// propertyEvaluations counts evaluated properties.
	// Labels: phase (static, dynamic), kind
	propertyEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bnsketch",
		Subsystem: "inference",
		Name:      "property_evaluations_total",
		Help:      "Total property evaluations by phase and kind",
	}, []string{"phase", "kind"})

	// statusEvents counts posted status reports.
	// Labels: status
	statusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bnsketch",
		Subsystem: "inference",
		Name:      "status_events_total",
		Help:      "Total solver status reports by status",
	}, []string{"status"})
)

// =============================================================================
// OpenTelemetry Metrics
// =============================================================================

var (
	propertyLatency metric.Float64Histogram
	candidatesLeft  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the OTel instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		propertyLatency, err = meter.Float64Histogram(
			"inference_property_duration_seconds",
			metric.WithDescription("Duration of single property evaluations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		candidatesLeft, err = meter.Float64Histogram(
			"inference_candidates_remaining",
			metric.WithDescription("Approximate number of candidates left after a property"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startPhaseSpan(ctx context.Context, name string, count int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attribute.Int("inference.properties", count)),
	)
}

// recordProperty records one property evaluation.
func recordProperty(ctx context.Context, phase, kind string, d time.Duration, remaining float64) {
	propertyEvaluations.WithLabelValues(phase, kind).Inc()
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("kind", kind),
	)
	propertyLatency.Record(ctx, d.Seconds(), attrs)
	candidatesLeft.Record(ctx, remaining, attrs)
}

// recordRun records a finished run.
func recordRun(mode Mode, outcome string, d time.Duration) {
	runsTotal.WithLabelValues(mode.String(), outcome).Inc()
	runDuration.WithLabelValues(mode.String()).Observe(d.Seconds())
}

func recordStatus(kind StatusKind) {
	statusEvents.WithLabelValues(kind.String()).Inc()
}
