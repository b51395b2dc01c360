// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	errShuttingDown = errors.New("server is shutting down")
	errAtCapacity   = errors.New("too many runs in flight")
)

var (
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bnsketch",
		Subsystem: "server",
		Name:      "active_runs",
		Help:      "Inference runs currently executing.",
	})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bnsketch",
		Subsystem: "server",
		Name:      "submissions_total",
		Help:      "Run submissions by result.",
	}, []string{"result"})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bnsketch",
		Subsystem: "server",
		Name:      "stream_clients",
		Help:      "Open status websocket connections.",
	})
)

// RecordSubmission counts a submission outcome: accepted, rate_limited,
// at_capacity, invalid or shutting_down.
func RecordSubmission(result string) {
	submissions.WithLabelValues(result).Inc()
}
