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
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Mode
// -----------------------------------------------------------------------------

// Mode selects which property groups a run evaluates.
type Mode int

const (
	// ModeFull evaluates static and then dynamic properties.
	ModeFull Mode = iota

	// ModeStaticOnly evaluates static properties only.
	ModeStaticOnly

	// ModeDynamicOnly evaluates dynamic properties only.
	ModeDynamicOnly
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeStaticOnly:
		return "static"
	case ModeDynamicOnly:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ParseMode parses "full", "static" or "dynamic".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, nil
	case "static":
		return ModeStaticOnly, nil
	case "dynamic":
		return ModeDynamicOnly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) usesStatic() bool  { return m != ModeDynamicOnly }
func (m Mode) usesDynamic() bool { return m != ModeStaticOnly }

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

// StatusKind is a step of the solver state machine.
type StatusKind int

const (
	StatusCreated StatusKind = iota
	StatusStarted
	StatusProcessedInputs
	StatusGeneratedContextStatic
	StatusGeneratedContextDynamic
	StatusEvaluatedStatic
	StatusEvaluatedAllStatic
	StatusEvaluatedDynamic
	StatusEvaluatedAllDynamic
	StatusDetectedUnsat
	StatusFinishedSuccessfully
	StatusError
)

var statusNames = [...]string{
	StatusCreated:                 "Created",
	StatusStarted:                 "Started",
	StatusProcessedInputs:         "ProcessedInputs",
	StatusGeneratedContextStatic:  "GeneratedContextStatic",
	StatusGeneratedContextDynamic: "GeneratedContextDynamic",
	StatusEvaluatedStatic:         "EvaluatedStatic",
	StatusEvaluatedAllStatic:      "EvaluatedAllStatic",
	StatusEvaluatedDynamic:        "EvaluatedDynamic",
	StatusEvaluatedAllDynamic:     "EvaluatedAllDynamic",
	StatusDetectedUnsat:           "DetectedUnsat",
	StatusFinishedSuccessfully:    "FinishedSuccessfully",
	StatusError:                   "Error",
}

// String returns the string representation of the status kind.
func (k StatusKind) String() string {
	if k < 0 || int(k) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k StatusKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StatusKind) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*k = StatusKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Terminal reports whether no status can follow k.
func (k StatusKind) Terminal() bool {
	return k == StatusFinishedSuccessfully || k == StatusError
}

// showsCandidates reports whether the status message carries the current
// candidate count.
func (k StatusKind) showsCandidates() bool {
	switch k {
	case StatusCreated, StatusStarted, StatusProcessedInputs,
		StatusEvaluatedAllStatic, StatusEvaluatedAllDynamic,
		StatusDetectedUnsat, StatusError:
		return false
	default:
		return true
	}
}

func (k StatusKind) describe(property string) string {
	switch k {
	case StatusCreated:
		return "Created solver instance"
	case StatusStarted:
		return "Started inference computation"
	case StatusProcessedInputs:
		return "Pre-processed all inputs"
	case StatusGeneratedContextStatic:
		return "Starting to evaluate static properties"
	case StatusGeneratedContextDynamic:
		return "Starting to evaluate dynamic properties"
	case StatusEvaluatedStatic:
		return fmt.Sprintf("Evaluated static property `%s`", property)
	case StatusEvaluatedDynamic:
		return fmt.Sprintf("Evaluated dynamic property `%s`", property)
	case StatusEvaluatedAllStatic:
		return "Evaluated all static properties"
	case StatusEvaluatedAllDynamic:
		return "Evaluated all dynamic properties"
	case StatusDetectedUnsat:
		return "Found that sketch is unsatisfiable"
	case StatusFinishedSuccessfully:
		return "Successfully finished computation"
	default:
		return "Encountered error during computation"
	}
}

// StatusReport is one immutable entry of the status log.
type StatusReport struct {
	Status StatusKind `json:"status"`

	// Property is the id of the evaluated property for EvaluatedStatic and
	// EvaluatedDynamic.
	Property string `json:"property,omitempty"`

	// NumCandidates is the exact number of remaining candidates in decimal,
	// empty when no graph exists yet.
	NumCandidates string `json:"num_candidates,omitempty"`

	// CompTimeMs is the time since the run started, in milliseconds.
	CompTimeMs int64 `json:"comp_time_ms"`

	Message string `json:"message"`
}

func newStatusReport(kind StatusKind, property, candidates string, ms int64) StatusReport {
	suffix := ""
	if candidates != "" && kind.showsCandidates() {
		suffix = fmt.Sprintf(" (%s candidates)", candidates)
	}
	return StatusReport{
		Status:        kind,
		Property:      property,
		NumCandidates: candidates,
		CompTimeMs:    ms,
		Message:       fmt.Sprintf("> %dms: %s%s", ms, kind.describe(property), suffix),
	}
}

// JSON returns the report as a JSON document.
func (r StatusReport) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// -----------------------------------------------------------------------------
// Observers
// -----------------------------------------------------------------------------

// Observer receives status reports as the solver posts them.
//
// Notify must not block. Returning false tells the solver the observer is
// gone, which cancels the run.
type Observer interface {
	Notify(report StatusReport) bool
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(StatusReport) bool

// Notify calls f.
func (f ObserverFunc) Notify(r StatusReport) bool { return f(r) }

// ChannelObserver forwards reports to a buffered channel.
//
// Description:
//
//	A full buffer drops the report; the solver never waits for a slow
//	receiver. The receiving side calls Close when it stops listening, and
//	the next Notify returns false.
//
// Thread Safety: Safe for concurrent use.
type ChannelObserver struct {
	ch   chan StatusReport
	gone chan struct{}
	once sync.Once
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{
		ch:   make(chan StatusReport, buffer),
		gone: make(chan struct{}),
	}
}

// Updates returns the receive side.
func (o *ChannelObserver) Updates() <-chan StatusReport { return o.ch }

// Close marks the receiver as gone. Safe to call more than once.
func (o *ChannelObserver) Close() {
	o.once.Do(func() { close(o.gone) })
}

// Notify implements Observer.
func (o *ChannelObserver) Notify(r StatusReport) bool {
	select {
	case <-o.gone:
		return false
	default:
	}
	select {
	case o.ch <- r:
	case <-o.gone:
		return false
	default:
	}
	return true
}
