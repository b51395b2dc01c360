// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cancel provides the cooperative cancellation token polled by
// long-running symbolic computations.
//
// A Token is a flag, not a context: setting it has no immediate effect.
// Computations observe it only at their checkpoints (once per property
// evaluation, once per attractor search job, once per fixpoint iteration),
// so cancellation latency equals the slowest single symbolic operation in
// flight.
package cancel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrCancelled is wrapped by every error returned from a cancelled checkpoint.
var ErrCancelled = errors.New("computation was cancelled")

// -----------------------------------------------------------------------------
// Reasons
// -----------------------------------------------------------------------------

// Cause indicates why cancellation occurred.
type Cause int

const (
	// CauseExplicit indicates a direct Cancel call (API, CLI, Ctrl+C).
	CauseExplicit Cause = iota

	// CauseObserverGone indicates the status receiver was dropped.
	CauseObserverGone

	// CauseTimeout indicates the run exceeded its configured deadline.
	CauseTimeout

	// CauseShutdown indicates the process is shutting down.
	CauseShutdown
)

// String returns the string representation of the cause.
func (c Cause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseObserverGone:
		return "observer_gone"
	case CauseTimeout:
		return "timeout"
	case CauseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Reason describes why a token was cancelled.
type Reason struct {
	// Cause is the category of cancellation.
	Cause Cause

	// Message is a human-readable description. Optional.
	Message string

	// Timestamp is when the first Cancel call happened.
	Timestamp time.Time
}

// -----------------------------------------------------------------------------
// Token
// -----------------------------------------------------------------------------

// Token is a cooperative cancellation flag.
//
// The zero value is ready to use. Only the first Cancel call records its
// reason; later calls are no-ops.
//
// Thread Safety: Safe for concurrent use.
type Token struct {
	flag   atomic.Bool
	mu     sync.Mutex
	reason Reason
	done   chan struct{}
	once   sync.Once
}

// NewToken creates an uncancelled token.
func NewToken() *Token {
	return &Token{}
}

func (t *Token) doneChan() chan struct{} {
	t.once.Do(func() { t.done = make(chan struct{}) })
	return t.done
}

// Cancel sets the flag. Returns false if the token was already cancelled.
func (t *Token) Cancel(cause Cause, message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flag.Load() {
		return false
	}
	t.reason = Reason{Cause: cause, Message: message, Timestamp: time.Now()}
	t.flag.Store(true)
	close(t.doneChan())
	return true
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.flag.Load()
}

// Done returns a channel closed on cancellation.
func (t *Token) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneChan()
}

// Reason returns the recorded reason and whether the token is cancelled.
func (t *Token) Reason() (Reason, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason, t.flag.Load()
}

// Check is the checkpoint poll. It returns nil while the token is live and
// an error wrapping ErrCancelled afterwards. A nil token is never cancelled.
func (t *Token) Check() error {
	if t == nil || !t.flag.Load() {
		return nil
	}
	r, _ := t.Reason()
	if r.Message == "" {
		return fmt.Errorf("%w (%s)", ErrCancelled, r.Cause)
	}
	return fmt.Errorf("%w (%s): %s", ErrCancelled, r.Cause, r.Message)
}

// WatchContext cancels the token when ctx ends. A deadline expiry maps to
// CauseTimeout, anything else to CauseExplicit. The returned stop function
// releases the watcher and must be called once the computation returns.
func (t *Token) WatchContext(ctx context.Context) (stop func()) {
	quit := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-quit:
				return
			default:
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				t.Cancel(CauseTimeout, "deadline exceeded")
				return
			}
			t.Cancel(CauseExplicit, ctx.Err().Error())
		case <-quit:
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(quit) }) }
}
