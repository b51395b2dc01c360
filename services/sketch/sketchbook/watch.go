// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sketchbook

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 300 * time.Millisecond

// ChangeHandler is called with the sketch path after each settled change.
type ChangeHandler func(ctx context.Context, path string)

// Watcher reports edits to one sketch file.
//
// Description:
//
//	Editors often replace a file instead of writing it in place, so the
//	parent directory is watched and events are filtered by name. Bursts of
//	events within the debounce window collapse into one handler call.
//	Calls never overlap; a change during a call is reported after it.
//
// Thread Safety: Start and Stop are safe for concurrent use.
type Watcher struct {
	path     string
	handler  ChangeHandler
	debounce time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	started  sync.Once
}

// NewWatcher creates a watcher for path. A zero debounce uses
// DefaultDebounce.
func NewWatcher(path string, handler ChangeHandler, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		handler:  handler,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "sketch_watcher"), slog.String("path", abs)),
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the event loop. It returns immediately; the loop ends on
// Stop or when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Do(func() {
		go w.loop(ctx)
	})
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		case <-timer.C:
			w.handler(ctx, w.path)
		}
	}
}
