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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/BNSketch/services/sketch/inference"
)

const keyPrefix = "run/"

var (
	// ErrNotFound is returned for unknown run ids.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid run id")
)

// Outcome is the terminal state of an archived run.
type Outcome string

const (
	OutcomeFinished  Outcome = "finished"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Record is one archived run.
type Record struct {
	ID         string                   `json:"id"`
	SketchName string                   `json:"sketch_name,omitempty"`
	Mode       inference.Mode           `json:"mode"`
	Outcome    Outcome                  `json:"outcome"`
	Error      string                   `json:"error,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Results    *inference.Results       `json:"results,omitempty"`
	Statuses   []inference.StatusReport `json:"statuses,omitempty"`
}

// Archive stores run records keyed by UUID.
//
// Thread Safety: Safe for concurrent use.
type Archive struct {
	db     *db
	logger *slog.Logger
}

// Open opens the archive described by cfg.
func Open(cfg Config) (*Archive, error) {
	d, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{db: d, logger: logger.With(slog.String("component", "archive"))}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.close()
}

// NewID returns a fresh run id.
func NewID() string {
	return uuid.NewString()
}

func key(id string) ([]byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return []byte(keyPrefix + id), nil
}

// Put stores rec, assigning an id when it has none, and returns the id.
func (a *Archive) Put(ctx context.Context, rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	k, err := key(rec.ID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode run %s: %w", rec.ID, err)
	}
	if err := a.db.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(k, data)
	}); err != nil {
		return "", fmt.Errorf("store run %s: %w", rec.ID, err)
	}
	a.logger.Debug("archived run", slog.String("id", rec.ID), slog.String("outcome", string(rec.Outcome)))
	return rec.ID, nil
}

// Get loads the record with the given id.
func (a *Archive) Get(ctx context.Context, id string) (*Record, error) {
	k, err := key(id)
	if err != nil {
		return nil, err
	}
	var rec Record
	err = a.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record, most recently started first.
func (a *Archive) List(ctx context.Context) ([]*Record, error) {
	var out []*Record
	err := a.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// Delete removes a record. Deleting a missing id returns ErrNotFound.
func (a *Archive) Delete(ctx context.Context, id string) error {
	k, err := key(id)
	if err != nil {
		return err
	}
	return a.db.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

// RecordFromSolver builds a record from a solver that has stopped.
func RecordFromSolver(id, sketchName string, mode inference.Mode, started time.Time, s *inference.Solver) *Record {
	rec := &Record{
		ID:         id,
		SketchName: sketchName,
		Mode:       mode,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Statuses:   s.StatusLog(),
	}
	f, err := s.Finished()
	switch {
	case err == nil:
		rec.Outcome = OutcomeFinished
		rec.Results = f.Results
	case s.Token().Cancelled():
		rec.Outcome = OutcomeCancelled
		rec.Error = err.Error()
	default:
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
	}
	return rec
}
