// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dynamic

import "errors"

var (
	// ErrUnknownDataset is returned when a property references a dataset
	// the evaluator was not given.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrUnknownObservation is returned for a missing observation id.
	ErrUnknownObservation = errors.New("unknown observation")

	// ErrEmptyDataset is returned when an algorithm needs at least one
	// observation.
	ErrEmptyDataset = errors.New("dataset has no observations")

	// ErrTooManyFreeVariables is returned when minimality of a trap space
	// would require enumerating more subspaces than configured.
	ErrTooManyFreeVariables = errors.New("too many free variables for minimal trap space check")

	// ErrUnsupportedProperty is returned for an unknown property or wildcard kind.
	ErrUnsupportedProperty = errors.New("unsupported dynamic property")
)
