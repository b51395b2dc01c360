// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package network

import "errors"

// Sentinel errors for the network model.
var (
	// ErrInvalidModel indicates a structurally broken model (duplicate ids,
	// dangling regulations, arity mismatches).
	ErrInvalidModel = errors.New("invalid model")

	// ErrUnknownVariable indicates a reference to a variable that is not declared.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnknownFunction indicates a reference to an undeclared function symbol.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrInvalidExpression indicates a malformed update expression.
	ErrInvalidExpression = errors.New("invalid expression")

	// ErrInvalidObservation indicates an observation that does not match its dataset.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrUnknownDataset indicates a reference to a dataset that does not exist.
	ErrUnknownDataset = errors.New("unknown dataset")
)
