// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbolic

import "errors"

var (
	// ErrIncompatibleContext is returned when sets from different context
	// families are combined or transferred.
	ErrIncompatibleContext = errors.New("incompatible symbolic context")

	// ErrExtraOutOfRange is returned when an auxiliary variable index exceeds
	// what the context exposes.
	ErrExtraOutOfRange = errors.New("auxiliary variable out of range")

	// ErrUnknownParameter is returned when an expression applies a function
	// symbol the network does not declare.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrArityMismatch is returned when a function symbol is applied to the
	// wrong number of arguments.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrUnboundVariable is returned when an expression names a variable that
	// is neither a network variable nor bound by the caller.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrBDD is returned when the BDD manager fails (e.g. node table exhausted).
	ErrBDD = errors.New("bdd manager failure")
)
