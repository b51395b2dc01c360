// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package formula

import "errors"

var (
	// ErrInvalidFormula indicates a malformed formula document or tree.
	ErrInvalidFormula = errors.New("invalid formula")

	// ErrUnboundVariable indicates a FOL variable used outside its quantifier.
	ErrUnboundVariable = errors.New("unbound formula variable")

	// ErrUnknownProposition indicates a CTL proposition that is not a network variable.
	ErrUnknownProposition = errors.New("unknown proposition")

	// ErrUnknownNamedSet indicates a reference to a named set that was not supplied.
	ErrUnknownNamedSet = errors.New("unknown named set")
)
