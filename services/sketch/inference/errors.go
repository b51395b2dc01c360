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

import "errors"

var (
	// ErrNotFinished is returned when results are requested from a run that
	// has not reached a terminal status.
	ErrNotFinished = errors.New("computation not yet finished")

	// ErrRunFailed wraps the recorded message of a run that ended in Error.
	ErrRunFailed = errors.New("computation failed")

	// ErrAlreadyStarted is returned when Run is called twice on one solver.
	ErrAlreadyStarted = errors.New("solver already started")

	// ErrUnknownVariable is returned for variant queries on a missing variable.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrInvalidMode is returned when parsing an unrecognized mode.
	ErrInvalidMode = errors.New("invalid inference mode")
)
