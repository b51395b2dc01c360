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

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Sign
// -----------------------------------------------------------------------------

// Sign is the monotonicity of a regulation or of a function argument.
type Sign int

const (
	// SignUnknown places no constraint on the regulation.
	SignUnknown Sign = iota

	// SignActivation requires the target to be non-decreasing in the regulator.
	SignActivation

	// SignInhibition requires the target to be non-increasing in the regulator.
	SignInhibition

	// SignDual requires the regulation to be neither activating nor inhibiting.
	SignDual
)

// String returns the string representation of the sign.
func (s Sign) String() string {
	switch s {
	case SignActivation:
		return "activation"
	case SignInhibition:
		return "inhibition"
	case SignDual:
		return "dual"
	default:
		return "unknown"
	}
}

// ParseSign converts a textual sign into a Sign.
//
// Accepts the long names as well as the arrow shorthands used in
// regulation graphs ("->", "-|", "-*", "-?").
func ParseSign(s string) (Sign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "?", "-?":
		return SignUnknown, nil
	case "activation", "+", "->":
		return SignActivation, nil
	case "inhibition", "-", "-|":
		return SignInhibition, nil
	case "dual", "*", "-*":
		return SignDual, nil
	default:
		return SignUnknown, fmt.Errorf("%w: unknown sign %q", ErrInvalidModel, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sign) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sign) UnmarshalText(text []byte) error {
	parsed, err := ParseSign(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// -----------------------------------------------------------------------------
// Essentiality
// -----------------------------------------------------------------------------

// Essentiality states whether an input must influence the output.
type Essentiality int

const (
	// EssentialUnknown places no constraint on the input.
	EssentialUnknown Essentiality = iota

	// EssentialTrue requires the input to influence the output for some context.
	EssentialTrue

	// EssentialFalse requires the input to never influence the output.
	EssentialFalse
)

// String returns the string representation of the essentiality.
func (e Essentiality) String() string {
	switch e {
	case EssentialTrue:
		return "true"
	case EssentialFalse:
		return "false"
	default:
		return "unknown"
	}
}

// ParseEssentiality converts a textual essentiality into an Essentiality.
func ParseEssentiality(s string) (Essentiality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "?":
		return EssentialUnknown, nil
	case "true", "yes", "essential":
		return EssentialTrue, nil
	case "false", "no", "non-essential":
		return EssentialFalse, nil
	default:
		return EssentialUnknown, fmt.Errorf("%w: unknown essentiality %q", ErrInvalidModel, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Essentiality) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Essentiality) UnmarshalText(text []byte) error {
	parsed, err := ParseEssentiality(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
