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
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the tags used by the model structs to v:
//
//	identifier   letters, digits and underscores, not starting with a digit
//	observation  a string over '0', '1' and '*'
//
// Must be called before validating any struct of this package.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("identifier", validateIdentifier); err != nil {
		return err
	}
	return v.RegisterValidation("observation", validateObservation)
}

func validateIdentifier(fl validator.FieldLevel) bool {
	return ValidIdentifier(fl.Field().String())
}

func validateObservation(fl validator.FieldLevel) bool {
	return strings.Trim(fl.Field().String(), "01*") == ""
}
