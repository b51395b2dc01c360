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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a sketch document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from the file extension. Unknown
// extensions are read as YAML, which also accepts JSON documents.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, decodes and validates a sketch file.
func Load(path string) (*Sketch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sketch %s: %w", path, err)
	}
	s, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("loading sketch %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a sketch document. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Sketch, error) {
	var s Sketch
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("%w: decoding json: %v", ErrInvalidSketch, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("%w: decoding yaml: %v", ErrInvalidSketch, err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes a sketch in the given format.
func Marshal(s *Sketch, format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(s, "", "  ")
	}
	return yaml.Marshal(s)
}
