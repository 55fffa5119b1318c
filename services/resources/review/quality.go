// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package review classifies the trustworthiness of upstream review text.
//
// # Description
//
// The review is produced by a generative model and is frequently malformed:
// empty fields, "unable to parse" placeholders, or list ordinals ("Item 2")
// leaking into a field instead of prose. Validate counts those violations
// and maps the count to a three-level Status. The status only gates how much
// the anchor extractor trusts the review; it never rejects a request.
package review

import (
	"regexp"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

// Status is the three-level trust classification of a review.
type Status string

const (
	StatusValid    Status = datatypes.ReviewQualityValid
	StatusDegraded Status = datatypes.ReviewQualityDegraded
	StatusInvalid  Status = datatypes.ReviewQualityInvalid
)

// Violation kinds.
const (
	ViolationEmpty   = "empty"
	ViolationOrdinal = "ordinal"
)

// maxDegradedViolations is the largest violation count still classified as
// degraded. Anything above it is invalid.
const maxDegradedViolations = 2

var (
	// unparseablePattern matches placeholder text emitted when the upstream
	// model output could not be parsed.
	unparseablePattern = regexp.MustCompile(`(?i)^\W*(unable|failed|could not|couldn't|cannot) (to )?(parse|extract|analy[sz]e|generate)\b|^\W*(n/?a|none|null|undefined|no data)\W*$`)

	// ordinalPattern matches fields that are only a number or an ordinal
	// label such as "Item 3", "section 2:" or "Point #4".
	ordinalPattern = regexp.MustCompile(`(?i)^\W*((item|section|point|step|part)\s*#?\s*)?\d+[.):]?\W*$`)
)

// Violation records one field that failed a pattern family.
type Violation struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

// Quality is the result of Validate.
type Quality struct {
	Status     Status      `json:"status"`
	Violations []Violation `json:"violations"`
}

// Count returns the number of violations.
func (q Quality) Count() int {
	return len(q.Violations)
}

// Validate classifies a ReviewResponse.
//
// # Description
//
// Each of the six fields is tested against two pattern families: empty or
// placeholder text, and ordinal contamination. A field contributes at most
// one violation. Zero violations is valid, one or two is degraded, more is
// invalid.
//
// # Inputs
//
//   - resp: The upstream review. Raw model output is not inspected.
//
// # Outputs
//
//   - Quality: Status plus the per-field violations in field order.
//
// # Examples
//
//	q := review.Validate(datatypes.ReviewResponse{})
//	// q.Status == review.StatusInvalid, q.Count() == 6
func Validate(resp datatypes.ReviewResponse) Quality {
	var violations []Violation
	for _, field := range resp.Fields() {
		if kind, bad := classifyField(field.Value); bad {
			violations = append(violations, Violation{Field: field.Name, Kind: kind})
		}
	}
	return Quality{
		Status:     statusFor(len(violations)),
		Violations: violations,
	}
}

func classifyField(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || unparseablePattern.MatchString(trimmed) {
		return ViolationEmpty, true
	}
	if ordinalPattern.MatchString(trimmed) {
		return ViolationOrdinal, true
	}
	return "", false
}

func statusFor(count int) Status {
	switch {
	case count == 0:
		return StatusValid
	case count <= maxDegradedViolations:
		return StatusDegraded
	default:
		return StatusInvalid
	}
}
