// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package review

import (
	"testing"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/stretchr/testify/assert"
)

func validReview() datatypes.ReviewResponse {
	return datatypes.ReviewResponse{
		Complexity: "Uses recursion with memoization to avoid recomputing subproblems.",
		Purpose:    "Computes Fibonacci numbers for a UI counter.",
		Behavioral: "Pure function, deterministic for the same input.",
		Risks:      "Deep recursion may overflow the stack for large n.",
		EdgeCases:  "Negative input is not handled.",
		Summary:    "A small memoized Fibonacci helper.",
	}
}

func TestValidate_AllFieldsValid(t *testing.T) {
	q := Validate(validReview())
	assert.Equal(t, StatusValid, q.Status)
	assert.Zero(t, q.Count())
}

func TestValidate_AllFieldsEmptyIsInvalid(t *testing.T) {
	q := Validate(datatypes.ReviewResponse{})
	assert.Equal(t, StatusInvalid, q.Status)
	assert.Equal(t, 6, q.Count())
	for _, v := range q.Violations {
		assert.Equal(t, ViolationEmpty, v.Kind)
	}
}

func TestValidate_Degraded(t *testing.T) {
	r := validReview()
	r.Risks = "   "
	r.EdgeCases = "Item 2"

	q := Validate(r)
	assert.Equal(t, StatusDegraded, q.Status)
	assert.Equal(t, []Violation{
		{Field: "risks", Kind: ViolationEmpty},
		{Field: "edgeCases", Kind: ViolationOrdinal},
	}, q.Violations)
}

func TestValidate_ThreeViolationsIsInvalid(t *testing.T) {
	r := validReview()
	r.Purpose = "Unable to parse model output"
	r.Risks = "3"
	r.Summary = ""

	q := Validate(r)
	assert.Equal(t, StatusInvalid, q.Status)
	assert.Equal(t, 3, q.Count())
}

func TestClassifyField(t *testing.T) {
	tests := []struct {
		value string
		kind  string
		bad   bool
	}{
		{"", ViolationEmpty, true},
		{"\n\t ", ViolationEmpty, true},
		{"Unable to parse response", ViolationEmpty, true},
		{"Failed to extract review", ViolationEmpty, true},
		{"N/A", ViolationEmpty, true},
		{"4", ViolationOrdinal, true},
		{"Item 3", ViolationOrdinal, true},
		{"section 2:", ViolationOrdinal, true},
		{"Point #7", ViolationOrdinal, true},
		{"1.", ViolationOrdinal, true},
		{"Loops over 2 arrays", "", false},
		{"None of the inputs are validated", "", false},
		{"Step through the list once", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			kind, bad := classifyField(tt.value)
			assert.Equal(t, tt.bad, bad)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
