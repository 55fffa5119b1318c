// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anchors

import (
	"fmt"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

// DefaultTrivialThreshold is the number of trivial predicates that must hold
// for code to be classified as trivial. All four must hold by default; an
// earlier revision used three, which misclassified short but real snippets.
const DefaultTrivialThreshold = 4

// trivialPredicateCount is the number of predicates DetectTrivial evaluates.
const trivialPredicateCount = 4

// minNonTrivialLines is the smallest line count that is not trivially short.
const minNonTrivialLines = 3

// TrivialPredicates are the four independent signals of trivial code.
type TrivialPredicates struct {
	FewLines            bool `json:"fewLines"`
	NoStructure         bool `json:"noStructure"`
	NoDecisionRules     bool `json:"noDecisionRules"`
	NoExternalLibraries bool `json:"noExternalLibraries"`
}

// Held returns how many predicates hold.
func (p TrivialPredicates) Held() int {
	n := 0
	for _, b := range []bool{p.FewLines, p.NoStructure, p.NoDecisionRules, p.NoExternalLibraries} {
		if b {
			n++
		}
	}
	return n
}

// TrivialVerdict is the result of DetectTrivial.
type TrivialVerdict struct {
	Trivial    bool              `json:"trivial"`
	Predicates TrivialPredicates `json:"predicates"`
	Threshold  int               `json:"threshold"`
	Reason     string            `json:"reason,omitempty"`
}

// DetectTrivial decides whether the pipeline should short-circuit.
//
// # Description
//
// Evaluates four predicates over the analyzer output:
//  1. fewer than 3 lines
//  2. zero functions, zero classes and zero loops
//  3. zero decision rules
//  4. zero non-standard-library imports
//
// The code is trivial when at least threshold predicates hold. A threshold
// outside 1..4 falls back to DefaultTrivialThreshold.
//
// # Inputs
//
//   - cc: Analyzer output. A nil ReviewIR is never trivial because the
//     structural predicates cannot be evaluated.
//   - threshold: Required number of holding predicates.
//
// # Outputs
//
//   - TrivialVerdict: Classification plus the individual predicates.
func DetectTrivial(cc datatypes.CodeContext, threshold int) TrivialVerdict {
	if threshold < 1 || threshold > trivialPredicateCount {
		threshold = DefaultTrivialThreshold
	}
	verdict := TrivialVerdict{Threshold: threshold}
	if cc.ReviewIR == nil {
		return verdict
	}

	ir := cc.ReviewIR
	s := ir.Structure
	verdict.Predicates = TrivialPredicates{
		FewLines:            s.Lines < minNonTrivialLines,
		NoStructure:         s.Functions == 0 && s.Classes == 0 && s.Loops == 0,
		NoDecisionRules:     len(ir.Elements.DecisionRules) == 0,
		NoExternalLibraries: len(cc.NonStdLibraries()) == 0,
	}

	if verdict.Predicates.Held() >= threshold {
		verdict.Trivial = true
		verdict.Reason = trivialReason(verdict.Predicates)
	}
	return verdict
}

func trivialReason(p TrivialPredicates) string {
	var parts []string
	if p.FewLines {
		parts = append(parts, fmt.Sprintf("fewer than %d lines", minNonTrivialLines))
	}
	if p.NoStructure {
		parts = append(parts, "no functions, classes or loops")
	}
	if p.NoDecisionRules {
		parts = append(parts, "no decision logic")
	}
	if p.NoExternalLibraries {
		parts = append(parts, "no external libraries")
	}
	return "trivial code: " + strings.Join(parts, ", ")
}

// TrivialAnchorSet is the AnchorSet emitted for trivial code: one trivial
// mandatory anchor and nothing else.
func TrivialAnchorSet(language string, verdict TrivialVerdict) datatypes.AnchorSet {
	return datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{{
			Kind:   datatypes.AnchorTrivial,
			Symbol: language,
			Source: "trivial-detector",
			Weight: 1.0,
		}},
		Optional: []datatypes.Anchor{},
		Metadata: datatypes.AnchorMetadata{
			Language:           language,
			ShortCircuit:       true,
			ShortCircuitReason: verdict.Reason,
		},
	}
}
