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
	"testing"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func trivialContext() datatypes.CodeContext {
	return datatypes.CodeContext{
		Language: "python",
		Libraries: []datatypes.Library{
			{Name: "math", IsStandardLib: true},
		},
		ReviewIR: &datatypes.ReviewIR{
			Structure: datatypes.StructureMetrics{Lines: 1},
		},
	}
}

func realContext() datatypes.CodeContext {
	return datatypes.CodeContext{
		Language: "typescript",
		Libraries: []datatypes.Library{
			{Name: "fs", IsStandardLib: true},
			{Name: "axios"},
		},
		Frameworks: []string{"react"},
		ReviewIR: &datatypes.ReviewIR{
			Structure: datatypes.StructureMetrics{Lines: 40, Functions: 3, Loops: 1},
			Elements: datatypes.Elements{
				DecisionRules: []datatypes.DecisionRule{{Condition: "count > max"}},
				MagicValues: []datatypes.MagicValue{
					{Value: "5000", InferredRole: "timeout"},
					{Value: "42", InferredRole: "unknown"},
					{Value: "\"x\"", InferredRole: "literal"},
				},
			},
			Behavior: datatypes.BehavioralFacts{
				ExecutionModel: datatypes.ExecutionAsync,
				ErrorHandling:  datatypes.ErrorHandlingSilent,
			},
		},
	}
}

func validReview() datatypes.ReviewResponse {
	return datatypes.ReviewResponse{
		Complexity: "Uses a closure over component state and memoizes the fetch result.",
		Purpose:    "Loads a user profile and renders it.",
		Behavioral: "Awaits a promise inside useEffect; side effects run after render.",
		Risks:      "Errors from the request are swallowed.",
		EdgeCases:  "Unmounting before the request finishes.",
		Summary:    "A React component that fetches data with axios.",
	}
}

func findAnchor(anchors []datatypes.Anchor, kind datatypes.AnchorKind, symbol string) (datatypes.Anchor, bool) {
	for _, a := range anchors {
		if a.Kind == kind && a.Symbol == symbol {
			return a, true
		}
	}
	return datatypes.Anchor{}, false
}

// =============================================================================
// Trivial Short-Circuit
// =============================================================================

func TestExtract_TrivialCodeShortCircuits(t *testing.T) {
	set := NewExtractor(DefaultConfig()).Extract(trivialContext(), validReview())

	require.Len(t, set.Mandatory, 1)
	assert.Empty(t, set.Optional)
	assert.Equal(t, datatypes.AnchorTrivial, set.Mandatory[0].Kind)
	assert.Equal(t, 1.0, set.Mandatory[0].Weight)
	assert.True(t, set.Metadata.ShortCircuit)
	assert.NotEmpty(t, set.Metadata.ShortCircuitReason)
}

func TestExtract_TrivialWinsOverInvalidReview(t *testing.T) {
	set := NewExtractor(DefaultConfig()).Extract(trivialContext(), datatypes.ReviewResponse{})

	require.Len(t, set.Mandatory, 1)
	assert.Equal(t, datatypes.AnchorTrivial, set.Mandatory[0].Kind)
}

// =============================================================================
// Minimal Fallback
// =============================================================================

func TestExtract_InvalidReviewUsesMinimalFallback(t *testing.T) {
	set := NewExtractor(DefaultConfig()).Extract(realContext(), datatypes.ReviewResponse{})

	require.Len(t, set.Mandatory, 1)
	assert.Empty(t, set.Optional)
	assert.Equal(t, "typescript official documentation", set.Mandatory[0].Symbol)
	assert.Equal(t, datatypes.AnchorFallback, set.Mandatory[0].Kind)
	assert.Equal(t, 1.0, set.Mandatory[0].Weight)
	assert.Equal(t, datatypes.ReviewQualityFallback, set.Metadata.ReviewQuality)
	assert.False(t, set.Metadata.ShortCircuit)
}

// =============================================================================
// Concrete Extraction
// =============================================================================

func TestExtract_TypescriptReactScenario(t *testing.T) {
	set := NewExtractor(DefaultConfig()).Extract(realContext(), validReview())

	assert.False(t, set.Metadata.ShortCircuit)
	assert.True(t, set.Metadata.HasConcreteSymbols)
	assert.Equal(t, datatypes.ReviewQualityValid, set.Metadata.ReviewQuality)

	docs, ok := findAnchor(set.Mandatory, datatypes.AnchorOfficialDocs, "react official documentation")
	require.True(t, ok, "expected a react documentation anchor in mandatory")
	assert.Equal(t, 0.95, docs.Weight)

	fw, ok := findAnchor(set.Mandatory, datatypes.AnchorFrameworkAPI, "react")
	require.True(t, ok)
	assert.Equal(t, 1.0, fw.Weight)
	assert.True(t, fw.RetrievalReady)

	lib, ok := findAnchor(set.Mandatory, datatypes.AnchorLibraryAPI, "axios")
	require.True(t, ok)
	assert.Equal(t, 0.95, lib.Weight)

	_, ok = findAnchor(set.Mandatory, datatypes.AnchorLibraryAPI, "fs")
	assert.False(t, ok, "standard library imports must not become anchors")

	guide, ok := findAnchor(set.Mandatory, datatypes.AnchorGuide, "typescript asynchronous programming guide")
	require.True(t, ok)
	assert.Equal(t, 0.9, guide.Weight)

	cfg, ok := findAnchor(set.Mandatory, datatypes.AnchorConfigSymbol, "timeout")
	require.True(t, ok)
	assert.Equal(t, 0.7, cfg.Weight)
	assert.True(t, cfg.RetrievalReady)
	assert.Equal(t, 1, countKind(set.Mandatory, datatypes.AnchorConfigSymbol), "unknown and literal roles are skipped")
	assert.Zero(t, countKind(set.Optional, datatypes.AnchorConfigSymbol))

	eh, ok := findAnchor(set.Optional, datatypes.AnchorTroubleshooting, "typescript error handling best practices")
	require.True(t, ok)
	assert.Equal(t, 0.75, eh.Weight)
}

func TestExtract_NoConcreteSymbolsUsesGenericAnchor(t *testing.T) {
	cc := datatypes.CodeContext{
		Language: "go",
		ReviewIR: &datatypes.ReviewIR{
			Structure: datatypes.StructureMetrics{Lines: 30, Functions: 2},
			Behavior:  datatypes.BehavioralFacts{ErrorHandling: datatypes.ErrorHandlingExplicit},
		},
	}

	set := NewExtractor(DefaultConfig()).Extract(cc, validReview())

	require.Len(t, set.Mandatory, 1)
	assert.Equal(t, "go official documentation", set.Mandatory[0].Symbol)
	assert.False(t, set.Metadata.HasConcreteSymbols)
	assert.Zero(t, countKind(set.Optional, datatypes.AnchorTroubleshooting))
}

func TestExtract_MagicValueOnlyIsMandatory(t *testing.T) {
	cc := datatypes.CodeContext{
		Language: "python",
		ReviewIR: &datatypes.ReviewIR{
			Structure: datatypes.StructureMetrics{Lines: 20, Functions: 1},
			Elements: datatypes.Elements{
				MagicValues: []datatypes.MagicValue{{Value: "3", InferredRole: "retry_limit"}},
			},
			Behavior: datatypes.BehavioralFacts{
				ExecutionModel: datatypes.ExecutionSync,
				ErrorHandling:  datatypes.ErrorHandlingExplicit,
			},
		},
	}

	set := NewExtractor(DefaultConfig()).Extract(cc, validReview())

	require.NotEmpty(t, set.Mandatory)
	assert.True(t, set.Metadata.HasConcreteSymbols)
	assert.Equal(t, 1, set.Metadata.ConcreteCount)
	cfg, ok := findAnchor(set.Mandatory, datatypes.AnchorConfigSymbol, "retry_limit")
	require.True(t, ok)
	assert.Equal(t, "magic-value:3", cfg.Source)
	_, generic := findAnchor(set.Mandatory, datatypes.AnchorFallback, "python official documentation")
	assert.False(t, generic, "a concrete config symbol replaces the generic anchor")
}

func TestExtract_LibraryCapAndDedup(t *testing.T) {
	cc := realContext()
	cc.Frameworks = nil
	cc.Libraries = nil
	for _, name := range []string{"a", "b", "B", "c", "d", "e", "f", "g", "h", "i", "j"} {
		cc.Libraries = append(cc.Libraries, datatypes.Library{Name: name})
	}

	set := NewExtractor(DefaultConfig()).Extract(cc, validReview())

	assert.Equal(t, 8, countKind(set.Mandatory, datatypes.AnchorLibraryAPI))
	_, dup := findAnchor(set.Mandatory, datatypes.AnchorLibraryAPI, "B")
	assert.False(t, dup, "case-insensitive duplicates are collapsed")
}

// =============================================================================
// Conceptual Extraction
// =============================================================================

func TestExtract_ConceptAnchors(t *testing.T) {
	set := NewExtractor(DefaultConfig()).Extract(realContext(), validReview())

	concepts := filterKind(set.Optional, datatypes.AnchorConcept)
	require.NotEmpty(t, concepts)
	for _, c := range concepts {
		assert.False(t, c.RetrievalReady)
		assert.GreaterOrEqual(t, c.Weight, 0.6)
		assert.LessOrEqual(t, c.Weight, 0.65)
	}
	_, ok := findAnchor(concepts, datatypes.AnchorConcept, "closures")
	assert.True(t, ok)
	_, ok = findAnchor(concepts, datatypes.AnchorConcept, "memoization")
	assert.True(t, ok)
	_, ok = findAnchor(concepts, datatypes.AnchorConcept, "async await")
	assert.True(t, ok)
}

func TestExtract_ConceptAnchorsCappedAndDeduplicated(t *testing.T) {
	r := validReview()
	r.Complexity = "Recursion, memoization, dynamic programming, closures, generics and regex."
	r.Behavioral = "Recursive calls with threads, a mutex and immutable data."

	set := NewExtractor(DefaultConfig()).Extract(realContext(), r)

	concepts := filterKind(set.Optional, datatypes.AnchorConcept)
	assert.Len(t, concepts, 5)
	seen := map[string]bool{}
	for _, c := range concepts {
		assert.False(t, seen[c.Symbol], "duplicate concept %q", c.Symbol)
		seen[c.Symbol] = true
	}
}

func countKind(anchors []datatypes.Anchor, kind datatypes.AnchorKind) int {
	return len(filterKind(anchors, kind))
}

func filterKind(anchors []datatypes.Anchor, kind datatypes.AnchorKind) []datatypes.Anchor {
	var out []datatypes.Anchor
	for _, a := range anchors {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}
