// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "fmt"

// =============================================================================
// Anchor Kinds
// =============================================================================

// AnchorKind enumerates every anchor variant the extractor can produce.
//
// # Description
//
// Kinds fall into three families:
//   - Concrete: LibraryAPI, FrameworkAPI, ConfigSymbol
//   - Derived: OfficialDocs, Guide, Concept, Troubleshooting
//   - Degenerate: Fallback, Trivial
//
// Query routing switches over every value; adding a kind without a route is
// caught by the routing tests.
type AnchorKind int

const (
	AnchorLibraryAPI AnchorKind = iota
	AnchorFrameworkAPI
	AnchorConfigSymbol
	AnchorOfficialDocs
	AnchorGuide
	AnchorConcept
	AnchorTroubleshooting
	AnchorFallback
	AnchorTrivial
)

var anchorKindNames = map[AnchorKind]string{
	AnchorLibraryAPI:      "library-api",
	AnchorFrameworkAPI:    "framework-api",
	AnchorConfigSymbol:    "config-symbol",
	AnchorOfficialDocs:    "official-docs",
	AnchorGuide:           "guide",
	AnchorConcept:         "concept",
	AnchorTroubleshooting: "troubleshooting",
	AnchorFallback:        "fallback",
	AnchorTrivial:         "trivial",
}

// AllAnchorKinds returns every defined kind in declaration order.
func AllAnchorKinds() []AnchorKind {
	return []AnchorKind{
		AnchorLibraryAPI, AnchorFrameworkAPI, AnchorConfigSymbol,
		AnchorOfficialDocs, AnchorGuide, AnchorConcept, AnchorTroubleshooting,
		AnchorFallback, AnchorTrivial,
	}
}

// String returns the wire name of the kind.
func (k AnchorKind) String() string {
	if name, ok := anchorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("anchor-kind(%d)", int(k))
}

// MarshalText encodes the kind by its wire name.
func (k AnchorKind) MarshalText() ([]byte, error) {
	if _, ok := anchorKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown anchor kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire name.
func (k *AnchorKind) UnmarshalText(text []byte) error {
	v, err := lookupName(anchorKindNames, text, "anchor kind")
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// lookupName is the reverse of a wire-name table.
func lookupName[T comparable](names map[T]string, text []byte, what string) (T, error) {
	for v, name := range names {
		if name == string(text) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", what, text)
}

// IsConcrete reports whether the kind names a symbol detected in the code.
func (k AnchorKind) IsConcrete() bool {
	switch k {
	case AnchorLibraryAPI, AnchorFrameworkAPI, AnchorConfigSymbol:
		return true
	default:
		return false
	}
}

// =============================================================================
// Anchors
// =============================================================================

// Anchor is a single retrieval target derived from code analysis.
type Anchor struct {
	Kind           AnchorKind `json:"type"`
	Symbol         string     `json:"symbol"`
	Source         string     `json:"source"`
	Weight         float64    `json:"weight"`
	RetrievalReady bool       `json:"retrievalReady"`
}

// Review quality labels carried in AnchorMetadata.ReviewQuality.
const (
	ReviewQualityValid    = "valid"
	ReviewQualityDegraded = "degraded"
	ReviewQualityInvalid  = "invalid"
	ReviewQualityFallback = "fallback"
)

// AnchorMetadata describes how an AnchorSet was produced.
type AnchorMetadata struct {
	Language           string `json:"language"`
	ReviewQuality      string `json:"reviewQuality"`
	HasConcreteSymbols bool   `json:"hasConcreteSymbols"`
	ConcreteCount      int    `json:"concreteCount"`
	ConceptCount       int    `json:"conceptCount"`
	ShortCircuit       bool   `json:"shortCircuit"`
	ShortCircuitReason string `json:"shortCircuitReason,omitempty"`
}

// AnchorSet is the prioritized output of anchor extraction.
//
// # Invariants
//
//   - Outside the short-circuit path Mandatory is non-empty.
//   - On the short-circuit path Mandatory holds exactly one Trivial anchor
//     and Optional is empty.
type AnchorSet struct {
	Mandatory []Anchor       `json:"mandatory"`
	Optional  []Anchor       `json:"optional"`
	Metadata  AnchorMetadata `json:"metadata"`
}

// Count returns the total number of anchors.
func (s AnchorSet) Count() int {
	return len(s.Mandatory) + len(s.Optional)
}
