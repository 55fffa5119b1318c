// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package anchors turns analyzer output and review text into a prioritized,
// typed set of retrieval anchors.
//
// # Description
//
// Extraction runs in three layers:
//   - Trivial detection: short-circuits the whole pipeline for toy snippets.
//   - Concrete extraction: deterministic anchors from detected imports,
//     frameworks and magic values. These are high confidence.
//   - Conceptual extraction: heuristic anchors from review prose. These are
//     optional and never retrieval-ready on their own.
//
// When the review is invalid the extractor ignores it entirely and emits the
// minimal fallback set, so the pipeline always has one retrievable target.
//
// # Thread Safety
//
// Extractor is immutable after construction and safe for concurrent use.
package anchors

import (
	"log/slog"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/pkg/validation"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/review"
)

// =============================================================================
// Weights
// =============================================================================

const (
	libraryWeight         = 0.95
	frameworkWeight       = 1.0
	frameworkDocsWeight   = 0.95
	configSymbolWeight    = 0.7
	fallbackWeight        = 1.0
	asyncGuideWeight      = 0.9
	errorHandlingWeight   = 0.75
	defaultLanguageSymbol = "programming"
)

// =============================================================================
// Configuration
// =============================================================================

// Config bounds how many anchors of each family are extracted.
type Config struct {
	// MaxLibraryAnchors caps library-api anchors. Default: 8
	MaxLibraryAnchors int

	// MaxConfigAnchors caps config-symbol anchors. Default: 5
	MaxConfigAnchors int

	// MaxConceptAnchors caps conceptual anchors. Default: 5
	MaxConceptAnchors int

	// TrivialThreshold is the number of trivial predicates that must hold.
	// Default: 4
	TrivialThreshold int
}

// DefaultConfig returns the production extraction limits.
func DefaultConfig() Config {
	return Config{
		MaxLibraryAnchors: 8,
		MaxConfigAnchors:  5,
		MaxConceptAnchors: 5,
		TrivialThreshold:  DefaultTrivialThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxLibraryAnchors <= 0 {
		c.MaxLibraryAnchors = d.MaxLibraryAnchors
	}
	if c.MaxConfigAnchors <= 0 {
		c.MaxConfigAnchors = d.MaxConfigAnchors
	}
	if c.MaxConceptAnchors <= 0 {
		c.MaxConceptAnchors = d.MaxConceptAnchors
	}
	if c.TrivialThreshold <= 0 {
		c.TrivialThreshold = d.TrivialThreshold
	}
	return c
}

// =============================================================================
// Extractor
// =============================================================================

// Extractor produces AnchorSets.
type Extractor struct {
	config Config
}

// NewExtractor creates an Extractor. Zero config fields use DefaultConfig.
func NewExtractor(config Config) *Extractor {
	return &Extractor{config: config.withDefaults()}
}

// Extract builds the AnchorSet for one request.
//
// # Description
//
// Order of evaluation:
//  1. Trivial detection. Trivial code yields TrivialAnchorSet.
//  2. Review quality. An invalid review yields the minimal fallback set.
//  3. Concrete extraction (imports, frameworks, magic values) into Mandatory,
//     with a generic official-documentation anchor substituted when nothing
//     concrete exists.
//  4. Derived mandatory anchors (framework docs, async guide).
//  5. Conceptual anchors from the complexity and behavioral review text.
//  6. Derived optional anchors (error handling).
//
// # Inputs
//
//   - cc: Analyzer output.
//   - resp: Upstream review text.
//
// # Outputs
//
//   - datatypes.AnchorSet: Mandatory is non-empty unless ShortCircuit is set.
//
// # Examples
//
//	set := anchors.NewExtractor(anchors.DefaultConfig()).Extract(cc, resp)
//	if set.Metadata.ShortCircuit {
//	    return emptyResponse(set.Metadata.ShortCircuitReason)
//	}
func (e *Extractor) Extract(cc datatypes.CodeContext, resp datatypes.ReviewResponse) datatypes.AnchorSet {
	lang := validation.SanitizeLanguage(cc.Language, defaultLanguageSymbol)

	if verdict := DetectTrivial(cc, e.config.TrivialThreshold); verdict.Trivial {
		slog.Debug("Code classified as trivial", "language", lang, "reason", verdict.Reason)
		return TrivialAnchorSet(lang, verdict)
	}

	quality := review.Validate(resp)
	if quality.Status == review.StatusInvalid {
		slog.Warn("Review quality invalid, using minimal fallback anchors",
			"language", lang,
			"violations", quality.Count())
		return minimalFallback(lang)
	}

	ir := cc.IR()
	set := datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{},
		Optional:  []datatypes.Anchor{},
		Metadata: datatypes.AnchorMetadata{
			Language:      lang,
			ReviewQuality: string(quality.Status),
		},
	}

	libraries := e.libraryAnchors(cc)
	frameworks := frameworkNames(cc)
	configs := e.configAnchors(ir)

	concreteCount := len(libraries) + len(frameworks) + len(configs)
	set.Metadata.ConcreteCount = concreteCount
	set.Metadata.HasConcreteSymbols = concreteCount > 0

	set.Mandatory = append(set.Mandatory, libraries...)
	for _, fw := range frameworks {
		set.Mandatory = append(set.Mandatory, datatypes.Anchor{
			Kind:           datatypes.AnchorFrameworkAPI,
			Symbol:         fw,
			Source:         "framework",
			Weight:         frameworkWeight,
			RetrievalReady: true,
		})
	}
	set.Mandatory = append(set.Mandatory, configs...)
	if len(set.Mandatory) == 0 {
		set.Mandatory = append(set.Mandatory, officialDocsAnchor(lang))
	}
	for _, fw := range frameworks {
		set.Mandatory = append(set.Mandatory, datatypes.Anchor{
			Kind:           datatypes.AnchorOfficialDocs,
			Symbol:         fw + " official documentation",
			Source:         "framework",
			Weight:         frameworkDocsWeight,
			RetrievalReady: true,
		})
	}
	if ir.Behavior.IsAsync() {
		set.Mandatory = append(set.Mandatory, datatypes.Anchor{
			Kind:           datatypes.AnchorGuide,
			Symbol:         lang + " asynchronous programming guide",
			Source:         "execution-model",
			Weight:         asyncGuideWeight,
			RetrievalReady: true,
		})
	}

	concepts := e.conceptAnchors(resp)
	set.Metadata.ConceptCount = len(concepts)
	set.Optional = append(set.Optional, concepts...)
	if ir.Behavior.LacksErrorHandling() {
		set.Optional = append(set.Optional, datatypes.Anchor{
			Kind:           datatypes.AnchorTroubleshooting,
			Symbol:         lang + " error handling best practices",
			Source:         "error-handling",
			Weight:         errorHandlingWeight,
			RetrievalReady: true,
		})
	}

	slog.Debug("Extracted anchors",
		"language", lang,
		"mandatory", len(set.Mandatory),
		"optional", len(set.Optional),
		"concrete", concreteCount,
		"review_quality", set.Metadata.ReviewQuality)
	return set
}

// minimalFallback is the AnchorSet used when the review cannot be trusted.
func minimalFallback(lang string) datatypes.AnchorSet {
	return datatypes.AnchorSet{
		Mandatory: []datatypes.Anchor{officialDocsAnchor(lang)},
		Optional:  []datatypes.Anchor{},
		Metadata: datatypes.AnchorMetadata{
			Language:      lang,
			ReviewQuality: datatypes.ReviewQualityFallback,
		},
	}
}

func officialDocsAnchor(lang string) datatypes.Anchor {
	return datatypes.Anchor{
		Kind:           datatypes.AnchorFallback,
		Symbol:         lang + " official documentation",
		Source:         "fallback",
		Weight:         fallbackWeight,
		RetrievalReady: true,
	}
}

// =============================================================================
// Concrete Extraction
// =============================================================================

func (e *Extractor) libraryAnchors(cc datatypes.CodeContext) []datatypes.Anchor {
	var out []datatypes.Anchor
	seen := make(map[string]bool)
	for _, lib := range cc.NonStdLibraries() {
		if len(out) >= e.config.MaxLibraryAnchors {
			break
		}
		name := validation.SanitizeSymbol(lib.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, datatypes.Anchor{
			Kind:           datatypes.AnchorLibraryAPI,
			Symbol:         name,
			Source:         "import",
			Weight:         libraryWeight,
			RetrievalReady: true,
		})
	}
	return out
}

func frameworkNames(cc datatypes.CodeContext) []string {
	var out []string
	seen := make(map[string]bool)
	for _, fw := range cc.Frameworks {
		name := validation.SanitizeSymbol(fw)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func (e *Extractor) configAnchors(ir datatypes.ReviewIR) []datatypes.Anchor {
	var out []datatypes.Anchor
	seen := make(map[string]bool)
	for _, mv := range ir.Elements.MagicValues {
		if len(out) >= e.config.MaxConfigAnchors {
			break
		}
		if !mv.HasKnownRole() {
			continue
		}
		role := validation.SanitizeSymbol(mv.InferredRole)
		key := strings.ToLower(role)
		if role == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, datatypes.Anchor{
			Kind:           datatypes.AnchorConfigSymbol,
			Symbol:         role,
			Source:         "magic-value:" + validation.SanitizeSymbol(mv.Value),
			Weight:         configSymbolWeight,
			RetrievalReady: true,
		})
	}
	return out
}

// =============================================================================
// Conceptual Extraction
// =============================================================================

func (e *Extractor) conceptAnchors(resp datatypes.ReviewResponse) []datatypes.Anchor {
	var out []datatypes.Anchor
	seen := make(map[string]bool)
	sources := []datatypes.ReviewField{
		{Name: "complexity", Value: resp.Complexity},
		{Name: "behavioral", Value: resp.Behavioral},
	}
	for _, field := range sources {
		for _, c := range matchConcepts(field.Value) {
			if len(out) >= e.config.MaxConceptAnchors {
				return out
			}
			if seen[c.term] {
				continue
			}
			seen[c.term] = true
			out = append(out, datatypes.Anchor{
				Kind:   datatypes.AnchorConcept,
				Symbol: c.term,
				Source: "review:" + field.Name,
				Weight: c.weight,
			})
		}
	}
	return out
}
