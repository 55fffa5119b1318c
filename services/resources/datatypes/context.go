// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request-scoped types shared by every stage of
// the learning resource pipeline: the analyzer input (CodeContext, ReviewIR,
// ReviewResponse), the intermediate Anchor and Query sets, and the Resource
// records returned to the caller.
//
// # Ownership
//
// Everything in this package is created fresh per request and never
// persisted. Input values are treated as immutable by every stage.
package datatypes

import "strings"

// =============================================================================
// Code Context
// =============================================================================

// Library is an import detected by the upstream static analyzer.
type Library struct {
	Name          string `json:"name"`
	IsStandardLib bool   `json:"isStandardLib"`
}

// CodeContext is the structured summary produced by the external analyzer.
//
// # Description
//
// CodeContext carries the detected language, imports, frameworks and the
// nested ReviewIR. The pipeline never mutates it.
//
// # Assumptions
//
//   - Language is a lowercase identifier such as "python" or "typescript".
//   - ReviewIR may be nil when the analyzer produced no structural facts.
type CodeContext struct {
	Language    string    `json:"language"`
	Libraries   []Library `json:"libraries"`
	Frameworks  []string  `json:"frameworks"`
	Paradigm    string    `json:"paradigm,omitempty"`
	Determinism string    `json:"determinism,omitempty"`
	ReviewIR    *ReviewIR `json:"reviewIR,omitempty"`
}

// LanguageOrDefault returns the language id, or "programming" when the
// analyzer could not detect one.
func (c *CodeContext) LanguageOrDefault() string {
	lang := strings.TrimSpace(c.Language)
	if lang == "" {
		return "programming"
	}
	return lang
}

// NonStdLibraries returns the detected libraries that are not part of the
// language's standard library, in detection order.
func (c *CodeContext) NonStdLibraries() []Library {
	var out []Library
	for _, lib := range c.Libraries {
		if lib.IsStandardLib || strings.TrimSpace(lib.Name) == "" {
			continue
		}
		out = append(out, lib)
	}
	return out
}

// IR returns the nested ReviewIR or an empty one.
func (c *CodeContext) IR() ReviewIR {
	if c.ReviewIR == nil {
		return ReviewIR{}
	}
	return *c.ReviewIR
}

// =============================================================================
// Review IR
// =============================================================================

// ReviewIR is the analyzer's intermediate representation of the code.
type ReviewIR struct {
	Structure StructureMetrics `json:"structure"`
	Elements  Elements         `json:"elements"`
	Behavior  BehavioralFacts  `json:"behavior"`
}

// StructureMetrics are the raw counts used by the trivial-code detector.
type StructureMetrics struct {
	Lines     int `json:"lines"`
	Functions int `json:"functions"`
	Classes   int `json:"classes"`
	Loops     int `json:"loops"`
}

// Elements lists the notable constructs found in the code.
type Elements struct {
	DecisionRules   []DecisionRule `json:"decisionRules"`
	MagicValues     []MagicValue   `json:"magicValues"`
	SilentBehaviors []string       `json:"silentBehaviors"`
}

// DecisionRule is a branch the analyzer considered meaningful.
type DecisionRule struct {
	Condition string `json:"condition"`
	Outcome   string `json:"outcome,omitempty"`
}

// MagicValue is a literal with the semantic role the analyzer inferred for it.
type MagicValue struct {
	Value        string `json:"value"`
	InferredRole string `json:"inferredRole"`
	Line         int    `json:"line,omitempty"`
}

// HasKnownRole reports whether the analyzer assigned a meaningful role.
// "unknown" and "literal" are the analyzer's placeholders for no role.
func (m MagicValue) HasKnownRole() bool {
	role := strings.ToLower(strings.TrimSpace(m.InferredRole))
	return role != "" && role != "unknown" && role != "literal"
}

// Execution models reported by the analyzer.
const (
	ExecutionSync  = "synchronous"
	ExecutionAsync = "asynchronous"
)

// Error handling strategies reported by the analyzer.
const (
	ErrorHandlingNone     = "none"
	ErrorHandlingSilent   = "silent"
	ErrorHandlingExplicit = "explicit"
)

// BehavioralFacts describe how the code behaves at runtime.
type BehavioralFacts struct {
	Deterministic  bool     `json:"deterministic"`
	ExecutionModel string   `json:"executionModel"`
	SideEffects    []string `json:"sideEffects"`
	ErrorHandling  string   `json:"errorHandling"`
}

// IsAsync reports whether the execution model is asynchronous. The analyzer
// emits both "async" and "asynchronous".
func (b BehavioralFacts) IsAsync() bool {
	model := strings.ToLower(strings.TrimSpace(b.ExecutionModel))
	return model == ExecutionAsync || model == "async"
}

// LacksErrorHandling reports whether errors are absent or silently swallowed.
func (b BehavioralFacts) LacksErrorHandling() bool {
	strategy := strings.ToLower(strings.TrimSpace(b.ErrorHandling))
	return strategy == "" || strategy == ErrorHandlingNone || strategy == ErrorHandlingSilent
}

// =============================================================================
// Review Response
// =============================================================================

// ReviewResponse is the free-text review produced by an upstream model.
// Every field is untrusted text.
type ReviewResponse struct {
	Complexity string `json:"complexity"`
	Purpose    string `json:"purpose"`
	Behavioral string `json:"behavioral"`
	Risks      string `json:"risks"`
	EdgeCases  string `json:"edgeCases"`
	Summary    string `json:"summary"`
	Raw        string `json:"raw,omitempty"`
}

// ReviewField is one named free-text field of a ReviewResponse.
type ReviewField struct {
	Name  string
	Value string
}

// Fields returns the six reviewed fields in a fixed order. Raw is excluded.
func (r ReviewResponse) Fields() []ReviewField {
	return []ReviewField{
		{Name: "complexity", Value: r.Complexity},
		{Name: "purpose", Value: r.Purpose},
		{Name: "behavioral", Value: r.Behavioral},
		{Name: "risks", Value: r.Risks},
		{Name: "edgeCases", Value: r.EdgeCases},
		{Name: "summary", Value: r.Summary},
	}
}
