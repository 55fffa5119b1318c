// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reviewctx condenses a review into the learning context that steers
// query expansion and ranking prompts.
package reviewctx

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

const maxNarrativeRunes = 600

// ReviewContext is the narrative summary handed to model prompts.
type ReviewContext struct {
	LearningGoal      string   `json:"learningGoal"`
	ContentPriorities []string `json:"contentPriorities"`
	Narrative         string   `json:"narrative"`
}

// Builder produces a ReviewContext for one request.
type Builder interface {
	Build(ctx context.Context, in Input) (ReviewContext, error)
}

// Input is everything a Builder may look at.
type Input struct {
	CodeContext datatypes.CodeContext
	Review      datatypes.ReviewResponse
	UserIntent  string
	Anchors     datatypes.AnchorSet
}

// DefaultBuilder derives the context from the request alone, without any
// network call.
type DefaultBuilder struct{}

// Build implements Builder. It never returns an error.
func (DefaultBuilder) Build(_ context.Context, in Input) (ReviewContext, error) {
	return Fallback(in), nil
}

// Fallback is the deterministic context used directly by DefaultBuilder and
// as the substitute when any other Builder fails.
func Fallback(in Input) ReviewContext {
	lang := in.Anchors.Metadata.Language
	if lang == "" {
		lang = in.CodeContext.LanguageOrDefault()
	}

	goal := strings.TrimSpace(in.UserIntent)
	if goal == "" {
		goal = fmt.Sprintf("Understand how this %s code works", lang)
		if purpose := strings.TrimSpace(in.Review.Purpose); purpose != "" {
			goal = fmt.Sprintf("Understand %s code that %s", lang, lowerFirst(purpose))
		}
	}

	return ReviewContext{
		LearningGoal:      truncate(goal, maxNarrativeRunes),
		ContentPriorities: priorities(in.Anchors),
		Narrative:         truncate(narrative(in.Review), maxNarrativeRunes),
	}
}

// Prompt renders the context as a block for model prompts.
func (c ReviewContext) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learning goal: %s\n", c.LearningGoal)
	if len(c.ContentPriorities) > 0 {
		fmt.Fprintf(&b, "Preferred content: %s\n", strings.Join(c.ContentPriorities, ", "))
	}
	if c.Narrative != "" {
		fmt.Fprintf(&b, "Review summary: %s\n", c.Narrative)
	}
	return b.String()
}

func priorities(set datatypes.AnchorSet) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, group := range [][]datatypes.Anchor{set.Mandatory, set.Optional} {
		for _, a := range group {
			switch a.Kind {
			case datatypes.AnchorLibraryAPI, datatypes.AnchorFrameworkAPI,
				datatypes.AnchorOfficialDocs, datatypes.AnchorFallback:
				add("official documentation")
			case datatypes.AnchorGuide, datatypes.AnchorConcept:
				add("tutorials")
			case datatypes.AnchorTroubleshooting:
				add("troubleshooting")
			case datatypes.AnchorConfigSymbol:
				add("configuration reference")
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "official documentation")
	}
	return out
}

func narrative(resp datatypes.ReviewResponse) string {
	if s := strings.TrimSpace(resp.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(resp.Purpose)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
