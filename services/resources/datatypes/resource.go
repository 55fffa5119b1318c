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

// ResourceType is the post-hoc classification of a retrieved resource.
type ResourceType string

const (
	ResourceDocumentation ResourceType = "documentation"
	ResourceVideo         ResourceType = "video"
	ResourceQA            ResourceType = "qa"
	ResourceArticle       ResourceType = "article"
	ResourceRepository    ResourceType = "repository"
)

// RelevanceScale records what a Resource's RawRelevance means.
//
// # Description
//
// Backends disagree on relevance semantics. The docs engine assigns a fixed
// prior, the general engine reports its own confidence, and the Q&A and
// code-hosting engines report nothing comparable. Only values on the Engine
// or Prior scale are used as a ranking fallback.
type RelevanceScale string

const (
	RelevanceEngine RelevanceScale = "engine"
	RelevancePrior  RelevanceScale = "prior"
	RelevanceNone   RelevanceScale = "none"
)

// Resource is one learning resource returned by a search backend.
//
// # Identity
//
// URL is the identity key. Deduplication collapses same-URL records.
type Resource struct {
	Type           ResourceType   `json:"type"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Description    string         `json:"description"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	RawRelevance   float64        `json:"rawRelevance"`
	RelevanceScale RelevanceScale `json:"relevanceScale"`
	RelevanceScore *float64       `json:"relevanceScore,omitempty"`
	Ranked         bool           `json:"ranked"`
	Engine         SearchEngine   `json:"engine"`
}

// HasComparableRelevance reports whether RawRelevance may stand in for a
// model score.
func (r Resource) HasComparableRelevance() bool {
	return r.RelevanceScale == RelevanceEngine || r.RelevanceScale == RelevancePrior
}

// Score returns RelevanceScore or 0 when unset.
func (r Resource) Score() float64 {
	if r.RelevanceScore == nil {
		return 0
	}
	return *r.RelevanceScore
}
