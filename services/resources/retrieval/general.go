// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

const (
	defaultGeneralBaseURL = "https://api.tavily.com"
	defaultGeneralResults = 8
)

type generalSearchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type generalSearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// GeneralSource is the general web-search engine.
//
// # Description
//
// Queries sharing an intent are joined with " OR " into a single call, so a
// failing intent group never affects the others. Result types are inferred
// from URL shape with ClassifyURL.
type GeneralSource struct {
	config SourceConfig
	client *client
}

// NewGeneralSource creates the general web-search client.
func NewGeneralSource(config SourceConfig) *GeneralSource {
	config = config.withDefaults(defaultGeneralBaseURL, defaultGeneralResults)
	return &GeneralSource{config: config, client: newClient(config)}
}

// Engine implements Source.
func (s *GeneralSource) Engine() datatypes.SearchEngine { return datatypes.EngineGeneral }

// Batches groups queries by intent in first-appearance order.
func (s *GeneralSource) Batches(queries []datatypes.Query) []Batch {
	var out []Batch
	index := make(map[datatypes.Intent]int)
	for _, q := range queries {
		i, ok := index[q.Intent]
		if !ok {
			i = len(out)
			index[q.Intent] = i
			out = append(out, Batch{Intent: q.Intent})
		}
		out[i].Queries = append(out[i].Queries, q)
	}
	for i := range out {
		parts := make([]string, 0, len(out[i].Queries))
		for _, q := range out[i].Queries {
			parts = append(parts, q.Primary)
		}
		out[i].Text = strings.Join(parts, " OR ")
	}
	return out
}

// Fetch implements Source.
func (s *GeneralSource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	if s.config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var resp generalSearchResponse
	err := s.client.postJSON(ctx, s.config.BaseURL+"/search", generalSearchRequest{
		Query:       batch.Text,
		MaxResults:  s.config.MaxResults,
		SearchDepth: "basic",
	}, map[string]string{"Authorization": "Bearer " + s.config.APIKey}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]datatypes.Resource, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, datatypes.Resource{
			Type:           ClassifyURL(r.URL),
			Title:          titleOr(r.Title, r.URL),
			URL:            r.URL,
			Description:    truncateRunes(strings.TrimSpace(r.Content), maxDescriptionRunes),
			Metadata:       map[string]any{"intent": batch.Intent.String()},
			RawRelevance:   clamp01(r.Score),
			RelevanceScale: datatypes.RelevanceEngine,
			Engine:         datatypes.EngineGeneral,
		})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
