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
	"errors"
	"strings"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

const (
	defaultDocsBaseURL = "https://api.exa.ai"
	defaultDocsResults = 3

	// docsPrior is the fixed relevance of documentation hits.
	docsPrior = 0.95

	maxDescriptionRunes = 300
)

// ErrNotConfigured is returned by a source that requires a credential it
// was not given.
var ErrNotConfigured = errors.New("search backend not configured")

type docsSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
}

type docsSearchResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Text          string `json:"text"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

// DocsSource searches official documentation by exact phrase.
type DocsSource struct {
	config SourceConfig
	client *client
}

// NewDocsSource creates the documentation engine client.
func NewDocsSource(config SourceConfig) *DocsSource {
	config = config.withDefaults(defaultDocsBaseURL, defaultDocsResults)
	return &DocsSource{config: config, client: newClient(config)}
}

// Engine implements Source.
func (s *DocsSource) Engine() datatypes.SearchEngine { return datatypes.EngineDocs }

// Batches implements Source.
func (s *DocsSource) Batches(queries []datatypes.Query) []Batch { return onePerQuery(queries) }

// Fetch implements Source.
func (s *DocsSource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	if s.config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var resp docsSearchResponse
	err := s.client.postJSON(ctx, s.config.BaseURL+"/search", docsSearchRequest{
		Query:      `"` + strings.ReplaceAll(batch.Text, `"`, "") + `"`,
		NumResults: s.config.MaxResults,
		Type:       "keyword",
	}, map[string]string{"x-api-key": s.config.APIKey}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]datatypes.Resource, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}
		if len(out) >= s.config.MaxResults {
			break
		}
		meta := map[string]any{"query": batch.Text}
		if r.PublishedDate != "" {
			meta["publishedDate"] = r.PublishedDate
		}
		out = append(out, datatypes.Resource{
			Type:           datatypes.ResourceDocumentation,
			Title:          titleOr(r.Title, r.URL),
			URL:            r.URL,
			Description:    truncateRunes(strings.TrimSpace(r.Text), maxDescriptionRunes),
			Metadata:       meta,
			RawRelevance:   docsPrior,
			RelevanceScale: datatypes.RelevancePrior,
			Engine:         datatypes.EngineDocs,
		})
	}
	return out, nil
}

func titleOr(title, fallback string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return fallback
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
