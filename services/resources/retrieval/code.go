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
	"net/url"
	"strconv"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

const (
	defaultCodeBaseURL = "https://api.github.com"
	defaultCodeResults = 5
	githubAPIVersion   = "2022-11-28"
)

type codeSearchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		FullName        string   `json:"full_name"`
		HTMLURL         string   `json:"html_url"`
		Description     string   `json:"description"`
		StargazersCount int      `json:"stargazers_count"`
		Language        string   `json:"language"`
		Topics          []string `json:"topics"`
	} `json:"items"`
}

// CodeSource searches GitHub repositories sorted by stars. The token is
// optional; unauthenticated search has a much lower rate limit.
type CodeSource struct {
	config SourceConfig
	client *client
}

// NewCodeSource creates the code-hosting engine client.
func NewCodeSource(config SourceConfig) *CodeSource {
	config = config.withDefaults(defaultCodeBaseURL, defaultCodeResults)
	return &CodeSource{config: config, client: newClient(config)}
}

// Engine implements Source.
func (s *CodeSource) Engine() datatypes.SearchEngine { return datatypes.EngineCode }

// Batches implements Source.
func (s *CodeSource) Batches(queries []datatypes.Query) []Batch { return onePerQuery(queries) }

// Fetch implements Source.
func (s *CodeSource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	params := url.Values{}
	params.Set("q", batch.Text)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(s.config.MaxResults))

	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": githubAPIVersion,
	}
	if s.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.config.APIKey
	}

	var resp codeSearchResponse
	if err := s.client.getJSON(ctx, s.config.BaseURL+"/search/repositories?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	out := make([]datatypes.Resource, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.HTMLURL == "" {
			continue
		}
		out = append(out, datatypes.Resource{
			Type:        datatypes.ResourceRepository,
			Title:       titleOr(item.FullName, item.HTMLURL),
			URL:         item.HTMLURL,
			Description: truncateRunes(item.Description, maxDescriptionRunes),
			Metadata: map[string]any{
				"stars":    item.StargazersCount,
				"language": item.Language,
				"topics":   item.Topics,
			},
			RelevanceScale: datatypes.RelevanceNone,
			Engine:         datatypes.EngineCode,
		})
	}
	return out, nil
}
