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
	"strings"

	"golang.org/x/net/html"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

const (
	defaultQABaseURL = "https://api.stackexchange.com"
	defaultQAResults = 5
	defaultQASite    = "stackoverflow"
)

type qaSearchResponse struct {
	Items []struct {
		QuestionID  int64    `json:"question_id"`
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Body        string   `json:"body"`
		Score       int      `json:"score"`
		AnswerCount int      `json:"answer_count"`
		ViewCount   int      `json:"view_count"`
		IsAnswered  bool     `json:"is_answered"`
		Tags        []string `json:"tags"`
	} `json:"items"`
	QuotaRemaining int `json:"quota_remaining"`
}

// QASource searches Stack Exchange questions.
//
// # Description
//
// The key is optional; without it the public per-IP quota applies. Question
// bodies arrive as HTML and are reduced to plain text, skipping code blocks.
// Vote, answer and view counts are carried in Metadata. RawRelevance is
// left on the RelevanceNone scale because vote counts are not comparable to
// engine confidence.
type QASource struct {
	config SourceConfig
	site   string
	client *client
}

// NewQASource creates the Q&A engine client.
func NewQASource(config SourceConfig) *QASource {
	config = config.withDefaults(defaultQABaseURL, defaultQAResults)
	return &QASource{config: config, site: defaultQASite, client: newClient(config)}
}

// Engine implements Source.
func (s *QASource) Engine() datatypes.SearchEngine { return datatypes.EngineQA }

// Batches implements Source.
func (s *QASource) Batches(queries []datatypes.Query) []Batch { return onePerQuery(queries) }

// Fetch implements Source.
func (s *QASource) Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error) {
	params := url.Values{}
	params.Set("order", "desc")
	params.Set("sort", "relevance")
	params.Set("q", batch.Text)
	params.Set("site", s.site)
	params.Set("pagesize", strconv.Itoa(s.config.MaxResults))
	params.Set("filter", "withbody")
	if s.config.APIKey != "" {
		params.Set("key", s.config.APIKey)
	}

	var resp qaSearchResponse
	if err := s.client.getJSON(ctx, s.config.BaseURL+"/2.3/search/advanced?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]datatypes.Resource, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		out = append(out, datatypes.Resource{
			Type:        datatypes.ResourceQA,
			Title:       titleOr(html.UnescapeString(item.Title), item.Link),
			URL:         item.Link,
			Description: truncateRunes(htmlText(item.Body), maxDescriptionRunes),
			Metadata: map[string]any{
				"score":       item.Score,
				"answerCount": item.AnswerCount,
				"viewCount":   item.ViewCount,
				"isAnswered":  item.IsAnswered,
				"tags":        item.Tags,
			},
			RelevanceScale: datatypes.RelevanceNone,
			Engine:         datatypes.EngineQA,
		})
	}
	return out, nil
}

// htmlText extracts whitespace-normalized text from an HTML fragment,
// skipping <pre> blocks.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "pre" {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(b.String()), " ")
}
