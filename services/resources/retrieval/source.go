// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval fans routed queries out to the search backends and
// normalizes their results into datatypes.Resource.
//
// # Description
//
// Four backends are supported, one per datatypes.SearchEngine:
//   - DocsSource: documentation search, exact phrase, fixed prior relevance.
//   - GeneralSource: web search, one disjunctive call per intent group.
//   - QASource: Stack Exchange question search.
//   - CodeSource: GitHub repository search sorted by stars.
//
// Each backend call is rate limited and fails soft: the Retriever logs the
// error, records it, and substitutes an empty list. Retrieve never fails.
//
// # Thread Safety
//
// Sources and Retriever are safe for concurrent use.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 4 << 20

// =============================================================================
// Interfaces
// =============================================================================

// Source is one search backend.
type Source interface {
	// Engine identifies the backend.
	Engine() datatypes.SearchEngine

	// Batches groups the queries routed to this backend into calls.
	Batches(queries []datatypes.Query) []Batch

	// Fetch performs one call. Errors are returned to the Retriever, which
	// absorbs them.
	Fetch(ctx context.Context, batch Batch) ([]datatypes.Resource, error)
}

// Batch is one backend call.
type Batch struct {
	// Text is the query string sent to the backend.
	Text string

	// Intent is shared by every member query.
	Intent datatypes.Intent

	// Queries are the member queries.
	Queries []datatypes.Query
}

// onePerQuery is the batching used by every backend except general search.
func onePerQuery(queries []datatypes.Query) []Batch {
	out := make([]Batch, 0, len(queries))
	for _, q := range queries {
		out = append(out, Batch{Text: q.Primary, Intent: q.Intent, Queries: []datatypes.Query{q}})
	}
	return out
}

// =============================================================================
// Configuration
// =============================================================================

// SourceConfig configures one backend.
//
// # Example
//
//	docs := retrieval.NewDocsSource(retrieval.SourceConfig{
//	    BaseURL: "https://api.exa.ai",
//	    APIKey:  key,
//	})
type SourceConfig struct {
	// BaseURL of the backend API, without trailing slash.
	BaseURL string

	// APIKey or token. Optional for some backends.
	APIKey string

	// MaxResults per call. Zero uses the backend default.
	MaxResults int

	// RequestsPerSecond for the backend's limiter. Zero uses 5.
	RequestsPerSecond float64

	// Burst for the backend's limiter. Zero uses 5.
	Burst int

	// Timeout per call. Zero uses 10s.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

func (c SourceConfig) withDefaults(baseURL string, maxResults int) SourceConfig {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.MaxResults <= 0 {
		c.MaxResults = maxResults
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// =============================================================================
// HTTP Plumbing
// =============================================================================

// client is the rate-limited JSON transport shared by all backends.
type client struct {
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func newClient(c SourceConfig) *client {
	return &client{
		http:    c.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(c.RequestsPerSecond), c.Burst),
		timeout: c.Timeout,
	}
}

// do waits for the limiter, sends req, and decodes a 200 JSON body into out.
func (c *client) do(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, snippet(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

func (c *client) postJSON(ctx context.Context, url string, payload any, headers map[string]string, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(ctx, req, out)
}

func (c *client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(ctx, req, out)
}

func snippet(body []byte) string {
	const n = 200
	if len(body) > n {
		return string(body[:n]) + "..."
	}
	return string(body)
}
