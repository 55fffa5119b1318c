// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reykhambhaita/Solace-sub001/pkg/llmjson"
	"github.com/reykhambhaita/Solace-sub001/pkg/validation"
	"github.com/reykhambhaita/Solace-sub001/services/llm"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/reviewctx"
)

// =============================================================================
// Configuration
// =============================================================================

// ExpansionConfig holds configuration for query expansion.
//
// # Example
//
//	config := DefaultExpansionConfig()
//	config.MaxRefinements = 2
//	expander := NewExpander(client, config)
type ExpansionConfig struct {
	// Enabled controls whether expansion is attempted at all.
	// Default: true
	Enabled bool

	// MaxRefinements is the most queries the model may add.
	// Default: 3
	MaxRefinements int

	// MaxQueries is the total query budget shared with the baseline.
	// Default: DefaultMaxQueries
	MaxQueries int

	// Temperature for the expansion call.
	// Default: 0.2
	Temperature float32

	// MaxTokens is the maximum tokens for the expansion response.
	// Default: 200
	MaxTokens int

	// Timeout bounds the model call.
	// Default: 8s
	Timeout time.Duration

	// Weight is assigned to accepted refinements.
	// Default: 0.8
	Weight float64
}

// DefaultExpansionConfig returns the default expansion configuration.
func DefaultExpansionConfig() ExpansionConfig {
	return ExpansionConfig{
		Enabled:        true,
		MaxRefinements: 3,
		MaxQueries:     DefaultMaxQueries,
		Temperature:    0.2,
		MaxTokens:      200,
		Timeout:        8 * time.Second,
		Weight:         0.8,
	}
}

// =============================================================================
// Expander
// =============================================================================

// Expander refines baseline queries with one generative-model call.
//
// # Description
//
// Expansion is strictly additive. Every failure mode (no client, disabled,
// model error, unparseable completion, a proposal that names no known
// symbol) returns the baseline untouched.
//
// # Thread Safety
//
// Safe for concurrent use if the underlying client is.
type Expander struct {
	client llm.LLMClient
	config ExpansionConfig
}

// NewExpander creates an Expander. A nil client means no model credential is
// configured and Expand always returns the baseline.
func NewExpander(client llm.LLMClient, config ExpansionConfig) *Expander {
	d := DefaultExpansionConfig()
	if config.MaxRefinements <= 0 {
		config.MaxRefinements = d.MaxRefinements
	}
	if config.MaxQueries <= 0 {
		config.MaxQueries = d.MaxQueries
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = d.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if config.Weight <= 0 {
		config.Weight = d.Weight
	}
	return &Expander{client: client, config: config}
}

// Expand returns baseline plus any accepted refinements.
//
// # Description
//
// Skips the model entirely when expansion is disabled by configuration or by
// the baseline metadata, when no client is configured, when the baseline has
// no concrete symbols, or when the query budget is already spent.
// Refinements inherit the routing of the first baseline query that mentions
// the same symbol, excluding code-engine queries.
//
// # Inputs
//
//   - ctx: Request context. Cancellation aborts the model call.
//   - baseline: Output of BuildBaseline.
//   - rc: Narrative context for the prompt.
//   - meta: Metadata from BuildBaseline.
//
// # Outputs
//
//   - []datatypes.Query: baseline followed by zero or more refinements.
//
// # Limitations
//
//   - One round trip, no retries.
func (e *Expander) Expand(ctx context.Context, baseline []datatypes.Query, rc reviewctx.ReviewContext, meta datatypes.QueryMetadata) []datatypes.Query {
	if skip := e.skipReason(baseline, meta); skip != "" {
		slog.Debug("Query expansion skipped", "reason", skip)
		return baseline
	}

	budget := e.config.MaxQueries - len(baseline)
	if budget > e.config.MaxRefinements {
		budget = e.config.MaxRefinements
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	temperature := e.config.Temperature
	maxTokens := e.config.MaxTokens
	completion, err := e.client.Generate(ctx, buildExpansionPrompt(baseline, rc, meta.Symbols, budget), llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		slog.Warn("Query expansion call failed, keeping baseline", "error", err)
		return baseline
	}

	proposals, err := llmjson.ParseArray[string](completion)
	if err != nil {
		slog.Warn("Query expansion response unusable, keeping baseline", "error", err)
		return baseline
	}

	refinements, err := e.accept(proposals, baseline, meta.Symbols, budget)
	if err != nil {
		slog.Warn("Query expansion rejected, keeping baseline", "error", err)
		return baseline
	}

	out := make([]datatypes.Query, 0, len(baseline)+len(refinements))
	out = append(out, baseline...)
	out = append(out, refinements...)
	slog.Debug("Expanded queries", "baseline", len(baseline), "added", len(refinements))
	return out
}

func (e *Expander) skipReason(baseline []datatypes.Query, meta datatypes.QueryMetadata) string {
	switch {
	case !e.config.Enabled:
		return "disabled by configuration"
	case meta.ExpansionDisabled:
		return "disabled for generic anchor"
	case e.client == nil:
		return "no model configured"
	case !meta.HasConcreteSymbols || len(meta.Symbols) == 0:
		return "no concrete symbols"
	case len(baseline) >= e.config.MaxQueries:
		return "query budget exhausted"
	default:
		return ""
	}
}

// accept validates proposals. A proposal naming no known symbol rejects the
// whole batch; exact duplicates of existing queries are dropped silently.
func (e *Expander) accept(proposals []string, baseline []datatypes.Query, symbols []string, budget int) ([]datatypes.Query, error) {
	seen := make(map[string]bool, len(baseline))
	for _, q := range baseline {
		seen[strings.ToLower(q.Primary)] = true
	}

	var out []datatypes.Query
	for _, raw := range proposals {
		if len(out) >= budget {
			break
		}
		text := validation.SanitizeSymbol(raw)
		if text == "" {
			continue
		}
		symbol, ok := mentionedSymbol(text, symbols)
		if !ok {
			return nil, fmt.Errorf("refinement %q names no known symbol", text)
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		route := inheritRoute(symbol, baseline)
		out = append(out, datatypes.Query{
			Primary:      text,
			Intent:       route.Intent,
			Weight:       e.config.Weight,
			Source:       datatypes.QueryFromExpansion,
			ContentType:  route.ContentType,
			SearchEngine: route.Engine,
		})
	}
	return out, nil
}

func mentionedSymbol(text string, symbols []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, s := range symbols {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return s, true
		}
	}
	return "", false
}

func inheritRoute(symbol string, baseline []datatypes.Query) Route {
	lower := strings.ToLower(symbol)
	for _, q := range baseline {
		if q.SearchEngine == datatypes.EngineCode {
			continue
		}
		if strings.Contains(strings.ToLower(q.Primary), lower) {
			return Route{Intent: q.Intent, ContentType: q.ContentType, Engine: q.SearchEngine}
		}
	}
	return Route{Intent: datatypes.IntentDocumentation, ContentType: datatypes.ContentDocumentation, Engine: datatypes.EngineGeneral}
}

// buildExpansionPrompt creates the prompt for refinement generation.
func buildExpansionPrompt(baseline []datatypes.Query, rc reviewctx.ReviewContext, symbols []string, budget int) string {
	var existing strings.Builder
	for _, q := range baseline {
		fmt.Fprintf(&existing, "- %s\n", q.Primary)
	}

	return fmt.Sprintf(`You refine search queries for a programming learner.

%s
Known symbols: %s

Existing queries:
%s
Propose at most %d additional search queries. Every query MUST mention one of
the known symbols exactly as written. Do not introduce libraries, frameworks
or APIs that are not in the known symbols. Do not repeat existing queries.

Respond with only a JSON array of strings, for example:
["symbol usage example", "symbol common pitfalls"]`, rc.Prompt(), strings.Join(symbols, ", "), existing.String(), budget)
}
