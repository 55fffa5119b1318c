// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ranking

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/reykhambhaita/Solace-sub001/pkg/llmjson"
	"github.com/reykhambhaita/Solace-sub001/services/llm"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/reviewctx"
)

// Position decay, in hundredths so the sequence is exact.
const (
	decayStartCents = 90
	decayStepCents  = 5
	decayFloorCents = 10
)

// DecayScore is the fallback score for the resource at position i:
// 0.90, 0.85, 0.80, ... floored at 0.10.
func DecayScore(i int) float64 {
	if i < 0 {
		i = 0
	}
	cents := max(decayStartCents-decayStepCents*i, decayFloorCents)
	return float64(cents) / 100
}

// RankConfig configures the ranker.
type RankConfig struct {
	// Temperature for the ranking call.
	// Default: 0.1
	Temperature float32

	// MaxTokens for the ranking response.
	// Default: 300
	MaxTokens int

	// Timeout bounds the model call.
	// Default: 15s
	Timeout time.Duration
}

// DefaultRankConfig returns the production ranker settings.
func DefaultRankConfig() RankConfig {
	return RankConfig{Temperature: 0.1, MaxTokens: 300, Timeout: 15 * time.Second}
}

// Ranker scores resources with one generative-model call.
//
// # Description
//
// Without a client, with empty input, or on any model or parse failure,
// every resource receives DecayScore by position and Ranked=false. On
// success each resource gets the model's score and Ranked=true; the model
// may answer null for a resource it cannot judge, which leaves that
// resource to FinalizeScores.
//
// # Thread Safety
//
// Safe for concurrent use if the underlying client is.
type Ranker struct {
	client llm.LLMClient
	config RankConfig
}

// NewRanker creates a Ranker. A nil client means no model credential.
func NewRanker(client llm.LLMClient, config RankConfig) *Ranker {
	d := DefaultRankConfig()
	if config.MaxTokens <= 0 {
		config.MaxTokens = d.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	return &Ranker{client: client, config: config}
}

// Rank scores resources.
//
// # Inputs
//
//   - ctx: Request context.
//   - resources: Pruned resources. Not modified.
//   - rc: Learning context for the prompt.
//
// # Outputs
//
//   - []datatypes.Resource: Copies with RelevanceScore set, in input order.
//   - bool: True when model scores were applied.
func (r *Ranker) Rank(ctx context.Context, resources []datatypes.Resource, rc reviewctx.ReviewContext) ([]datatypes.Resource, bool) {
	out := make([]datatypes.Resource, len(resources))
	copy(out, resources)

	if len(out) == 0 {
		return out, false
	}
	if r.client == nil {
		slog.Debug("Ranking skipped, no model configured")
		applyDecay(out)
		return out, false
	}

	scores, err := r.modelScores(ctx, out, rc)
	if err != nil {
		slog.Warn("Ranking failed, using position decay", "error", err)
		applyDecay(out)
		return out, false
	}

	for i, s := range scores {
		if s == nil {
			out[i].RelevanceScore = nil
			out[i].Ranked = false
			continue
		}
		v := *s
		out[i].RelevanceScore = &v
		out[i].Ranked = true
	}
	FinalizeScores(out)
	return out, true
}

func (r *Ranker) modelScores(ctx context.Context, resources []datatypes.Resource, rc reviewctx.ReviewContext) ([]*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	temperature := r.config.Temperature
	maxTokens := r.config.MaxTokens
	completion, err := r.client.Generate(ctx, buildRankingPrompt(resources, rc), llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking call failed: %w", err)
	}

	scores, err := llmjson.ParseArray[*float64](completion)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(resources) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(resources), len(scores))
	}
	judged := 0
	for i, s := range scores {
		if s == nil {
			continue
		}
		if math.IsNaN(*s) || *s < 0 || *s > 1 {
			return nil, fmt.Errorf("score %d out of range: %v", i, *s)
		}
		judged++
	}
	if judged == 0 {
		return nil, fmt.Errorf("model judged no resources")
	}
	return scores, nil
}

// FinalizeScores fills every missing RelevanceScore so no resource is left
// unscored. Precedence: an existing model score, then RawRelevance when the
// source reports it on a comparable scale, then DecayScore by position.
func FinalizeScores(resources []datatypes.Resource) {
	for i := range resources {
		if resources[i].RelevanceScore != nil {
			continue
		}
		v := DecayScore(i)
		if resources[i].HasComparableRelevance() {
			v = resources[i].RawRelevance
		}
		resources[i].RelevanceScore = &v
	}
}

func applyDecay(resources []datatypes.Resource) {
	for i := range resources {
		v := DecayScore(i)
		resources[i].RelevanceScore = &v
		resources[i].Ranked = false
	}
}

func buildRankingPrompt(resources []datatypes.Resource, rc reviewctx.ReviewContext) string {
	var list strings.Builder
	for i, res := range resources {
		fmt.Fprintf(&list, "%d. [%s] %s\n   %s\n", i+1, res.Type, res.Title, res.URL)
		if res.Description != "" {
			fmt.Fprintf(&list, "   %s\n", truncate(res.Description, 160))
		}
	}

	return fmt.Sprintf(`You rate learning resources for a programmer.

%s
Resources:
%s
Rate how useful each resource is for the learning goal, from 0.0 (useless)
to 1.0 (ideal). Prefer the listed content types.

Respond with only a JSON array of exactly %d numbers in the same order as the
resources. Use null for a resource you cannot judge.`, rc.Prompt(), list.String(), len(resources))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// DefaultResponseLimit bounds the final response.
const DefaultResponseLimit = 25

// TopByScore stable-sorts a copy of resources by descending RelevanceScore
// and keeps at most limit. Values <= 0 use DefaultResponseLimit.
func TopByScore(resources []datatypes.Resource, limit int) []datatypes.Resource {
	if limit <= 0 {
		limit = DefaultResponseLimit
	}
	out := slices.Clone(resources)
	slices.SortStableFunc(out, func(a, b datatypes.Resource) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
