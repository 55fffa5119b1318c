// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the generative-model backends used for query
// expansion and resource ranking.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Backend selects an LLMClient implementation.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
	BackendOllama    Backend = "ollama"
	BackendNone      Backend = "none"
)

// ErrMissingCredential is returned when a hosted backend has no API key.
var ErrMissingCredential = errors.New("llm backend credential missing")

// defaultSystemPrompt is sent to backends that accept a system role.
const defaultSystemPrompt = "You are a precise assistant. Follow the output format exactly."

// Options configures New.
type Options struct {
	Backend Backend
	Model   string
	APIKey  string

	// BaseURL overrides the backend endpoint. Required for Ollama.
	BaseURL string

	// Timeout for a single HTTP round trip. Zero uses 60s.
	Timeout time.Duration

	// SystemPrompt overrides defaultSystemPrompt.
	SystemPrompt string
}

func (o Options) systemPrompt() string {
	if s := strings.TrimSpace(o.SystemPrompt); s != "" {
		return s
	}
	return defaultSystemPrompt
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return 60 * time.Second
}

// New builds the configured client.
//
// # Outputs
//
//   - LLMClient: nil when Backend is none or empty. Callers treat a nil
//     client as "no model credential" and take their fallbacks.
//   - error: ErrMissingCredential for a hosted backend without a key, or a
//     construction error.
//
// # Examples
//
//	client, err := llm.New(llm.Options{Backend: llm.BackendOpenAI, APIKey: key})
//	if err != nil {
//	    slog.Warn("model disabled", "error", err) // client is nil
//	}
func New(opts Options) (LLMClient, error) {
	switch Backend(strings.ToLower(string(opts.Backend))) {
	case "", BackendNone:
		slog.Info("No LLM backend configured, expansion and ranking will use fallbacks")
		return nil, nil
	case BackendOpenAI:
		c, err := NewOpenAIClient(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendAnthropic:
		c, err := NewAnthropicClient(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendOllama:
		c, err := NewOllamaClient(opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", opts.Backend)
	}
}
