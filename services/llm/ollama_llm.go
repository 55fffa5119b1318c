// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("solace.llm.ollama")

const defaultOllamaModel = "llama3.1"

// OllamaClient talks to a local Ollama server through langchaingo. The
// system prompt is left to the model template.
type OllamaClient struct {
	llm   *ollama.LLM
	model string
}

func NewOllamaClient(opts Options) (*OllamaClient, error) {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ollama base URL not set")
	}
	model := opts.Model
	if model == "" {
		slog.Warn("LLM model not set for Ollama, defaulting", "model", defaultOllamaModel)
		model = defaultOllamaModel
	}

	client, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
		ollama.WithHTTPClient(&http.Client{Timeout: opts.timeout()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	slog.Info("Initializing Ollama client", "base_url", baseURL, "model", model)
	return &OllamaClient{llm: client, model: model}, nil
}

// Generate implements the LLMClient interface
func (o *OllamaClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	ctx, span := tracer.Start(ctx, "OllamaClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	var options []llms.CallOption
	if params.Temperature != nil {
		options = append(options, llms.WithTemperature(float64(*params.Temperature)))
	}
	if params.TopK != nil {
		options = append(options, llms.WithTopK(*params.TopK))
	}
	if params.TopP != nil {
		options = append(options, llms.WithTopP(float64(*params.TopP)))
	}
	if params.MaxTokens != nil {
		options = append(options, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		options = append(options, llms.WithStopWords(params.Stop))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, options...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ollama generate failed")
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}
	span.SetAttributes(attribute.Int("llm.response_length", len(text)))
	return text, nil
}
