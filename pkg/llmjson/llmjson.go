// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llmjson extracts JSON arrays from generative-model completions.
//
// # Description
//
// Models are asked for a bare JSON array but routinely wrap it in a markdown
// fence or a sentence of prose. ParseArray accepts exactly three shapes:
//
//   - the whole completion is the array
//   - the array inside a single ```json fence
//   - one bracketed array surrounded by prose that contains no other
//     brackets or braces
//
// Anything else fails closed with an error so the caller applies its
// documented fallback instead of acting on a best-effort guess.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSONArray means the completion contained no array at all.
	ErrNoJSONArray = errors.New("no JSON array in completion")

	// ErrAmbiguous means the completion contained brackets outside the
	// candidate array, so which span was meant cannot be decided safely.
	ErrAmbiguous = errors.New("ambiguous JSON in completion")
)

// ParseArray decodes the single JSON array carried by completion into []T.
//
// # Inputs
//
//   - completion: Raw model output.
//
// # Outputs
//
//   - []T: Decoded elements. Never nil on success.
//   - error: ErrNoJSONArray, ErrAmbiguous, or a wrapped decode error.
//
// # Examples
//
//	scores, err := llmjson.ParseArray[float64]("Scores: [0.9, 0.4]")
//	// scores == []float64{0.9, 0.4}
//
//	_, err = llmjson.ParseArray[float64]("[1] or maybe [2]")
//	// errors.Is(err, llmjson.ErrAmbiguous)
func ParseArray[T any](completion string) ([]T, error) {
	span, err := arraySpan(completion)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(span))
	var out []T
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode JSON array: %w", ErrAmbiguous)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// arraySpan locates the candidate array text.
func arraySpan(completion string) (string, error) {
	text := stripFence(strings.TrimSpace(completion))
	if text == "" {
		return "", ErrNoJSONArray
	}
	if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
		return text, nil
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONArray
	}

	outside := text[:start] + text[end+1:]
	if strings.ContainsAny(outside, "[]{}") {
		return "", ErrAmbiguous
	}
	return text[start : end+1], nil
}

// stripFence removes one surrounding markdown code fence, if present.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string ("json", "JSON", ...).
		body = body[nl+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
