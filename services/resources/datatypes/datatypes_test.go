// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_WireNames(t *testing.T) {
	q := Query{
		Primary:      "react API reference",
		Intent:       IntentDocumentation,
		Weight:       1,
		Source:       QueryFromBaseline,
		ContentType:  ContentDocumentation,
		SearchEngine: EngineGeneral,
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"intent":"documentation"`)
	assert.Contains(t, string(data), `"searchEngine":"general"`)

	var back Query
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
}

func TestUnmarshalText_RejectsUnknownNames(t *testing.T) {
	var kind AnchorKind
	assert.Error(t, kind.UnmarshalText([]byte("library")))

	var engine SearchEngine
	assert.Error(t, engine.UnmarshalText([]byte("bing")))

	require.NoError(t, kind.UnmarshalText([]byte("framework-api")))
	assert.Equal(t, AnchorFrameworkAPI, kind)
}

func TestMarshalText_RejectsUndefinedValues(t *testing.T) {
	_, err := json.Marshal(Anchor{Kind: AnchorKind(99)})
	assert.Error(t, err)
}

func TestResourcesRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ResourcesRequest
		wantErr bool
	}{
		{
			name: "complete",
			req:  ResourcesRequest{CodeContext: &CodeContext{Language: "go"}, ReviewResponse: &ReviewResponse{}},
		},
		{
			name:    "missing code context",
			req:     ResourcesRequest{ReviewResponse: &ReviewResponse{}},
			wantErr: true,
		},
		{
			name:    "missing review",
			req:     ResourcesRequest{CodeContext: &CodeContext{}},
			wantErr: true,
		},
		{
			name: "oversized intent",
			req: ResourcesRequest{
				CodeContext:    &CodeContext{},
				ReviewResponse: &ReviewResponse{},
				UserIntent:     strings.Repeat("a", MaxUserIntentBytes+1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoutingTelemetry_Add(t *testing.T) {
	var r RoutingTelemetry
	for _, e := range []SearchEngine{EngineDocs, EngineGeneral, EngineGeneral, EngineQA, EngineCode, SearchEngine(9)} {
		r.Add(e)
	}
	assert.Equal(t, RoutingTelemetry{DocEngine: 1, GeneralEngine: 2, QAEngine: 1, CodeEngine: 1}, r)
}
