// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resources

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reykhambhaita/Solace-sub001/services/resources/config"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Server.GinMode = "test"
	cfg.Server.Port = 0
	return cfg
}

func TestNew_ServesHealthAndMetrics(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		svc.Router().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestNew_TrivialRequestShortCircuits(t *testing.T) {
	svc, err := New(testConfig())
	require.NoError(t, err)

	body := []byte(`{
		"codeContext": {"language": "python", "reviewIR": {"structure": {"lines": 1}}},
		"sourceCode": "print(1)",
		"reviewResponse": {"summary": "Prints one."}
	}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/resources", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shortCircuit":true`)
}

func TestNew_UnknownExporterFails(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.TracesExporter = "jaeger"

	_, err := New(cfg)

	assert.Error(t, err)
}

func TestNew_BadLLMBackendDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Backend = "openai"

	svc, err := New(cfg)

	require.NoError(t, err)
	assert.Nil(t, svc.(*service).llmClient)
}

func TestBuildSources(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.SearchConfig)
		engines []datatypes.SearchEngine
	}{
		{
			name:    "anonymous backends only",
			mutate:  func(*config.SearchConfig) {},
			engines: []datatypes.SearchEngine{datatypes.EngineQA, datatypes.EngineCode},
		},
		{
			name: "all backends with keys",
			mutate: func(c *config.SearchConfig) {
				c.Docs.APIKey = "exa"
				c.General.APIKey = "tvly"
			},
			engines: datatypes.AllSearchEngines(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Search
			tt.mutate(&cfg)

			var got []datatypes.SearchEngine
			for _, s := range buildSources(cfg) {
				got = append(got, s.Engine())
			}
			assert.Equal(t, tt.engines, got)
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = time.Second
	svc, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
