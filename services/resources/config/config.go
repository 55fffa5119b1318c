// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the resources service configuration.
//
// # Description
//
// Configuration is built once at startup with priority env > file > defaults
// and passed explicitly into every stage. No stage reads the environment on
// its own. Credentials come from environment variables or, failing that,
// from container secret files under /run/secrets.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// secretsDir is where container secrets are mounted.
var secretsDir = "/run/secrets"

// =============================================================================
// Types
// =============================================================================

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Pipeline  PipelineConfig  `yaml:"pipeline" json:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	GinMode         string        `yaml:"gin_mode" json:"gin_mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LLMConfig selects and configures the generative-model backend.
type LLMConfig struct {
	// Backend is openai, anthropic, ollama or none.
	Backend string        `yaml:"backend" json:"backend"`
	Model   string        `yaml:"model" json:"model"`
	APIKey  string        `yaml:"api_key" json:"-"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// BackendConfig configures one search backend.
type BackendConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"api_key" json:"-"`
	MaxResults        int           `yaml:"max_results" json:"max_results"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	Docs    BackendConfig `yaml:"docs" json:"docs"`
	General BackendConfig `yaml:"general" json:"general"`
	QA      BackendConfig `yaml:"qa" json:"qa"`
	Code    BackendConfig `yaml:"code" json:"code"`

	// Concurrency bounds in-flight backend calls per request.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// PipelineConfig holds the pipeline's tunable limits.
type PipelineConfig struct {
	// TrivialPredicateThreshold is how many of the four trivial-code
	// predicates must hold to short-circuit. Default: 4
	TrivialPredicateThreshold int `yaml:"trivial_predicate_threshold" json:"trivial_predicate_threshold"`

	// MaxQueries bounds baseline plus expansion queries. Default: 15
	MaxQueries int `yaml:"max_queries" json:"max_queries"`

	// ExpansionEnabled gates the optional model refinement. Default: true
	ExpansionEnabled bool `yaml:"expansion_enabled" json:"expansion_enabled"`

	// MaxRefinements is the most queries expansion may add. Default: 3
	MaxRefinements int `yaml:"max_refinements" json:"max_refinements"`

	// PruneLimit bounds resources sent to the ranker. Default: 15
	PruneLimit int `yaml:"prune_limit" json:"prune_limit"`

	// ResponseLimit bounds resources returned. Default: 25
	ResponseLimit int `yaml:"response_limit" json:"response_limit"`

	// RequestTimeout bounds one pipeline run. Default: 45s
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	// TracesExporter is otlp, stdout or none.
	TracesExporter string `yaml:"traces_exporter" json:"traces_exporter"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName    string `yaml:"service_name" json:"service_name"`
}

// =============================================================================
// Defaults
// =============================================================================

// Default returns the production defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            12220,
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Backend: "none",
			Timeout: 60 * time.Second,
		},
		Search: SearchConfig{
			Docs:        BackendConfig{BaseURL: "https://api.exa.ai", MaxResults: 3, RequestsPerSecond: 5, Burst: 5, Timeout: 10 * time.Second},
			General:     BackendConfig{BaseURL: "https://api.tavily.com", MaxResults: 8, RequestsPerSecond: 5, Burst: 5, Timeout: 10 * time.Second},
			QA:          BackendConfig{BaseURL: "https://api.stackexchange.com", MaxResults: 5, RequestsPerSecond: 10, Burst: 10, Timeout: 10 * time.Second},
			Code:        BackendConfig{BaseURL: "https://api.github.com", MaxResults: 5, RequestsPerSecond: 0.5, Burst: 5, Timeout: 10 * time.Second},
			Concurrency: 8,
		},
		Pipeline: PipelineConfig{
			TrivialPredicateThreshold: 4,
			MaxQueries:                15,
			ExpansionEnabled:          true,
			MaxRefinements:            3,
			PruneLimit:                15,
			ResponseLimit:             25,
			RequestTimeout:            45 * time.Second,
		},
		Telemetry: TelemetryConfig{
			TracesExporter: "none",
			ServiceName:    "solace-resources",
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load builds the configuration with priority: env > file > defaults.
//
// # Inputs
//
//   - path: YAML or JSON file. Optional; a missing file is not an error.
//
// # Outputs
//
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or validation fails.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("RESOURCES_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = i
		}
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		cfg.Server.GinMode = v
	}

	if v := os.Getenv("LLM_BACKEND_TYPE"); v != "" {
		cfg.LLM.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" && cfg.LLM.Backend == "ollama" {
		cfg.LLM.BaseURL = v
	}
	switch cfg.LLM.Backend {
	case "openai":
		setIfPresent(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic":
		setIfPresent(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	}

	setIfPresent(&cfg.Search.Docs.APIKey, "DOCS_SEARCH_API_KEY")
	setIfPresent(&cfg.Search.General.APIKey, "WEB_SEARCH_API_KEY")
	setIfPresent(&cfg.Search.QA.APIKey, "STACKEXCHANGE_KEY")
	setIfPresent(&cfg.Search.Code.APIKey, "GITHUB_TOKEN")

	if v := os.Getenv("TRIVIAL_PREDICATE_THRESHOLD"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.TrivialPredicateThreshold = i
		}
	}
	if v := os.Getenv("QUERY_EXPANSION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.ExpansionEnabled = b
		}
	}

	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TracesExporter = strings.ToLower(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
}

func setIfPresent(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// loadSecrets fills still-empty credentials from secret files.
func loadSecrets(cfg *Config) {
	switch cfg.LLM.Backend {
	case "openai":
		readSecret(&cfg.LLM.APIKey, "openai_api_key")
	case "anthropic":
		readSecret(&cfg.LLM.APIKey, "anthropic_api_key")
	}
	readSecret(&cfg.Search.Docs.APIKey, "docs_search_api_key")
	readSecret(&cfg.Search.General.APIKey, "web_search_api_key")
	readSecret(&cfg.Search.QA.APIKey, "stackexchange_key")
	readSecret(&cfg.Search.Code.APIKey, "github_token")
}

func readSecret(dst *string, name string) {
	if *dst != "" {
		return
	}
	content, err := os.ReadFile(filepath.Join(secretsDir, name))
	if err != nil {
		return
	}
	if v := strings.TrimSpace(string(content)); v != "" {
		*dst = v
		slog.Info("Read credential from secrets", "name", name)
	}
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode %q is not one of debug, release, test", c.Server.GinMode)
	}
	switch c.LLM.Backend {
	case "", "none", "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm.backend %q is not one of openai, anthropic, ollama, none", c.LLM.Backend)
	}
	if c.LLM.Backend == "ollama" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required for the ollama backend")
	}
	if t := c.Pipeline.TrivialPredicateThreshold; t < 1 || t > 4 {
		return fmt.Errorf("pipeline.trivial_predicate_threshold must be between 1 and 4")
	}
	if c.Pipeline.MaxQueries < 1 {
		return fmt.Errorf("pipeline.max_queries must be >= 1")
	}
	if c.Pipeline.PruneLimit < 1 {
		return fmt.Errorf("pipeline.prune_limit must be >= 1")
	}
	if c.Pipeline.ResponseLimit < 1 {
		return fmt.Errorf("pipeline.response_limit must be >= 1")
	}
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("search.concurrency must be >= 1")
	}
	for name, b := range map[string]BackendConfig{
		"docs": c.Search.Docs, "general": c.Search.General, "qa": c.Search.QA, "code": c.Search.Code,
	} {
		if b.RequestsPerSecond <= 0 {
			return fmt.Errorf("search.%s.requests_per_second must be > 0", name)
		}
	}
	switch c.Telemetry.TracesExporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("telemetry.traces_exporter %q is not one of otlp, stdout, none", c.Telemetry.TracesExporter)
	}
	if c.Telemetry.TracesExporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required for the otlp exporter")
	}
	return nil
}

// LogValue implements slog.LogValuer. Credentials are reported only as
// present or absent.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Server.Port),
		slog.String("llm_backend", c.LLM.Backend),
		slog.String("llm_model", c.LLM.Model),
		slog.Bool("llm_key_present", c.LLM.APIKey != ""),
		slog.Bool("docs_key_present", c.Search.Docs.APIKey != ""),
		slog.Bool("web_key_present", c.Search.General.APIKey != ""),
		slog.Bool("stackexchange_key_present", c.Search.QA.APIKey != ""),
		slog.Bool("github_token_present", c.Search.Code.APIKey != ""),
		slog.Int("trivial_threshold", c.Pipeline.TrivialPredicateThreshold),
		slog.String("traces_exporter", c.Telemetry.TracesExporter),
	)
}
