// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resources wires the learning-resource recommendation service.
//
// # Description
//
// New builds every pipeline collaborator from one config.Config: the model
// client, the four search backends, Prometheus metrics, OpenTelemetry
// tracing and the gin router. No component reads the environment after
// construction.
//
// # Usage
//
//	cfg, err := config.Load("/etc/solace/resources.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc, err := resources.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run(ctx))
package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/reykhambhaita/Solace-sub001/services/llm"
	"github.com/reykhambhaita/Solace-sub001/services/resources/anchors"
	"github.com/reykhambhaita/Solace-sub001/services/resources/config"
	"github.com/reykhambhaita/Solace-sub001/services/resources/handlers"
	"github.com/reykhambhaita/Solace-sub001/services/resources/observability"
	"github.com/reykhambhaita/Solace-sub001/services/resources/pipeline"
	"github.com/reykhambhaita/Solace-sub001/services/resources/queries"
	"github.com/reykhambhaita/Solace-sub001/services/resources/ranking"
	"github.com/reykhambhaita/Solace-sub001/services/resources/retrieval"
	"github.com/reykhambhaita/Solace-sub001/services/resources/reviewctx"
	"github.com/reykhambhaita/Solace-sub001/services/resources/routes"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the runnable resources service.
type Service interface {
	// Run serves HTTP until ctx is cancelled, then shuts down gracefully
	// within the configured shutdown timeout.
	Run(ctx context.Context) error

	// Router returns the configured gin engine, for tests.
	Router() *gin.Engine
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config        config.Config
	router        *gin.Engine
	registry      *prometheus.Registry
	metrics       *observability.PipelineMetrics
	llmClient     llm.LLMClient
	pipeline      *pipeline.Pipeline
	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// New creates the Service.
//
// # Description
//
// Initialization order:
//  1. Tracing (otlp, stdout, or none)
//  2. Prometheus registry and pipeline metrics
//  3. Model client. A failure here is logged and the service runs without
//     expansion and with decay-only ranking.
//  4. Search backends. Docs and general search need an API key and are
//     skipped without one; Q&A and code search work anonymously.
//  5. Pipeline, handler and routes.
//
// # Inputs
//
//   - cfg: A validated configuration, normally from config.Load.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Tracing or pipeline setup failed.
func New(cfg config.Config) (Service, error) {
	s := &service{config: cfg}

	cleanup, err := initTracer(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = observability.NewPipelineMetrics(s.registry)

	s.initLLMClient()

	s.pipeline, err = pipeline.New(pipeline.Deps{
		Extractor: anchors.NewExtractor(anchors.Config{
			TrivialThreshold: cfg.Pipeline.TrivialPredicateThreshold,
		}),
		ContextBuilder: reviewctx.DefaultBuilder{},
		Expander: queries.NewExpander(s.llmClient, queries.ExpansionConfig{
			Enabled:        cfg.Pipeline.ExpansionEnabled,
			MaxRefinements: cfg.Pipeline.MaxRefinements,
			MaxQueries:     cfg.Pipeline.MaxQueries,
			Temperature:    queries.DefaultExpansionConfig().Temperature,
		}),
		Retriever: retrieval.NewRetriever(
			retrieval.Config{Concurrency: cfg.Search.Concurrency},
			s.metrics,
			buildSources(cfg.Search)...,
		),
		Ranker: ranking.NewRanker(s.llmClient, ranking.DefaultRankConfig()),
		Metrics: s.metrics,
	}, pipeline.Limits{
		MaxQueries:     cfg.Pipeline.MaxQueries,
		PruneLimit:     cfg.Pipeline.PruneLimit,
		ResponseLimit:  cfg.Pipeline.ResponseLimit,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s.initRouter()
	slog.Info("Resources service initialized", "config", cfg)
	return s, nil
}

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting resources server", "port", s.config.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down resources server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Initialization Helpers
// =============================================================================

func initTracer(cfg config.TelemetryConfig) (func(context.Context), error) {
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	switch cfg.TracesExporter {
	case "", "none":
		slog.Info("Tracing disabled")
		return func(context.Context) {}, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	case "otlp":
		conn, err := grpc.NewClient(cfg.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown traces exporter %q", cfg.TracesExporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	slog.Info("Tracing enabled", "exporter", cfg.TracesExporter)

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	}, nil
}

func (s *service) initLLMClient() {
	client, err := llm.New(llm.Options{
		Backend: llm.Backend(s.config.LLM.Backend),
		Model:   s.config.LLM.Model,
		APIKey:  s.config.LLM.APIKey,
		BaseURL: s.config.LLM.BaseURL,
		Timeout: s.config.LLM.Timeout,
	})
	if err != nil {
		slog.Warn("LLM client unavailable, expansion off and ranking uses decay",
			"backend", s.config.LLM.Backend,
			"error", err)
		return
	}
	if client == nil {
		slog.Info("No LLM backend configured, expansion off and ranking uses decay")
		return
	}
	s.llmClient = client
	slog.Info("Using LLM backend", "backend", s.config.LLM.Backend)
}

// buildSources registers a source per configured engine.
func buildSources(cfg config.SearchConfig) []retrieval.Source {
	var sources []retrieval.Source
	if cfg.Docs.APIKey != "" {
		sources = append(sources, retrieval.NewDocsSource(sourceConfig(cfg.Docs)))
	} else {
		slog.Warn("Docs search API key not set, docs queries will be dropped")
	}
	if cfg.General.APIKey != "" {
		sources = append(sources, retrieval.NewGeneralSource(sourceConfig(cfg.General)))
	} else {
		slog.Warn("Web search API key not set, general queries will be dropped")
	}
	sources = append(sources,
		retrieval.NewQASource(sourceConfig(cfg.QA)),
		retrieval.NewCodeSource(sourceConfig(cfg.Code)),
	)
	return sources
}

func sourceConfig(b config.BackendConfig) retrieval.SourceConfig {
	return retrieval.SourceConfig{
		BaseURL:           b.BaseURL,
		APIKey:            b.APIKey,
		MaxResults:        b.MaxResults,
		RequestsPerSecond: b.RequestsPerSecond,
		Burst:             b.Burst,
		Timeout:           b.Timeout,
	}
}

func (s *service) initRouter() {
	gin.SetMode(s.config.Server.GinMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))

	routes.SetupRoutes(s.router, handlers.NewResourcesHandler(s.pipeline, s.metrics), s.registry)
}

func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
