// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/observability"
)

// Config tunes the fan-out.
type Config struct {
	// Concurrency is the maximum number of in-flight backend calls.
	// Default: 8
	Concurrency int
}

// EngineStats summarizes one engine's part of a Retrieve call.
type EngineStats struct {
	Queries   int `json:"queries"`
	Calls     int `json:"calls"`
	Failed    int `json:"failed"`
	Resources int `json:"resources"`
}

// Result is the joined output of every backend call.
type Result struct {
	// Resources are concatenated in engine order (docs, general, qa, code)
	// and batch order within an engine, regardless of completion order.
	Resources []datatypes.Resource

	// Stats per engine that received at least one query.
	Stats map[datatypes.SearchEngine]EngineStats

	// Dropped counts queries routed to an engine with no registered source.
	Dropped int
}

// Retriever fans queries out to the registered sources.
type Retriever struct {
	sources map[datatypes.SearchEngine]Source
	config  Config
	metrics *observability.PipelineMetrics
	tracer  trace.Tracer
}

// NewRetriever creates a Retriever. A later source for the same engine
// replaces an earlier one. metrics may be nil.
func NewRetriever(config Config, metrics *observability.PipelineMetrics, sources ...Source) *Retriever {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	r := &Retriever{
		sources: make(map[datatypes.SearchEngine]Source, len(sources)),
		config:  config,
		metrics: metrics,
		tracer:  otel.Tracer("solace.resources.retrieval"),
	}
	for _, s := range sources {
		r.sources[s.Engine()] = s
	}
	return r
}

type fetchTask struct {
	source Source
	batch  Batch
}

// Retrieve runs every backend call concurrently and joins the results.
//
// # Description
//
// Calls are bounded by Config.Concurrency. Each call absorbs its own
// failure (error, panic, cancelled context, rate-limit wait) into an empty
// list, so Retrieve always returns and never reports an error. Cancelling
// ctx cancels in-flight calls.
//
// # Inputs
//
//   - ctx: Request context.
//   - queries: Routed queries.
//
// # Outputs
//
//   - Result: Possibly empty resources plus per-engine stats.
func (r *Retriever) Retrieve(ctx context.Context, queries []datatypes.Query) Result {
	result := Result{Stats: make(map[datatypes.SearchEngine]EngineStats)}

	byEngine := make(map[datatypes.SearchEngine][]datatypes.Query)
	for _, q := range queries {
		byEngine[q.SearchEngine] = append(byEngine[q.SearchEngine], q)
	}

	var tasks []fetchTask
	routed := 0
	for _, engine := range datatypes.AllSearchEngines() {
		qs := byEngine[engine]
		if len(qs) == 0 {
			continue
		}
		routed += len(qs)
		src, ok := r.sources[engine]
		if !ok {
			slog.Debug("No source registered for engine, dropping queries",
				"engine", engine.String(), "queries", len(qs))
			result.Dropped += len(qs)
			continue
		}
		batches := src.Batches(qs)
		result.Stats[engine] = EngineStats{Queries: len(qs), Calls: len(batches)}
		for _, b := range batches {
			tasks = append(tasks, fetchTask{source: src, batch: b})
		}
	}
	result.Dropped += len(queries) - routed

	perTask := make([][]datatypes.Resource, len(tasks))
	failed := make([]bool, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(r.config.Concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			perTask[i], failed[i] = r.fetch(ctx, t.source, t.batch)
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range tasks {
		engine := t.source.Engine()
		stats := result.Stats[engine]
		if failed[i] {
			stats.Failed++
		}
		stats.Resources += len(perTask[i])
		result.Stats[engine] = stats
		result.Resources = append(result.Resources, perTask[i]...)
	}

	slog.Debug("Retrieval complete",
		"calls", len(tasks),
		"resources", len(result.Resources),
		"dropped_queries", result.Dropped)
	return result
}

// fetch runs one call and converts any failure into an empty list.
func (r *Retriever) fetch(ctx context.Context, src Source, batch Batch) (out []datatypes.Resource, failed bool) {
	engine := src.Engine().String()
	ctx, span := r.tracer.Start(ctx, "retrieval.fetch", trace.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("query", batch.Text),
		attribute.Int("member_queries", len(batch.Queries)),
	))
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic in %s fetch: %v", engine, rec)
			slog.Error("Search backend panicked", "engine", engine, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			out, failed = nil, true
		}

		status := observability.FetchOK
		switch {
		case failed:
			status = observability.FetchError
		case len(out) == 0:
			status = observability.FetchEmpty
		}
		r.metrics.RecordFetch(engine, status, time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("results", len(out)))
		span.End()
	}()

	res, err := src.Fetch(ctx, batch)
	if err != nil {
		slog.Warn("Search backend failed, substituting empty result",
			"engine", engine, "query", batch.Text, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, true
	}
	return res, false
}
