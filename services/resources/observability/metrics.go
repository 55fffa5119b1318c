// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// resources service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the
// recommendation pipeline. Metrics include:
//   - Request counters (by outcome)
//   - Stage latency histograms
//   - Per-engine fetch outcomes and latency
//   - Fallback counters for every soft-failure path
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every method is a no-op on a nil *PipelineMetrics so stages can be built
// without instrumentation in tests and tools.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "solace"

// Subsystem for pipeline metrics
const pipelineSubsystem = "resources"

// PipelineMetrics holds all Prometheus metrics for the resources pipeline.
//
// # Fields
//
//   - RequestsTotal: Counter of requests by outcome
//   - StageDurationSeconds: Histogram of per-stage latency
//   - FetchesTotal: Counter of backend fetches by engine and status
//   - FetchDurationSeconds: Histogram of backend fetch latency
//   - FallbacksTotal: Counter of soft-failure fallbacks by stage
//   - ResourcesReturned: Histogram of resources per successful response
//   - ActiveRequests: Gauge of in-flight pipeline runs
type PipelineMetrics struct {
	// RequestsTotal counts requests by outcome.
	// Labels: outcome (success, short_circuit, rejected, error)
	RequestsTotal *prometheus.CounterVec

	// StageDurationSeconds measures each pipeline stage.
	// Labels: stage (extract, baseline, context, expand, retrieve, prune, rank)
	StageDurationSeconds *prometheus.HistogramVec

	// FetchesTotal counts backend calls.
	// Labels: engine (docs, general, qa, code), status (ok, empty, error)
	FetchesTotal *prometheus.CounterVec

	// FetchDurationSeconds measures backend call latency.
	// Labels: engine
	FetchDurationSeconds *prometheus.HistogramVec

	// FallbacksTotal counts documented fallbacks.
	// Labels: stage (extract, context, expand, rank)
	FallbacksTotal *prometheus.CounterVec

	// ResourcesReturned observes the size of successful responses.
	ResourcesReturned prometheus.Histogram

	// ActiveRequests tracks in-flight pipeline runs.
	ActiveRequests prometheus.Gauge
}

// NewPipelineMetrics creates and registers all pipeline metrics.
//
// # Inputs
//
//   - reg: Registry to register with. prometheus.DefaultRegisterer in
//     production, a fresh prometheus.NewRegistry() in tests.
//
// # Outputs
//
//   - *PipelineMetrics: The initialized metrics instance.
//
// # Examples
//
//	metrics := observability.NewPipelineMetrics(prometheus.DefaultRegisterer)
//
// # Limitations
//
//   - Panics if called twice with the same registry (duplicate registration).
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total number of resource requests by outcome",
			},
			[]string{"outcome"},
		),

		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"stage"},
		),

		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "fetches_total",
				Help:      "Total search backend fetches by engine and status",
			},
			[]string{"engine", "status"},
		),

		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Search backend fetch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"engine"},
		),

		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "fallbacks_total",
				Help:      "Total documented fallbacks taken by stage",
			},
			[]string{"stage"},
		),

		ResourcesReturned: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "resources_returned",
				Help:      "Number of resources in successful responses",
				Buckets:   []float64{0, 1, 5, 10, 15, 20, 25},
			},
		),

		ActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "active_requests",
				Help:      "Number of in-flight pipeline runs",
			},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Outcome labels a finished request.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeShortCircuit Outcome = "short_circuit"
	OutcomeRejected     Outcome = "rejected"
	OutcomeError        Outcome = "error"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageBaseline Stage = "baseline"
	StageContext  Stage = "context"
	StageExpand   Stage = "expand"
	StageRetrieve Stage = "retrieve"
	StagePrune    Stage = "prune"
	StageRank     Stage = "rank"
)

// FetchStatus labels a single backend call.
type FetchStatus string

const (
	FetchOK    FetchStatus = "ok"
	FetchEmpty FetchStatus = "empty"
	FetchError FetchStatus = "error"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a finished request.
func (m *PipelineMetrics) RecordRequest(outcome Outcome) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveStage records how long a stage took.
func (m *PipelineMetrics) ObserveStage(stage Stage, seconds float64) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(string(stage)).Observe(seconds)
}

// RecordFetch records one backend call.
//
// # Inputs
//
//   - engine: Engine name as rendered by datatypes.SearchEngine.String.
//   - status: Outcome of the call.
//   - seconds: Call duration.
func (m *PipelineMetrics) RecordFetch(engine string, status FetchStatus, seconds float64) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(engine, string(status)).Inc()
	m.FetchDurationSeconds.WithLabelValues(engine).Observe(seconds)
}

// RecordFallback records a documented fallback taken by stage.
func (m *PipelineMetrics) RecordFallback(stage Stage) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(string(stage)).Inc()
}

// RecordResourcesReturned observes the size of a successful response.
func (m *PipelineMetrics) RecordResourcesReturned(n int) {
	if m == nil {
		return
	}
	m.ResourcesReturned.Observe(float64(n))
}

// RequestStarted increments the in-flight gauge.
func (m *PipelineMetrics) RequestStarted() {
	if m == nil {
		return
	}
	m.ActiveRequests.Inc()
}

// RequestEnded decrements the in-flight gauge.
func (m *PipelineMetrics) RequestEnded() {
	if m == nil {
		return
	}
	m.ActiveRequests.Dec()
}
