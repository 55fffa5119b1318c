// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs one POST /resources request end to end.
//
// # Description
//
// Stages run in a fixed order:
//
//	extract -> [short-circuit] -> baseline -> context -> expand ->
//	retrieve -> dedup -> prune -> rank -> top-N
//
// Only two outcomes are errors: an AnchorSet without mandatory anchors and a
// routing failure. Every other stage degrades to a documented fallback and
// the request still succeeds.
//
// # Thread Safety
//
// Pipeline holds no per-request state and is safe for concurrent use when
// its collaborators are.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reykhambhaita/Solace-sub001/services/resources/anchors"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/observability"
	"github.com/reykhambhaita/Solace-sub001/services/resources/queries"
	"github.com/reykhambhaita/Solace-sub001/services/resources/ranking"
	"github.com/reykhambhaita/Solace-sub001/services/resources/retrieval"
	"github.com/reykhambhaita/Solace-sub001/services/resources/reviewctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("solace.resources.pipeline")

// ShortCircuitMessage is shown to the client when the code is too simple to
// warrant learning resources.
const ShortCircuitMessage = "This code is simple enough that no learning resources are needed."

// =============================================================================
// Collaborators
// =============================================================================

// AnchorExtractor turns analyzer output into an AnchorSet.
type AnchorExtractor interface {
	Extract(cc datatypes.CodeContext, resp datatypes.ReviewResponse) datatypes.AnchorSet
}

// QueryExpander appends model refinements to a baseline.
type QueryExpander interface {
	Expand(ctx context.Context, baseline []datatypes.Query, rc reviewctx.ReviewContext, meta datatypes.QueryMetadata) []datatypes.Query
}

// ResourceRetriever fans queries out to the search backends.
type ResourceRetriever interface {
	Retrieve(ctx context.Context, queries []datatypes.Query) retrieval.Result
}

// ResourceRanker scores pruned resources.
type ResourceRanker interface {
	Rank(ctx context.Context, resources []datatypes.Resource, rc reviewctx.ReviewContext) ([]datatypes.Resource, bool)
}

var (
	_ AnchorExtractor   = (*anchors.Extractor)(nil)
	_ QueryExpander     = (*queries.Expander)(nil)
	_ ResourceRetriever = (*retrieval.Retriever)(nil)
	_ ResourceRanker    = (*ranking.Ranker)(nil)
)

// Deps are the stage implementations. Extractor, Retriever and Ranker are
// required; a nil ContextBuilder uses reviewctx.DefaultBuilder and a nil
// Expander keeps the baseline unchanged.
type Deps struct {
	Extractor      AnchorExtractor
	ContextBuilder reviewctx.Builder
	Expander       QueryExpander
	Retriever      ResourceRetriever
	Ranker         ResourceRanker
	Metrics        *observability.PipelineMetrics
}

// Limits bounds a single request.
type Limits struct {
	// MaxQueries caps baseline plus expansion. Default: 15
	MaxQueries int

	// PruneLimit caps what is sent to the ranker. Default: 15
	PruneLimit int

	// ResponseLimit caps the response. Default: 25
	ResponseLimit int

	// RequestTimeout bounds the whole run. Zero means no extra deadline.
	RequestTimeout time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxQueries <= 0 {
		l.MaxQueries = queries.DefaultMaxQueries
	}
	if l.PruneLimit <= 0 {
		l.PruneLimit = ranking.DefaultPruneLimit
	}
	if l.ResponseLimit <= 0 {
		l.ResponseLimit = ranking.DefaultResponseLimit
	}
	return l
}

// =============================================================================
// Errors
// =============================================================================

// Error types reported in FailureMetadata.ErrorType.
const (
	ErrorTypeNoMandatoryAnchors = "no_mandatory_anchors"
	ErrorTypeInternal           = "internal"
)

// Error is a request failure that maps to the uniform failure response.
type Error struct {
	Type string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorType returns the failure classification of err. Errors that are not
// a *Error classify as internal.
func ErrorType(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeInternal
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of a successful run. Exactly one of Response and
// ShortCircuit is set.
type Result struct {
	Response     *datatypes.ResourcesResponse
	ShortCircuit *datatypes.ShortCircuitResponse
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline wires the stages together.
type Pipeline struct {
	deps   Deps
	limits Limits
	now    func() time.Time
}

// New creates a Pipeline.
//
// # Inputs
//
//   - deps: Stage implementations. See Deps for which may be nil.
//   - limits: Zero fields use the package defaults.
//
// # Outputs
//
//   - *Pipeline: Ready to Run.
//   - error: When a required collaborator is missing.
func New(deps Deps, limits Limits) (*Pipeline, error) {
	switch {
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Retriever == nil:
		return nil, errors.New("pipeline: retriever is required")
	case deps.Ranker == nil:
		return nil, errors.New("pipeline: ranker is required")
	}
	if deps.ContextBuilder == nil {
		deps.ContextBuilder = reviewctx.DefaultBuilder{}
	}
	return &Pipeline{deps: deps, limits: limits.withDefaults(), now: time.Now}, nil
}

// Run executes the pipeline for one validated request.
//
// # Description
//
// Trivial code returns a ShortCircuit result without issuing any query.
// Otherwise the full chain runs and the Response carries the ranked,
// truncated resources plus per-stage telemetry. Retrieval, expansion,
// context building and ranking never fail the request.
//
// # Inputs
//
//   - ctx: Request context. Cancellation reaches every backend call.
//   - req: Request that already passed Validate.
//   - requestID: Echoed into metadata and logs.
//
// # Outputs
//
//   - *Result: Set when err is nil.
//   - error: *Error with ErrorTypeNoMandatoryAnchors or ErrorTypeInternal.
//
// # Examples
//
//	res, err := p.Run(ctx, &req, uuid.NewString())
//	if err != nil {
//	    c.JSON(500, failure(pipeline.ErrorType(err)))
//	}
func (p *Pipeline) Run(ctx context.Context, req *datatypes.ResourcesRequest, requestID string) (*Result, error) {
	if req == nil || req.CodeContext == nil || req.ReviewResponse == nil {
		return nil, &Error{Type: ErrorTypeInternal, Err: errors.New("request is missing codeContext or reviewResponse")}
	}
	if p.limits.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.limits.RequestTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("request.id", requestID),
	))
	defer span.End()

	logger := slog.With("request_id", requestID)

	// Extraction
	var set datatypes.AnchorSet
	p.stage(ctx, observability.StageExtract, func(context.Context) {
		set = p.deps.Extractor.Extract(*req.CodeContext, *req.ReviewResponse)
	})
	span.SetAttributes(
		attribute.Int("anchors.count", set.Count()),
		attribute.Bool("anchors.short_circuit", set.Metadata.ShortCircuit),
	)
	if set.Metadata.ShortCircuit {
		logger.Info("Trivial code, skipping retrieval", "reason", set.Metadata.ShortCircuitReason)
		return &Result{ShortCircuit: &datatypes.ShortCircuitResponse{
			Success:   true,
			Resources: []datatypes.Resource{},
			Metadata: datatypes.ShortCircuitMetadata{
				ShortCircuit: true,
				Reason:       set.Metadata.ShortCircuitReason,
				Message:      ShortCircuitMessage,
				RequestID:    requestID,
			},
		}}, nil
	}

	// Baseline
	var (
		baseline []datatypes.Query
		meta     datatypes.QueryMetadata
		err      error
	)
	p.stage(ctx, observability.StageBaseline, func(context.Context) {
		baseline, meta, err = queries.BuildBaseline(set, p.limits.MaxQueries)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "baseline failed")
		if errors.Is(err, queries.ErrNoMandatoryAnchors) {
			logger.Error("No mandatory anchors extracted", "language", set.Metadata.Language)
			return nil, &Error{Type: ErrorTypeNoMandatoryAnchors, Err: err}
		}
		logger.Error("Baseline query synthesis failed", "error", err)
		return nil, &Error{Type: ErrorTypeInternal, Err: err}
	}

	// Review context
	var rc reviewctx.ReviewContext
	p.stage(ctx, observability.StageContext, func(ctx context.Context) {
		rc = p.buildContext(ctx, req, set, logger)
	})

	// Expansion
	expanded := baseline
	if p.deps.Expander != nil {
		p.stage(ctx, observability.StageExpand, func(ctx context.Context) {
			expanded = p.deps.Expander.Expand(ctx, baseline, rc, meta)
		})
	}

	// Retrieval
	var fetched retrieval.Result
	p.stage(ctx, observability.StageRetrieve, func(ctx context.Context) {
		fetched = p.deps.Retriever.Retrieve(ctx, expanded)
	})

	// Dedup and prune
	var pruned []datatypes.Resource
	p.stage(ctx, observability.StagePrune, func(context.Context) {
		pruned = ranking.PruneForRanking(ranking.Deduplicate(fetched.Resources), p.limits.PruneLimit)
	})

	// Ranking
	var (
		ranked      []datatypes.Resource
		modelRanked bool
	)
	p.stage(ctx, observability.StageRank, func(ctx context.Context) {
		ranked, modelRanked = p.deps.Ranker.Rank(ctx, pruned, rc)
		ranking.FinalizeScores(ranked)
	})
	if !modelRanked && len(pruned) > 0 {
		p.deps.Metrics.RecordFallback(observability.StageRank)
	}

	top := ranking.TopByScore(ranked, p.limits.ResponseLimit)
	if top == nil {
		top = []datatypes.Resource{}
	}
	p.deps.Metrics.RecordResourcesReturned(len(top))

	resp := &datatypes.ResourcesResponse{
		Success:   true,
		Resources: top,
		Metadata: datatypes.ResponseMetadata{
			TotalFetched:  len(fetched.Resources),
			TotalReturned: len(top),
			Pipeline: datatypes.PipelineTelemetry{
				AnchorCount:        set.Count(),
				HasConcreteSymbols: set.Metadata.HasConcreteSymbols,
				ReviewQuality:      set.Metadata.ReviewQuality,
				BaselineQueries:    len(baseline),
				ExpandedQueries:    len(expanded),
				ExpansionDisabled:  meta.ExpansionDisabled,
				ResourcesPruned:    len(pruned),
				ResourcesRanked:    modelRanked,
			},
			Queries:   make([]datatypes.QueryTelemetry, 0, len(expanded)),
			RequestID: requestID,
			Timestamp: p.now().UTC().Format(time.RFC3339),
		},
	}
	for _, q := range expanded {
		resp.Metadata.Routing.Add(q.SearchEngine)
		resp.Metadata.Queries = append(resp.Metadata.Queries, datatypes.QueryTelemetry{
			Query:  q.Primary,
			Engine: q.SearchEngine,
		})
	}

	span.SetAttributes(
		attribute.Int("queries.count", len(expanded)),
		attribute.Int("resources.fetched", len(fetched.Resources)),
		attribute.Int("resources.returned", len(top)),
		attribute.Bool("resources.ranked", modelRanked),
	)
	logger.Info("Resources pipeline complete",
		"anchors", set.Count(),
		"queries", len(expanded),
		"fetched", len(fetched.Resources),
		"pruned", len(pruned),
		"returned", len(top),
		"ranked", modelRanked)
	return &Result{Response: resp}, nil
}

// buildContext never fails. A Builder error falls back to reviewctx.Fallback.
func (p *Pipeline) buildContext(ctx context.Context, req *datatypes.ResourcesRequest, set datatypes.AnchorSet, logger *slog.Logger) reviewctx.ReviewContext {
	in := reviewctx.Input{
		CodeContext: *req.CodeContext,
		Review:      *req.ReviewResponse,
		UserIntent:  req.UserIntent,
		Anchors:     set,
	}
	rc, err := p.deps.ContextBuilder.Build(ctx, in)
	if err != nil {
		logger.Warn("Review context build failed, using fallback", "error", err)
		p.deps.Metrics.RecordFallback(observability.StageContext)
		return reviewctx.Fallback(in)
	}
	return rc
}

// stage runs fn inside a child span and records its latency.
func (p *Pipeline) stage(ctx context.Context, name observability.Stage, fn func(context.Context)) {
	ctx, span := tracer.Start(ctx, "pipeline."+string(name))
	defer span.End()
	start := time.Now()
	fn(ctx)
	p.deps.Metrics.ObserveStage(name, time.Since(start).Seconds())
}
