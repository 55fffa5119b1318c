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
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// MaxSourceCodeBytes bounds the sourceCode field. The pipeline never parses
// source code itself, so a generous limit is enough to reject abuse.
const MaxSourceCodeBytes = 512 * 1024

// MaxUserIntentBytes bounds the optional free-text learning intent.
const MaxUserIntentBytes = 2 * 1024

var resourcesValidate = validator.New()

// =============================================================================
// Request Types
// =============================================================================

// ResourcesRequest is the body of POST /resources.
//
// # Description
//
// CodeContext and ReviewResponse are hard preconditions: anchor extraction
// cannot run without either, so their absence is rejected with 400 before
// any pipeline work runs.
//
// # Validation
//
// Uses go-playground/validator:
//   - CodeContext: required
//   - ReviewResponse: required
//   - SourceCode: at most MaxSourceCodeBytes
//   - UserIntent: at most MaxUserIntentBytes
type ResourcesRequest struct {
	CodeContext    *CodeContext    `json:"codeContext" validate:"required"`
	SourceCode     string          `json:"sourceCode" validate:"max=524288"`
	UserIntent     string          `json:"userIntent,omitempty" validate:"max=2048"`
	ReviewResponse *ReviewResponse `json:"reviewResponse" validate:"required"`
}

// Validate checks the request against its validation tags.
func (r *ResourcesRequest) Validate() error {
	return resourcesValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// PipelineTelemetry summarizes what each stage did.
type PipelineTelemetry struct {
	AnchorCount        int    `json:"anchorCount"`
	HasConcreteSymbols bool   `json:"hasConcreteSymbols"`
	ReviewQuality      string `json:"reviewQuality"`
	BaselineQueries    int    `json:"baselineQueries"`
	ExpandedQueries    int    `json:"expandedQueries"`
	ExpansionDisabled  bool   `json:"expansionDisabled"`
	ResourcesPruned    int    `json:"resourcesPruned"`
	ResourcesRanked    bool   `json:"resourcesRanked"`
}

// RoutingTelemetry counts queries per backend.
type RoutingTelemetry struct {
	DocEngine     int `json:"docEngine"`
	GeneralEngine int `json:"generalEngine"`
	QAEngine      int `json:"qaEngine"`
	CodeEngine    int `json:"codeEngine"`
}

// Add counts one query routed to engine.
func (r *RoutingTelemetry) Add(engine SearchEngine) {
	switch engine {
	case EngineDocs:
		r.DocEngine++
	case EngineGeneral:
		r.GeneralEngine++
	case EngineQA:
		r.QAEngine++
	case EngineCode:
		r.CodeEngine++
	}
}

// QueryTelemetry is one issued query and where it went.
type QueryTelemetry struct {
	Query  string       `json:"query"`
	Engine SearchEngine `json:"engine"`
}

// ResponseMetadata is the metadata block of a successful response.
type ResponseMetadata struct {
	TotalFetched  int               `json:"totalFetched"`
	TotalReturned int               `json:"totalReturned"`
	Pipeline      PipelineTelemetry `json:"pipeline"`
	Routing       RoutingTelemetry  `json:"routing"`
	Queries       []QueryTelemetry  `json:"queries"`
	RequestID     string            `json:"requestId,omitempty"`
	Timestamp     string            `json:"timestamp"`
}

// ResourcesResponse is the success body of POST /resources.
type ResourcesResponse struct {
	Success   bool             `json:"success"`
	Resources []Resource       `json:"resources"`
	Metadata  ResponseMetadata `json:"metadata"`
}

// ShortCircuitMetadata explains why the pipeline exited early.
type ShortCircuitMetadata struct {
	ShortCircuit bool   `json:"shortCircuit"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	RequestID    string `json:"requestId,omitempty"`
}

// ShortCircuitResponse is returned for trivial code.
type ShortCircuitResponse struct {
	Success   bool                 `json:"success"`
	Resources []Resource           `json:"resources"`
	Metadata  ShortCircuitMetadata `json:"metadata"`
}

// FailureMetadata classifies a failed request.
type FailureMetadata struct {
	ErrorType string `json:"errorType"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// FailureResponse is the uniform 500 body.
type FailureResponse struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error"`
	Fallback bool            `json:"fallback"`
	Metadata FailureMetadata `json:"metadata"`
}
