// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin handlers of the resources service.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/reykhambhaita/Solace-sub001/services/resources/datatypes"
	"github.com/reykhambhaita/Solace-sub001/services/resources/observability"
	"github.com/reykhambhaita/Solace-sub001/services/resources/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var resourcesTracer = otel.Tracer("solace.resources.handlers")

// RequestIDHeader carries a caller-supplied request id. Values that are not
// UUIDs are replaced.
const RequestIDHeader = "X-Request-ID"

// Runner executes the resources pipeline.
type Runner interface {
	Run(ctx context.Context, req *datatypes.ResourcesRequest, requestID string) (*pipeline.Result, error)
}

var _ Runner = (*pipeline.Pipeline)(nil)

// ResourcesHandler serves POST /resources.
type ResourcesHandler struct {
	runner  Runner
	metrics *observability.PipelineMetrics
	now     func() time.Time
}

// NewResourcesHandler creates the handler. metrics may be nil.
func NewResourcesHandler(runner Runner, metrics *observability.PipelineMetrics) *ResourcesHandler {
	return &ResourcesHandler{runner: runner, metrics: metrics, now: time.Now}
}

// HandleResources answers one recommendation request.
//
// # Description
//
// Malformed JSON and requests missing codeContext or reviewResponse are
// rejected with 400. Trivial code gets the short-circuit body. Any pipeline
// error, and any panic below this handler, becomes the uniform failure body
// with status 500.
//
// # Outputs
//
//   - 200: datatypes.ResourcesResponse or datatypes.ShortCircuitResponse
//   - 400: {"success": false, "error": "..."}
//   - 500: datatypes.FailureResponse
func (h *ResourcesHandler) HandleResources(c *gin.Context) {
	ctx, span := resourcesTracer.Start(c.Request.Context(), "HandleResources")
	defer span.End()

	requestID := requestIDFrom(c)
	c.Header(RequestIDHeader, requestID)
	span.SetAttributes(attribute.String("request.id", requestID))

	h.metrics.RequestStarted()
	defer h.metrics.RequestEnded()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			slog.Error("Resources pipeline panicked", "request_id", requestID, "panic", r)
			h.fail(c, requestID, pipeline.ErrorTypeInternal, "internal error")
		}
	}()

	var req datatypes.ResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		slog.Warn("Failed to parse resources request", "request_id", requestID, "error", err)
		h.metrics.RecordRequest(observability.OutcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		slog.Warn("Resources request validation failed", "request_id", requestID, "error", err)
		h.metrics.RecordRequest(observability.OutcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": validationMessage(err)})
		return
	}

	result, err := h.runner.Run(ctx, &req, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		errType := pipeline.ErrorType(err)
		slog.Error("Resources pipeline failed",
			"request_id", requestID,
			"error_type", errType,
			"error", err)
		h.fail(c, requestID, errType, failureMessage(errType))
		return
	}

	switch {
	case result.ShortCircuit != nil:
		h.metrics.RecordRequest(observability.OutcomeShortCircuit)
		c.JSON(http.StatusOK, result.ShortCircuit)
	case result.Response != nil:
		h.metrics.RecordRequest(observability.OutcomeSuccess)
		c.JSON(http.StatusOK, result.Response)
	default:
		h.fail(c, requestID, pipeline.ErrorTypeInternal, "internal error")
	}
}

func (h *ResourcesHandler) fail(c *gin.Context, requestID, errType, message string) {
	h.metrics.RecordRequest(observability.OutcomeError)
	c.JSON(http.StatusInternalServerError, datatypes.FailureResponse{
		Success:  false,
		Error:    message,
		Fallback: true,
		Metadata: datatypes.FailureMetadata{
			ErrorType: errType,
			Timestamp: h.now().UTC().Format(time.RFC3339),
			RequestID: requestID,
		},
	})
}

func failureMessage(errType string) string {
	if errType == pipeline.ErrorTypeNoMandatoryAnchors {
		return "no retrievable anchors could be extracted"
	}
	return "internal error"
}

func requestIDFrom(c *gin.Context) string {
	if id, err := uuid.Parse(c.GetHeader(RequestIDHeader)); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// validationMessage names the offending fields without echoing their values.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", lowerFirst(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
