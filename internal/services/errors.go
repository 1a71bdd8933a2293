// Package services sits between the transport layers (HTTP handlers, queue
// worker) and the analysis engine. It fetches the reading window, runs the
// pure pipeline, caches the result and publishes recommendations.
package services

import (
	"context"
	"errors"

	"github.com/soltixdb/tankwatch/internal/source"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Service error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeAssetNotFound     = "ASSET_NOT_FOUND"
	CodeNoReadings        = "NO_READINGS"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func invalidRequest(message string, details map[string]interface{}) *ServiceError {
	return NewServiceErrorWithDetails(CodeInvalidRequest, message, details)
}

// classify maps collaborator and engine errors onto service codes.
func classify(assetID string, err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	details := map[string]interface{}{"asset_id": assetID}
	switch {
	case errors.Is(err, source.ErrAssetNotFound):
		return NewServiceErrorWithDetails(CodeAssetNotFound, "Asset not found", details)
	case errors.Is(err, telemetry.ErrNoReadings):
		return NewServiceErrorWithDetails(CodeNoReadings, "No readings in the requested window", details)
	case errors.Is(err, telemetry.ErrMissingAssetID),
		errors.Is(err, telemetry.ErrMissingTimezone),
		errors.Is(err, telemetry.ErrInvalidCapacity):
		return invalidRequest(err.Error(), details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		details["error"] = err.Error()
		return NewServiceErrorWithDetails(CodeSourceUnavailable, "Request timed out", details)
	default:
		details["error"] = err.Error()
		return NewServiceErrorWithDetails(CodeSourceUnavailable, "Data source unavailable", details)
	}
}
