// Package handlers implements the fiber HTTP handlers of the tankwatch API.
package handlers

import (
	"context"

	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/services"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Analyzer runs the analysis pipeline for one asset
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error)
	ConfigVersion() string
}

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	analyzer Analyzer
}

// New creates a new handler instance
func New(logger *logging.Logger, analyzer Analyzer) *Handler {
	return &Handler{
		logger:   logger,
		analyzer: analyzer,
	}
}
