package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/models"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/utils"
)

// analyze parses the request and runs the pipeline. Errors are returned
// as-is for middleware.ErrorHandler to render.
func (h *Handler) analyze(c *fiber.Ctx) (*services.AnalysisResult, error) {
	var q models.AnalysisQuery
	if err := c.QueryParser(&q); err != nil {
		return nil, services.NewServiceErrorWithDetails(services.CodeInvalidRequest,
			"Failed to parse query parameters", map[string]interface{}{"error": err.Error()})
	}

	req, err := parseAnalysisQuery(c.Params("asset_id"), q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), utils.DefaultRequestTimeout)
	defer cancel()
	ctx = logging.WithAssetID(ctx, req.AssetID)

	return h.analyzer.Analyze(ctx, req)
}

func windowInfo(r *services.AnalysisResult) models.WindowInfo {
	return models.WindowInfo{
		AssetID:       r.AssetID,
		Timezone:      r.Timezone,
		WindowStart:   r.WindowStart,
		WindowEnd:     r.WindowEnd,
		ReadingCount:  r.ReadingCount,
		ConfigVersion: r.ConfigVersion,
		ComputedAt:    r.ComputedAt,
		Cached:        r.Cached,
	}
}

// Daily handles daily consumption requests
// GET /v1/assets/:asset_id/daily
func (h *Handler) Daily(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.DailyResponse{WindowInfo: windowInfo(result), Days: result.Daily})
}

// Baseline handles baseline requests
// GET /v1/assets/:asset_id/baseline
func (h *Handler) Baseline(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.BaselineResponse{WindowInfo: windowInfo(result), Baseline: result.Baseline})
}

// Operation handles operation detection requests
// GET /v1/assets/:asset_id/operation
func (h *Handler) Operation(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.OperationResponse{
		WindowInfo: windowInfo(result),
		Start:      result.Operation.Start,
		End:        result.Operation.End,
	})
}

// Anomalies handles anomaly detection requests
// GET /v1/assets/:asset_id/anomalies
func (h *Handler) Anomalies(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.AnomaliesResponse{
		WindowInfo: windowInfo(result),
		Anomalies:  result.Anomalies,
		Count:      len(result.Anomalies),
	})
}

// Battery handles battery prediction requests
// GET /v1/assets/:asset_id/battery
func (h *Handler) Battery(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.BatteryResponse{WindowInfo: windowInfo(result), Battery: result.Battery})
}

// Forecast handles consumption forecast requests
// GET /v1/assets/:asset_id/forecast
func (h *Handler) Forecast(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.ForecastResponse{WindowInfo: windowInfo(result), Forecast: result.Forecast})
}

// DeviceHealth handles device health requests
// GET /v1/assets/:asset_id/health
func (h *Handler) DeviceHealth(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.DeviceHealthResponse{WindowInfo: windowInfo(result), Health: result.Health})
}

// Recommendation handles delivery recommendation requests
// GET /v1/assets/:asset_id/recommendation
func (h *Handler) Recommendation(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(models.RecommendationResponse{
		WindowInfo:     windowInfo(result),
		Strategy:       result.Strategy,
		Recommendation: result.Recommendation,
	})
}

// Analysis returns every stage at once
// GET /v1/assets/:asset_id/analysis
func (h *Handler) Analysis(c *fiber.Ctx) error {
	result, err := h.analyze(c)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
