package models

import (
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/anomaly"
	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/analytics/forecast"
	"github.com/soltixdb/tankwatch/internal/analytics/health"
	"github.com/soltixdb/tankwatch/internal/analytics/operation"
	"github.com/soltixdb/tankwatch/internal/delivery"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	ConfigVersion string `json:"config_version,omitempty"`
}

// WindowInfo describes the reading window a result was computed over
type WindowInfo struct {
	AssetID       string    `json:"asset_id"`
	Timezone      string    `json:"timezone"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	ReadingCount  int       `json:"reading_count"`
	ConfigVersion string    `json:"config_version"`
	ComputedAt    time.Time `json:"computed_at"`
	Cached        bool      `json:"cached"`
}

// DailyResponse represents daily consumption response
type DailyResponse struct {
	WindowInfo
	Days []consumption.DailyConsumption `json:"days"`
}

// BaselineResponse represents baseline response
type BaselineResponse struct {
	WindowInfo
	Baseline consumption.BaselineResult `json:"baseline"`
}

// OperationResponse represents operation detection response
type OperationResponse struct {
	WindowInfo
	Start operation.Detection     `json:"start"`
	End   *operation.EndDetection `json:"end,omitempty"`
}

// AnomaliesResponse represents anomaly detection response
type AnomaliesResponse struct {
	WindowInfo
	Anomalies []anomaly.Anomaly `json:"anomalies"`
	Count     int               `json:"count"`
}

// BatteryResponse represents battery prediction response
type BatteryResponse struct {
	WindowInfo
	Battery forecast.BatteryPrediction `json:"battery"`
}

// ForecastResponse represents consumption forecast response
type ForecastResponse struct {
	WindowInfo
	Forecast forecast.ConsumptionForecast `json:"forecast"`
}

// DeviceHealthResponse represents device health response
type DeviceHealthResponse struct {
	WindowInfo
	Health health.DeviceHealth `json:"health"`
}

// RecommendationResponse represents delivery recommendation response
type RecommendationResponse struct {
	WindowInfo
	Strategy       delivery.Strategy       `json:"strategy"`
	Recommendation delivery.Recommendation `json:"recommendation"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
