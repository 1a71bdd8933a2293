package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// BatteryTrend classifies the voltage decline rate.
type BatteryTrend string

const (
	BatteryTrendStable       BatteryTrend = "stable"
	BatteryTrendDeclining    BatteryTrend = "declining"
	BatteryTrendRapidDecline BatteryTrend = "rapid_decline"
)

// Valid reports whether t is a known trend.
func (t BatteryTrend) Valid() bool {
	switch t {
	case BatteryTrendStable, BatteryTrendDeclining, BatteryTrendRapidDecline:
		return true
	default:
		return false
	}
}

// AlertLevel is the battery alert raised to operators.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Valid reports whether a is a known alert level.
func (a AlertLevel) Valid() bool {
	switch a {
	case AlertNone, AlertWarning, AlertCritical:
		return true
	default:
		return false
	}
}

// BatteryConfig holds the fixed voltage band and classification thresholds.
type BatteryConfig struct {
	DeadVoltage     float64
	GoodVoltage     float64
	WarningVoltage  float64
	CriticalVoltage float64

	// Decline rates in volts per day
	StableRate    float64
	DecliningRate float64

	CriticalDays float64
	WarningDays  float64
}

// DefaultBatteryConfig returns thresholds for a 3.6 V lithium sensor cell.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		DeadVoltage:     3.0,
		GoodVoltage:     3.6,
		WarningVoltage:  3.3,
		CriticalVoltage: 3.1,
		StableRate:      0.01,
		DecliningRate:   0.05,
		CriticalDays:    14,
		WarningDays:     60,
	}
}

// BatteryPrediction is the projected battery life of one device.
type BatteryPrediction struct {
	CurrentVoltage             *float64     `json:"current_voltage,omitempty"`
	DeclineRatePerDay          *float64     `json:"decline_rate_per_day,omitempty"`
	EstimatedDaysRemaining     *float64     `json:"estimated_days_remaining,omitempty"`
	EstimatedReadingsRemaining *int         `json:"estimated_readings_remaining,omitempty"`
	EstimatedDeadDate          *time.Time   `json:"estimated_dead_date,omitempty"`
	HealthScore                int          `json:"health_score"`
	Trend                      BatteryTrend `json:"trend"`
	AlertLevel                 AlertLevel   `json:"alert_level"`
	RSquared                   float64      `json:"r_squared"`
	DataPoints                 int          `json:"data_points"`
	Reason                     string       `json:"reason,omitempty"`
}

// PredictBattery regresses battery voltage against elapsed days. With fewer
// than two samples it returns a neutral prediction scored from the single
// absolute value.
func PredictBattery(readings []telemetry.Reading, cfg BatteryConfig) BatteryPrediction {
	var points []DataPoint
	for _, r := range telemetry.SortedCopy(readings) {
		if r.BatteryVoltage != nil {
			points = append(points, DataPoint{Time: r.Timestamp, Value: *r.BatteryVoltage})
		}
	}

	result := BatteryPrediction{
		Trend:      BatteryTrendStable,
		AlertLevel: AlertNone,
		DataPoints: len(points),
	}
	if len(points) == 0 {
		result.Reason = "no battery voltage samples"
		return result
	}

	last := points[len(points)-1]
	current := last.Value
	result.CurrentVoltage = &current
	result.HealthScore = cfg.healthScore(current)

	fit, ok := LinearFit(points)
	if !ok {
		result.AlertLevel = cfg.alertLevel(current, nil)
		result.Reason = fmt.Sprintf("insufficient data: %d battery sample(s), need 2 for a trend", len(points))
		return result
	}

	decline := -fit.Slope
	result.DeclineRatePerDay = &decline
	result.RSquared = fit.RSquared
	result.Trend = cfg.trend(decline)

	if decline > 0 {
		days := math.Max(0, (current-cfg.DeadVoltage)/decline)
		result.EstimatedDaysRemaining = &days

		dead := addDays(last.Time, days)
		result.EstimatedDeadDate = &dead

		spanDays := last.Time.Sub(points[0].Time).Hours() / 24
		if spanDays > 0 {
			perDay := float64(len(points)-1) / spanDays
			remaining := int(math.Floor(days * perDay))
			result.EstimatedReadingsRemaining = &remaining
		}
	}

	result.AlertLevel = cfg.alertLevel(current, result.EstimatedDaysRemaining)
	result.Reason = fmt.Sprintf("%s at %.3f V/day over %d samples", result.Trend, decline, len(points))
	return result
}

// healthScore rescales voltage into the [dead, good] band, clamped to 0-100.
func (c BatteryConfig) healthScore(voltage float64) int {
	band := c.GoodVoltage - c.DeadVoltage
	if band <= 0 {
		return 0
	}
	score := (voltage - c.DeadVoltage) / band * 100
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func (c BatteryConfig) trend(decline float64) BatteryTrend {
	switch {
	case decline <= c.StableRate:
		return BatteryTrendStable
	case decline <= c.DecliningRate:
		return BatteryTrendDeclining
	default:
		return BatteryTrendRapidDecline
	}
}

func (c BatteryConfig) alertLevel(voltage float64, daysRemaining *float64) AlertLevel {
	switch {
	case voltage <= c.CriticalVoltage, daysRemaining != nil && *daysRemaining < c.CriticalDays:
		return AlertCritical
	case voltage <= c.WarningVoltage, daysRemaining != nil && *daysRemaining < c.WarningDays:
		return AlertWarning
	default:
		return AlertNone
	}
}
