// Package health combines battery, connectivity and calibration signals into
// a single device health score and failure probability.
package health

import (
	"fmt"
	"math"

	"github.com/soltixdb/tankwatch/internal/analytics"
	"github.com/soltixdb/tankwatch/internal/analytics/forecast"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Status is the overall device health.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusGood, StatusWarning, StatusCritical:
		return true
	default:
		return false
	}
}

// IssueKind names the signal behind a penalty.
type IssueKind string

const (
	IssueBattery      IssueKind = "battery"
	IssueConnectivity IssueKind = "connectivity"
	IssueSensorDrift  IssueKind = "sensor_drift"
)

// Tier is a penalty applied when a measurement reaches Min.
type Tier struct {
	Min     float64
	Penalty int
}

// Config holds the additive penalty table.
type Config struct {
	BatteryCriticalPenalty int
	BatteryWarningPenalty  int
	RapidDeclinePenalty    int

	// Tiers are checked in order; the first whose Min is reached applies.
	OfflineTiers []Tier
	DriftTiers   []Tier

	DriftWindow int
}

// DefaultConfig returns the standard penalty table.
func DefaultConfig() Config {
	return Config{
		BatteryCriticalPenalty: 40,
		BatteryWarningPenalty:  20,
		RapidDeclinePenalty:    15,
		OfflineTiers: []Tier{
			{Min: 5, Penalty: 25},
			{Min: 2, Penalty: 10},
			{Min: math.SmallestNonzeroFloat64, Penalty: 5},
		},
		DriftTiers: []Tier{
			{Min: 10, Penalty: 25},
			{Min: 5, Penalty: 15},
			{Min: 2, Penalty: 5},
		},
		DriftWindow: analytics.DefaultDriftWindow,
	}
}

// Issue is one contribution to the failure probability.
type Issue struct {
	Kind        IssueKind `json:"kind"`
	Penalty     int       `json:"penalty"`
	Description string    `json:"description"`
}

// DeviceHealth is the aggregated health of one device.
type DeviceHealth struct {
	Status               Status              `json:"status"`
	HealthScore          int                 `json:"health_score"`
	FailureProbability   int                 `json:"failure_probability"`
	BatteryAlert         forecast.AlertLevel `json:"battery_alert"`
	OfflineEvents        int                 `json:"offline_events"`
	OfflineEventsPerWeek float64             `json:"offline_events_per_week"`
	SensorDriftPct       *float64            `json:"sensor_drift_pct,omitempty"`
	Issues               []Issue             `json:"issues"`
}

// Assess sums the battery, offline-frequency and drift penalties.
func Assess(battery forecast.BatteryPrediction, readings []telemetry.Reading, cfg Config) DeviceHealth {
	sorted := telemetry.SortedCopy(readings)
	result := DeviceHealth{
		BatteryAlert: battery.AlertLevel,
		Issues:       make([]Issue, 0),
	}

	switch battery.AlertLevel {
	case forecast.AlertCritical:
		result.addIssue(IssueBattery, cfg.BatteryCriticalPenalty, "battery alert critical")
	case forecast.AlertWarning:
		result.addIssue(IssueBattery, cfg.BatteryWarningPenalty, "battery alert warning")
	case forecast.AlertNone, "":
	}
	if battery.Trend == forecast.BatteryTrendRapidDecline {
		result.addIssue(IssueBattery, cfg.RapidDeclinePenalty, "battery voltage in rapid decline")
	}

	edges, perWeek := offlineFrequency(sorted)
	result.OfflineEvents = edges
	result.OfflineEventsPerWeek = perWeek
	if penalty := tierPenalty(cfg.OfflineTiers, perWeek); penalty > 0 {
		result.addIssue(IssueConnectivity, penalty,
			fmt.Sprintf("%d offline event(s), %.1f per week", edges, perWeek))
	}

	if drift, pairs, ok := analytics.CalibrationDrift(sorted, cfg.DriftWindow); ok {
		magnitude := math.Abs(drift)
		result.SensorDriftPct = &magnitude
		if penalty := tierPenalty(cfg.DriftTiers, magnitude); penalty > 0 {
			result.addIssue(IssueSensorDrift, penalty,
				fmt.Sprintf("raw vs calibrated offset moved %.1f points over %d samples", magnitude, pairs))
		}
	}

	if result.FailureProbability > 100 {
		result.FailureProbability = 100
	}
	result.HealthScore = 100 - result.FailureProbability

	switch {
	case result.FailureProbability > 50 || battery.AlertLevel == forecast.AlertCritical:
		result.Status = StatusCritical
	case result.FailureProbability > 25 || battery.AlertLevel == forecast.AlertWarning:
		result.Status = StatusWarning
	default:
		result.Status = StatusGood
	}
	return result
}

func (h *DeviceHealth) addIssue(kind IssueKind, penalty int, description string) {
	h.FailureProbability += penalty
	h.Issues = append(h.Issues, Issue{Kind: kind, Penalty: penalty, Description: description})
}

// offlineFrequency counts online-to-offline edges and normalises them to a
// 7-day span. Spans shorter than a week count as a full week.
func offlineFrequency(sorted []telemetry.Reading) (int, float64) {
	var (
		edges       int
		prev        *bool
		first, last = -1, -1
	)
	for i, r := range sorted {
		if r.IsOnline == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		if prev != nil && *prev && !*r.IsOnline {
			edges++
		}
		prev = r.IsOnline
	}
	if edges == 0 {
		return 0, 0
	}

	spanDays := sorted[last].Timestamp.Sub(sorted[first].Timestamp).Hours() / 24
	if spanDays < 7 {
		spanDays = 7
	}
	return edges, float64(edges) * 7 / spanDays
}

func tierPenalty(tiers []Tier, value float64) int {
	for _, t := range tiers {
		if value >= t.Min {
			return t.Penalty
		}
	}
	return 0
}
