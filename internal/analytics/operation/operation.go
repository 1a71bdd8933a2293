// Package operation detects sustained multi-day consumption regime changes
// ("operations" such as a harvest) from the daily consumption series.
package operation

import (
	"sort"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
)

// Type is the inferred kind of operation.
type Type string

const (
	TypeHarvest    Type = "harvest"
	TypeSeeding    Type = "seeding"
	TypeSpraying   Type = "spraying"
	TypeIrrigation Type = "irrigation"
	TypeUnknown    Type = "unknown"
)

// Valid reports whether t is a known operation type.
func (t Type) Valid() bool {
	switch t {
	case TypeHarvest, TypeSeeding, TypeSpraying, TypeIrrigation, TypeUnknown:
		return true
	default:
		return false
	}
}

const (
	DefaultLookbackDays       = 7
	DefaultSpikeMultiplier    = 2.0
	DefaultMinConsecutiveDays = 2
	DefaultEndQuietDays       = 3

	maxConfidence = 95
)

// Config holds operation detection parameters
type Config struct {
	LookbackDays       int
	SpikeMultiplier    float64
	MinConsecutiveDays int
	EndQuietDays       int
	SeasonRules        []SeasonRule
}

// DefaultConfig returns default detection configuration
func DefaultConfig() Config {
	return Config{
		LookbackDays:       DefaultLookbackDays,
		SpikeMultiplier:    DefaultSpikeMultiplier,
		MinConsecutiveDays: DefaultMinConsecutiveDays,
		EndQuietDays:       DefaultEndQuietDays,
		SeasonRules:        DefaultSeasonRules(),
	}
}

func (c Config) withDefaults() Config {
	if c.LookbackDays <= 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.SpikeMultiplier <= 0 {
		c.SpikeMultiplier = DefaultSpikeMultiplier
	}
	if c.MinConsecutiveDays <= 0 {
		c.MinConsecutiveDays = DefaultMinConsecutiveDays
	}
	if c.EndQuietDays <= 0 {
		c.EndQuietDays = DefaultEndQuietDays
	}
	if c.SeasonRules == nil {
		c.SeasonRules = DefaultSeasonRules()
	}
	return c
}

// Detection is the result of start detection.
type Detection struct {
	OperationDetected     bool       `json:"operation_detected"`
	OperationType         Type       `json:"operation_type"`
	DetectedStartDate     *time.Time `json:"detected_start_date,omitempty"`
	ConfidenceLevel       int        `json:"confidence_level"`
	ConsumptionMultiplier float64    `json:"consumption_multiplier"`
	ConsecutiveSpikeDays  int        `json:"consecutive_spike_days"`
	AverageDailyPct       float64    `json:"average_daily_pct"`
	Reason                string     `json:"reason"`
}

// EndDetection is the result of end detection for a known start date.
type EndDetection struct {
	Ended                  bool       `json:"ended"`
	EndDate                *time.Time `json:"end_date,omitempty"`
	DurationDays           int        `json:"duration_days"`
	TotalConsumptionPct    float64    `json:"total_consumption_pct"`
	TotalConsumptionLiters *float64   `json:"total_consumption_liters,omitempty"`
	Reason                 string     `json:"reason"`
}

// sortedDays returns a copy of days ordered oldest first.
func sortedDays(days []consumption.DailyConsumption) []consumption.DailyConsumption {
	out := make([]consumption.DailyConsumption, len(days))
	copy(out, days)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func multiplierOf(day consumption.DailyConsumption, baselinePct float64) float64 {
	return day.ConsumptionPct / baselinePct
}
