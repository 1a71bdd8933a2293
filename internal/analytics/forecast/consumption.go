package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// ConsumptionTrend describes whether daily consumption is rising or falling.
type ConsumptionTrend string

const (
	ConsumptionIncreasing ConsumptionTrend = "increasing"
	ConsumptionStable     ConsumptionTrend = "stable"
	ConsumptionDecreasing ConsumptionTrend = "decreasing"
)

// Valid reports whether t is a known trend.
func (t ConsumptionTrend) Valid() bool {
	switch t {
	case ConsumptionIncreasing, ConsumptionStable, ConsumptionDecreasing:
		return true
	default:
		return false
	}
}

// ConsumptionConfig configures ForecastConsumption.
type ConsumptionConfig struct {
	CapacityLiters     float64
	LowLevelPct        float64
	RefillThresholdPct float64

	// TrendStableSlope is the largest change in daily consumption
	// (pct-points per day, per day) still classed as stable.
	TrendStableSlope float64
}

// DefaultConsumptionConfig returns the standard forecast configuration.
func DefaultConsumptionConfig() ConsumptionConfig {
	return ConsumptionConfig{
		LowLevelPct:        20,
		RefillThresholdPct: consumption.DefaultRefillThresholdPct,
		TrendStableSlope:   0.02,
	}
}

// ConsumptionForecast projects when the tank reaches the low level and empty.
type ConsumptionForecast struct {
	CurrentLevelPct    *float64         `json:"current_level_pct,omitempty"`
	CurrentLevelLiters *float64         `json:"current_level_liters,omitempty"`
	RatePctPerDay      float64          `json:"rate_pct_per_day"`
	RateLitersPerDay   *float64         `json:"rate_liters_per_day,omitempty"`
	DaysToLow          *float64         `json:"days_to_low,omitempty"`
	DaysToEmpty        *float64         `json:"days_to_empty,omitempty"`
	LowLevelDate       *time.Time       `json:"low_level_date,omitempty"`
	EmptyDate          *time.Time       `json:"empty_date,omitempty"`
	Trend              ConsumptionTrend `json:"trend"`
	TrendSlope         float64          `json:"trend_slope"`
	RSquared           float64          `json:"r_squared"`
	DataPoints         int              `json:"data_points"`
	Reason             string           `json:"reason,omitempty"`
}

// ForecastConsumption regresses level against time over the readings since
// the most recent refill and classifies the trend of daily consumption.
func ForecastConsumption(readings []telemetry.Reading, days []consumption.DailyConsumption, cfg ConsumptionConfig) ConsumptionForecast {
	if cfg.RefillThresholdPct <= 0 {
		cfg.RefillThresholdPct = consumption.DefaultRefillThresholdPct
	}

	var result ConsumptionForecast
	result.Trend, result.TrendSlope = consumptionTrend(days, cfg.TrendStableSlope)

	sorted := telemetry.SortedCopy(readings)
	if len(sorted) == 0 {
		result.Reason = "no readings"
		return result
	}

	last := sorted[len(sorted)-1]
	current := last.LevelPercent
	result.CurrentLevelPct = &current
	if cfg.CapacityLiters > 0 {
		liters := current * cfg.CapacityLiters / 100
		result.CurrentLevelLiters = &liters
	}

	segment := sinceLastRefill(sorted, cfg.RefillThresholdPct)
	points := make([]DataPoint, len(segment))
	for i, r := range segment {
		points[i] = DataPoint{Time: r.Timestamp, Value: r.LevelPercent}
	}
	result.DataPoints = len(points)

	fit, ok := LinearFit(points)
	if !ok {
		result.Reason = fmt.Sprintf("insufficient data: %d reading(s) since last refill, need 2", len(points))
		return result
	}

	rate := -fit.Slope
	result.RatePctPerDay = rate
	result.RSquared = fit.RSquared
	if cfg.CapacityLiters > 0 {
		liters := rate * cfg.CapacityLiters / 100
		result.RateLitersPerDay = &liters
	}

	if rate <= 0 {
		result.Reason = "level is not declining since last refill"
		return result
	}

	toLow := math.Max(0, (current-cfg.LowLevelPct)/rate)
	toEmpty := math.Max(0, current/rate)
	lowDate := addDays(last.Timestamp, toLow)
	emptyDate := addDays(last.Timestamp, toEmpty)
	result.DaysToLow = &toLow
	result.DaysToEmpty = &toEmpty
	result.LowLevelDate = &lowDate
	result.EmptyDate = &emptyDate
	result.Reason = fmt.Sprintf("%.2f%%/day over %d readings since last refill; %.0f%% reached %s",
		rate, len(points), cfg.LowLevelPct, lowDate.Format("2006-01-02"))
	return result
}

// sinceLastRefill returns the readings from the last refill jump onward.
func sinceLastRefill(sorted []telemetry.Reading, refillThreshold float64) []telemetry.Reading {
	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].LevelPercent-sorted[i-1].LevelPercent > refillThreshold {
			start = i
		}
	}
	return sorted[start:]
}

// consumptionTrend regresses daily consumption (refill days excluded).
func consumptionTrend(days []consumption.DailyConsumption, stableSlope float64) (ConsumptionTrend, float64) {
	var points []DataPoint
	for _, d := range days {
		if !d.IsRefillDay {
			points = append(points, DataPoint{Time: d.Date, Value: d.ConsumptionPct})
		}
	}

	fit, ok := LinearFit(points)
	if !ok {
		return ConsumptionStable, 0
	}

	switch {
	case math.Abs(fit.Slope) <= stableSlope:
		return ConsumptionStable, fit.Slope
	case fit.Slope > 0:
		return ConsumptionIncreasing, fit.Slope
	default:
		return ConsumptionDecreasing, fit.Slope
	}
}

// maxProjectionDays keeps near-flat slopes from overflowing time.Duration.
const maxProjectionDays = 36500

func addDays(t time.Time, days float64) time.Time {
	if days > maxProjectionDays {
		days = maxProjectionDays
	}
	return t.Add(time.Duration(days * 24 * float64(time.Hour)))
}
