// Package consumption turns a per-asset reading series into daily
// consumption records and a robust "normal day" baseline.
package consumption

import (
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

const (
	// DefaultNoiseThresholdPct is the smallest level decrease (percentage
	// points) counted as consumption.
	DefaultNoiseThresholdPct = 0.5

	// DefaultRefillThresholdPct is the level increase (percentage points)
	// that marks a refill.
	DefaultRefillThresholdPct = 10.0
)

// DailyConsumption is the consumption record of one calendar day.
type DailyConsumption struct {
	Date              time.Time `json:"date"`
	ConsumptionPct    float64   `json:"consumption_pct"`
	ConsumptionLiters *float64  `json:"consumption_liters,omitempty"`
	IsRefillDay       bool      `json:"is_refill_day"`
	IsOperationDay    bool      `json:"is_operation_day"`
	Readings          int       `json:"readings"`
}

// DailyOptions configures AggregateDaily.
type DailyOptions struct {
	// Location defines calendar days. Required.
	Location *time.Location

	// CapacityLiters converts percentages to liters when positive.
	CapacityLiters float64

	// Exclusions flag known-activity days as operation days.
	Exclusions []telemetry.ExclusionPeriod

	NoiseThresholdPct  float64
	RefillThresholdPct float64
}

// DefaultDailyOptions returns options with the standard thresholds for loc.
func DefaultDailyOptions(loc *time.Location) DailyOptions {
	return DailyOptions{
		Location:           loc,
		NoiseThresholdPct:  DefaultNoiseThresholdPct,
		RefillThresholdPct: DefaultRefillThresholdPct,
	}
}

func (o DailyOptions) withDefaults() DailyOptions {
	if o.NoiseThresholdPct <= 0 {
		o.NoiseThresholdPct = DefaultNoiseThresholdPct
	}
	if o.RefillThresholdPct <= 0 {
		o.RefillThresholdPct = DefaultRefillThresholdPct
	}
	return o
}

// isExcluded scans the exclusion list linearly; lists are short (a handful of
// known operations per asset per year).
func (o DailyOptions) isExcluded(day time.Time) bool {
	for _, p := range o.Exclusions {
		if p.ContainsDay(day) {
			return true
		}
	}
	return false
}

// AggregateDaily collapses readings into one record per calendar day present
// in the input, using decrease summation.
//
// A running anchor level tracks the last counted point. A drop of more than
// the noise threshold below the anchor is added to the day and moves the
// anchor down; a rise of more than the refill threshold above it marks a
// refill and resets the anchor. Smaller rises leave the anchor in place so
// sensor jitter is not counted twice. The anchor carries overnight into the
// next calendar day, so the drop between the last reading of day N and the
// first of day N+1 lands on day N+1. After a gap of one or more days without
// readings the anchor restarts at the first reading of the new day.
func AggregateDaily(readings []telemetry.Reading, opts DailyOptions) ([]DailyConsumption, error) {
	if opts.Location == nil {
		return nil, telemetry.ErrMissingTimezone
	}
	opts = opts.withDefaults()

	if len(readings) == 0 {
		return nil, nil
	}

	sorted := telemetry.SortedCopy(readings)
	days := make([]DailyConsumption, 0, 8)
	var anchor float64

	for _, r := range sorted {
		day := telemetry.StartOfDay(r.Timestamp.In(opts.Location))

		if len(days) == 0 || !days[len(days)-1].Date.Equal(day) {
			contiguous := len(days) > 0 && telemetry.DaysBetween(days[len(days)-1].Date, day) == 1
			days = append(days, DailyConsumption{
				Date:           day,
				IsOperationDay: opts.isExcluded(day),
			})
			if !contiguous {
				days[len(days)-1].Readings++
				anchor = r.LevelPercent
				continue
			}
		}

		d := &days[len(days)-1]
		d.Readings++

		delta := r.LevelPercent - anchor
		switch {
		case delta < -opts.NoiseThresholdPct:
			d.ConsumptionPct += -delta
			anchor = r.LevelPercent
		case delta > opts.RefillThresholdPct:
			d.IsRefillDay = true
			anchor = r.LevelPercent
		}
	}

	if opts.CapacityLiters > 0 {
		for i := range days {
			liters := days[i].ConsumptionPct * opts.CapacityLiters / 100
			days[i].ConsumptionLiters = &liters
		}
	}

	return days, nil
}
