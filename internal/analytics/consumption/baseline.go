package consumption

import (
	"fmt"
	"math"

	"github.com/soltixdb/tankwatch/internal/analytics"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

const (
	DefaultWindowDays   = 90
	MinBaselineDays     = 7
	DefaultOutlierSigma = 3.0

	// Conservative values returned when there is not enough history.
	DefaultBaselinePctPerDay = 2.0
	DefaultStdDeviationPct   = 1.0
	DefaultSpikeThresholdPct = 4.0
)

// BaselineResult is the expected normal daily draw-down of one asset.
type BaselineResult struct {
	BaselinePctPerDay    float64  `json:"baseline_pct_per_day"`
	BaselineLitersPerDay *float64 `json:"baseline_liters_per_day,omitempty"`
	StdDeviationPct      float64  `json:"std_deviation_pct"`
	SpikeThresholdPct    float64  `json:"spike_threshold_pct"`
	DataPointsUsed       int      `json:"data_points_used"`
	OutliersRemoved      int      `json:"outliers_removed"`
	IsDefault            bool     `json:"is_default"`
	Reason               string   `json:"reason,omitempty"`
}

// BaselineOptions configures EstimateBaseline.
type BaselineOptions struct {
	WindowDays        int
	CapacityLiters    float64
	MinDays           int
	OutlierSigma      float64
	NoiseThresholdPct float64
}

// DefaultBaselineOptions returns the standard 90-day configuration.
func DefaultBaselineOptions() BaselineOptions {
	return BaselineOptions{
		WindowDays:        DefaultWindowDays,
		MinDays:           MinBaselineDays,
		OutlierSigma:      DefaultOutlierSigma,
		NoiseThresholdPct: DefaultNoiseThresholdPct,
	}
}

func (o BaselineOptions) withDefaults() BaselineOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.MinDays <= 0 {
		o.MinDays = MinBaselineDays
	}
	if o.OutlierSigma <= 0 {
		o.OutlierSigma = DefaultOutlierSigma
	}
	if o.NoiseThresholdPct <= 0 {
		o.NoiseThresholdPct = DefaultNoiseThresholdPct
	}
	return o
}

// SpikeThreshold derives the spike threshold from a baseline and its spread.
func SpikeThreshold(baselinePct, stdDeviationPct float64) float64 {
	return 2*baselinePct + stdDeviationPct
}

// EstimateBaseline computes the mean and spread of normal consumption days.
//
// Refill days, operation days and days at or below the noise threshold are
// ignored. Points further than OutlierSigma standard deviations from the raw
// mean are dropped and the statistics recomputed on the cleaned set, so one
// large spike cannot inflate the threshold used to detect spikes.
func EstimateBaseline(days []DailyConsumption, opts BaselineOptions) BaselineResult {
	opts = opts.withDefaults()

	values := qualifyingValues(days, opts)
	if len(values) < opts.MinDays {
		return defaultBaseline(len(values), opts)
	}

	mean, std := analytics.MeanStdDev(values)

	cleaned := values
	if std > 0 {
		cleaned = make([]float64, 0, len(values))
		for _, v := range values {
			if math.Abs(v-mean) <= opts.OutlierSigma*std {
				cleaned = append(cleaned, v)
			}
		}
	}
	removed := len(values) - len(cleaned)
	mean, std = analytics.MeanStdDev(cleaned)

	result := BaselineResult{
		BaselinePctPerDay: mean,
		StdDeviationPct:   std,
		SpikeThresholdPct: SpikeThreshold(mean, std),
		DataPointsUsed:    len(cleaned),
		OutliersRemoved:   removed,
	}
	if opts.CapacityLiters > 0 {
		liters := mean * opts.CapacityLiters / 100
		result.BaselineLitersPerDay = &liters
	}
	return result
}

// qualifyingValues returns the consumption of baseline-eligible days inside
// the window, measured back from the newest record.
func qualifyingValues(days []DailyConsumption, opts BaselineOptions) []float64 {
	if len(days) == 0 {
		return nil
	}

	newest := days[0].Date
	for _, d := range days[1:] {
		if d.Date.After(newest) {
			newest = d.Date
		}
	}

	values := make([]float64, 0, len(days))
	for _, d := range days {
		if telemetry.DaysBetween(d.Date, newest) >= opts.WindowDays {
			continue
		}
		if d.IsRefillDay || d.IsOperationDay {
			continue
		}
		if d.ConsumptionPct <= opts.NoiseThresholdPct {
			continue
		}
		values = append(values, d.ConsumptionPct)
	}
	return values
}

func defaultBaseline(count int, opts BaselineOptions) BaselineResult {
	result := BaselineResult{
		BaselinePctPerDay: DefaultBaselinePctPerDay,
		StdDeviationPct:   DefaultStdDeviationPct,
		SpikeThresholdPct: DefaultSpikeThresholdPct,
		DataPointsUsed:    count,
		IsDefault:         true,
		Reason: fmt.Sprintf("insufficient data: %d qualifying days, need %d; using conservative defaults",
			count, opts.MinDays),
	}
	if opts.CapacityLiters > 0 {
		liters := DefaultBaselinePctPerDay * opts.CapacityLiters / 100
		result.BaselineLitersPerDay = &liters
	}
	return result
}
