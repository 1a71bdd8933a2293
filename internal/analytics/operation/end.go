package operation

import (
	"fmt"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// DetectEnd walks forward from start. The operation has ended when the
// newest EndQuietDays non-refill days are all back under the spike
// multiplier; the end date is the last day that was still a spike.
func DetectEnd(days []consumption.DailyConsumption, baseline consumption.BaselineResult, start time.Time, cfg Config) EndDetection {
	cfg = cfg.withDefaults()

	var result EndDetection
	if baseline.BaselinePctPerDay <= 0 {
		result.Reason = "baseline unavailable"
		return result
	}

	startDay := telemetry.StartOfDay(start)
	var window []consumption.DailyConsumption
	for _, d := range sortedDays(days) {
		if !d.Date.Before(startDay) {
			window = append(window, d)
		}
	}
	if len(window) == 0 {
		result.Reason = "no daily consumption data since start"
		return result
	}

	var evaluated []consumption.DailyConsumption
	for _, d := range window {
		if !d.IsRefillDay {
			evaluated = append(evaluated, d)
		}
	}

	lastSpike := -1
	for i, d := range evaluated {
		if multiplierOf(d, baseline.BaselinePctPerDay) > cfg.SpikeMultiplier {
			lastSpike = i
		}
	}

	quiet := len(evaluated) - 1 - lastSpike
	if lastSpike >= 0 && quiet < cfg.EndQuietDays {
		last := window[len(window)-1].Date
		result.DurationDays = telemetry.DaysBetween(startDay, last) + 1
		result.TotalConsumptionPct, result.TotalConsumptionLiters = totals(window, last)
		result.Reason = fmt.Sprintf("ongoing: %d quiet day(s) since last spike, need %d", quiet, cfg.EndQuietDays)
		return result
	}
	if lastSpike < 0 {
		if len(evaluated) < cfg.EndQuietDays {
			result.Reason = fmt.Sprintf("ongoing: %d day(s) since start, need %d", len(evaluated), cfg.EndQuietDays)
			return result
		}
		result.Ended = true
		result.Reason = "no spike days recorded since start"
		return result
	}

	end := evaluated[lastSpike].Date
	result.Ended = true
	result.EndDate = &end
	result.DurationDays = telemetry.DaysBetween(startDay, end) + 1
	result.TotalConsumptionPct, result.TotalConsumptionLiters = totals(window, end)
	result.Reason = fmt.Sprintf("ended %s after %d day(s); %d quiet day(s) since",
		end.Format("2006-01-02"), result.DurationDays, quiet)
	return result
}

// totals sums consumption up to and including end. Liters are reported only
// when every day carries a liters figure.
func totals(window []consumption.DailyConsumption, end time.Time) (float64, *float64) {
	var pct, liters float64
	haveLiters := true
	for _, d := range window {
		if d.Date.After(end) {
			break
		}
		pct += d.ConsumptionPct
		if d.ConsumptionLiters == nil {
			haveLiters = false
			continue
		}
		liters += *d.ConsumptionLiters
	}
	if !haveLiters {
		return pct, nil
	}
	return pct, &liters
}
