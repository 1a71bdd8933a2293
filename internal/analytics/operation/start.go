package operation

import (
	"fmt"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// DetectStart scans the lookback window newest first and reports an
// operation when at least MinConsecutiveDays consecutive days exceed
// SpikeMultiplier times the baseline. Refill days neither extend nor break
// the run.
func DetectStart(days []consumption.DailyConsumption, baseline consumption.BaselineResult, cfg Config) Detection {
	cfg = cfg.withDefaults()

	result := Detection{OperationType: TypeUnknown}
	if baseline.BaselinePctPerDay <= 0 {
		result.Reason = "baseline unavailable"
		return result
	}
	if len(days) == 0 {
		result.Reason = "no daily consumption data"
		return result
	}

	sorted := sortedDays(days)
	newest := sorted[len(sorted)-1].Date

	var (
		run       int
		sumMult   float64
		sumPct    float64
		startIdx  = -1
		breakMult float64
	)
	for i := len(sorted) - 1; i >= 0; i-- {
		d := sorted[i]
		if telemetry.DaysBetween(d.Date, newest) >= cfg.LookbackDays {
			break
		}
		if d.IsRefillDay {
			continue
		}
		m := multiplierOf(d, baseline.BaselinePctPerDay)
		if m <= cfg.SpikeMultiplier {
			breakMult = m
			break
		}
		run++
		sumMult += m
		sumPct += d.ConsumptionPct
		startIdx = i
	}

	result.ConsecutiveSpikeDays = run
	if run < cfg.MinConsecutiveDays {
		if run == 0 {
			result.Reason = fmt.Sprintf("no sustained spike: latest day at %.1fx baseline (threshold %.1fx)",
				breakMult, cfg.SpikeMultiplier)
		} else {
			result.Reason = fmt.Sprintf("%d spike day(s), need %d consecutive", run, cfg.MinConsecutiveDays)
		}
		return result
	}

	start := sorted[startIdx].Date
	avgMult := sumMult / float64(run)
	opType := InferType(start.Month(), avgMult, cfg.SeasonRules)

	result.OperationDetected = true
	result.OperationType = opType
	result.DetectedStartDate = &start
	result.ConsumptionMultiplier = avgMult
	result.AverageDailyPct = sumPct / float64(run)
	result.ConfidenceLevel = confidence(run, avgMult, opType)
	result.Reason = fmt.Sprintf("%d consecutive days at %.1fx baseline (%.2f%%/day) since %s",
		run, avgMult, baseline.BaselinePctPerDay, start.Format("2006-01-02"))
	if opType != TypeUnknown {
		result.Reason += fmt.Sprintf("; %s inferred from season", opType)
	}
	return result
}

// confidence is capped below 100: consumption alone cannot prove an
// operation.
func confidence(run int, multiplier float64, opType Type) int {
	score := 50

	runScore := run * 8
	if runScore > 24 {
		runScore = 24
	}
	score += runScore

	switch {
	case multiplier >= 4:
		score += 15
	case multiplier >= 3:
		score += 10
	default:
		score += 5
	}

	if opType != TypeUnknown {
		score += 10
	}

	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}
