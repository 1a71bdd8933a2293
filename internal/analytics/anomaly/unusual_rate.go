package anomaly

import (
	"fmt"

	"github.com/soltixdb/tankwatch/internal/analytics"
)

// UnusualRateDetector flags days whose consumption z-score against the
// baseline exceeds the threshold.
type UnusualRateDetector struct{}

// Name returns the anomaly type
func (u *UnusualRateDetector) Name() Type {
	return TypeUnusualRate
}

// Detect finds unusually high consumption days. Refill days are skipped and
// a zero spread disables the rule.
func (u *UnusualRateDetector) Detect(in Input, config DetectorConfig) []Anomaly {
	mean := in.Baseline.BaselinePctPerDay
	std := in.Baseline.StdDeviationPct
	if std == 0 {
		return nil
	}

	var results []Anomaly
	for _, d := range in.Days {
		if d.IsRefillDay {
			continue
		}

		z := analytics.ZScore(d.ConsumptionPct, mean, std)
		if z <= config.ZScoreThreshold {
			continue
		}

		severity := SeverityMedium
		if z > config.HighZScore {
			severity = SeverityHigh
		}
		results = append(results, Anomaly{
			Type:      TypeUnusualRate,
			Timestamp: d.Date,
			Severity:  severity,
			Description: fmt.Sprintf("consumption %.2f%% on %s is %.1fσ above baseline %.2f%%/day",
				d.ConsumptionPct, d.Date.Format("2006-01-02"), z, mean),
			Value: d.ConsumptionPct,
		})
	}
	return results
}
