package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// NightConsumptionDetector flags nights with draw-down well above what an
// idle tank should show, a common sign of theft or a leak.
type NightConsumptionDetector struct{}

// Name returns the anomaly type
func (n *NightConsumptionDetector) Name() Type {
	return TypeNightConsumption
}

type nightTotal struct {
	start time.Time
	pct   float64
}

// Detect sums decreases between NightStartHour and NightEndHour local time,
// per night, using the same anchor rule as daily aggregation.
func (n *NightConsumptionDetector) Detect(in Input, config DetectorConfig) []Anomaly {
	if in.Location == nil || len(in.Readings) < 2 {
		return nil
	}

	baseline := in.Baseline.BaselinePctPerDay
	threshold := math.Max(config.NightMinPct, config.NightBaselineFraction*baseline)

	var (
		nights []nightTotal
		anchor float64
	)
	for _, r := range in.Readings {
		start, ok := n.nightOf(r.Timestamp.In(in.Location), config)
		if !ok {
			continue
		}
		if len(nights) == 0 || !nights[len(nights)-1].start.Equal(start) {
			nights = append(nights, nightTotal{start: start})
			anchor = r.LevelPercent
			continue
		}

		cur := &nights[len(nights)-1]
		delta := r.LevelPercent - anchor
		switch {
		case delta < -config.NoiseThresholdPct:
			cur.pct += -delta
			anchor = r.LevelPercent
		case delta > config.RefillThresholdPct:
			anchor = r.LevelPercent
		}
	}

	var results []Anomaly
	for _, night := range nights {
		if night.pct <= threshold {
			continue
		}
		severity := SeverityLow
		if night.pct > baseline {
			severity = SeverityMedium
		}
		results = append(results, Anomaly{
			Type:      TypeNightConsumption,
			Timestamp: night.start,
			Severity:  severity,
			Description: fmt.Sprintf("%.1f points consumed overnight from %s (threshold %.1f)",
				night.pct, night.start.Format("2006-01-02 15:04"), threshold),
			Value: night.pct,
		})
	}
	return results
}

// nightOf returns the local start of the night containing t.
func (n *NightConsumptionDetector) nightOf(t time.Time, config DetectorConfig) (time.Time, bool) {
	day := telemetry.StartOfDay(t)
	switch {
	case t.Hour() >= config.NightStartHour:
	case t.Hour() < config.NightEndHour:
		day = day.AddDate(0, 0, -1)
	default:
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), config.NightStartHour, 0, 0, 0, t.Location()), true
}
