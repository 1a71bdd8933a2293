package consumption

import (
	"math"
	"testing"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

var testBaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// generateDeclineSeries creates readings every step for the given number of
// days, draining dailyPct per day and refilling to 100% below refillBelow.
func generateDeclineSeries(days int, dailyPct, refillBelow float64, step time.Duration) []telemetry.Reading {
	perStep := dailyPct * step.Hours() / 24
	end := testBaseTime.Add(time.Duration(days) * 24 * time.Hour)

	var readings []telemetry.Reading
	level := 100.0
	for ts := testBaseTime; ts.Before(end); ts = ts.Add(step) {
		readings = append(readings, telemetry.Reading{Timestamp: ts, LevelPercent: level})
		level -= perStep
		if level < refillBelow {
			level = 100
		}
	}
	return readings
}

func at(day, hour, minute int) time.Time {
	return testBaseTime.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func dayRecord(day int, pct float64) DailyConsumption {
	return DailyConsumption{Date: testBaseTime.AddDate(0, 0, day), ConsumptionPct: pct, Readings: 24}
}

func assertClose(t *testing.T, name string, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tolerance)
	}
}
