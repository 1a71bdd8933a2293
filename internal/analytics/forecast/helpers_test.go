package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

var testBaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// generateLinearData creates daily points with y = slope * day + intercept
func generateLinearData(n int, slope, intercept float64) []DataPoint {
	data := make([]DataPoint, n)
	for i := 0; i < n; i++ {
		data[i] = DataPoint{
			Time:  testBaseTime.AddDate(0, 0, i),
			Value: slope*float64(i) + intercept,
		}
	}
	return data
}

func voltageReadings(step time.Duration, volts ...float64) []telemetry.Reading {
	readings := make([]telemetry.Reading, len(volts))
	for i, v := range volts {
		readings[i] = telemetry.Reading{
			Timestamp:      testBaseTime.Add(step * time.Duration(i)),
			LevelPercent:   50,
			BatteryVoltage: telemetry.Float64(v),
		}
	}
	return readings
}

func dailyRecords(values ...float64) []consumption.DailyConsumption {
	days := make([]consumption.DailyConsumption, len(values))
	for i, v := range values {
		days[i] = consumption.DailyConsumption{Date: testBaseTime.AddDate(0, 0, i), ConsumptionPct: v}
	}
	return days
}

func assertClose(t *testing.T, name string, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tolerance)
	}
}
