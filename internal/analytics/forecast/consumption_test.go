package forecast

import (
	"testing"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

func refillSeries() []telemetry.Reading {
	var readings []telemetry.Reading
	for k := 0; k < 48; k++ {
		readings = append(readings, telemetry.Reading{
			Timestamp:    testBaseTime.Add(time.Duration(k) * time.Hour),
			LevelPercent: 40 - 5*float64(k)/24,
		})
	}
	refillAt := testBaseTime.Add(48 * time.Hour)
	for k := 0; k < 72; k++ {
		readings = append(readings, telemetry.Reading{
			Timestamp:    refillAt.Add(time.Duration(k) * time.Hour),
			LevelPercent: 95 - 5*float64(k)/24,
		})
	}
	return readings
}

func TestForecastConsumption_SinceLastRefill(t *testing.T) {
	cfg := DefaultConsumptionConfig()
	cfg.CapacityLiters = 10000

	result := ForecastConsumption(refillSeries(), dailyRecords(5, 5, 5, 5), cfg)

	if result.DataPoints != 72 {
		t.Errorf("Expected 72 readings since refill, got %d", result.DataPoints)
	}
	assertClose(t, "RatePctPerDay", result.RatePctPerDay, 5, 1e-6)
	if result.RateLitersPerDay == nil {
		t.Fatal("Expected liters rate")
	}
	assertClose(t, "RateLitersPerDay", *result.RateLitersPerDay, 500, 1e-3)
	if result.DaysToLow == nil || result.DaysToEmpty == nil {
		t.Fatal("Expected depletion projections")
	}
	current := 95 - 5*71.0/24
	assertClose(t, "DaysToLow", *result.DaysToLow, (current-20)/5, 1e-6)
	assertClose(t, "DaysToEmpty", *result.DaysToEmpty, current/5, 1e-6)
	if result.LowLevelDate == nil || !result.LowLevelDate.After(testBaseTime) {
		t.Errorf("Expected a low level date, got %v", result.LowLevelDate)
	}
	if result.Trend != ConsumptionStable {
		t.Errorf("Expected stable trend, got %s", result.Trend)
	}
}

func TestForecastConsumption_Trend(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected ConsumptionTrend
	}{
		{"increasing", []float64{2, 2.5, 3, 3.5}, ConsumptionIncreasing},
		{"decreasing", []float64{4, 3.5, 3, 2.5}, ConsumptionDecreasing},
		{"stable", []float64{3, 3.01, 3, 3.01}, ConsumptionStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForecastConsumption(refillSeries(), dailyRecords(tt.values...), DefaultConsumptionConfig())
			if result.Trend != tt.expected {
				t.Errorf("Expected %s, got %s (slope %v)", tt.expected, result.Trend, result.TrendSlope)
			}
		})
	}
}

func TestForecastConsumption_NotDeclining(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: testBaseTime, LevelPercent: 60},
		{Timestamp: testBaseTime.Add(time.Hour), LevelPercent: 60},
		{Timestamp: testBaseTime.Add(2 * time.Hour), LevelPercent: 60.4},
	}

	result := ForecastConsumption(readings, nil, DefaultConsumptionConfig())

	if result.DaysToLow != nil {
		t.Error("Expected no projection for a rising level")
	}
	if result.Reason == "" {
		t.Error("Expected a reason")
	}
}

func TestForecastConsumption_Insufficient(t *testing.T) {
	result := ForecastConsumption(nil, nil, DefaultConsumptionConfig())
	if result.Reason != "no readings" {
		t.Errorf("Unexpected reason: %q", result.Reason)
	}

	one := []telemetry.Reading{{Timestamp: testBaseTime, LevelPercent: 50}}
	result = ForecastConsumption(one, nil, DefaultConsumptionConfig())
	if result.CurrentLevelPct == nil || *result.CurrentLevelPct != 50 {
		t.Error("Expected current level from the single reading")
	}
	if result.DaysToLow != nil {
		t.Error("Expected no projection from a single reading")
	}
}
