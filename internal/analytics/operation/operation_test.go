package operation

import (
	"math"
	"testing"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
)

var testBaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func createTestDays(values []float64) []consumption.DailyConsumption {
	days := make([]consumption.DailyConsumption, len(values))
	for i, v := range values {
		liters := v * 100
		days[i] = consumption.DailyConsumption{
			Date:              testBaseTime.AddDate(0, 0, i),
			ConsumptionPct:    v,
			ConsumptionLiters: &liters,
			Readings:          24,
		}
	}
	return days
}

func baselineOf(pct, std float64) consumption.BaselineResult {
	return consumption.BaselineResult{
		BaselinePctPerDay: pct,
		StdDeviationPct:   std,
		SpikeThresholdPct: consumption.SpikeThreshold(pct, std),
		DataPointsUsed:    30,
	}
}

func TestDetectStart_ThreeDaysAtTripleRate(t *testing.T) {
	values := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 6, 6, 6}
	days := createTestDays(values)
	baseline := consumption.EstimateBaseline(days[:10], consumption.DefaultBaselineOptions())

	result := DetectStart(days, baseline, DefaultConfig())

	if !result.OperationDetected {
		t.Fatalf("Expected operation detected, reason: %s", result.Reason)
	}
	if result.ConsecutiveSpikeDays != 3 {
		t.Errorf("Expected 3 spike days, got %d", result.ConsecutiveSpikeDays)
	}
	if math.Abs(result.ConsumptionMultiplier-3.0) > 1e-9 {
		t.Errorf("Expected multiplier 3.0, got %v", result.ConsumptionMultiplier)
	}
	if result.DetectedStartDate == nil || !result.DetectedStartDate.Equal(testBaseTime.AddDate(0, 0, 10)) {
		t.Errorf("Expected start on day 10, got %v", result.DetectedStartDate)
	}
	// January at 3x matches the harvest rule.
	if result.OperationType != TypeHarvest {
		t.Errorf("Expected harvest, got %s", result.OperationType)
	}
	if result.ConfidenceLevel != 94 {
		t.Errorf("Expected confidence 94, got %d", result.ConfidenceLevel)
	}
}

func TestDetectStart_SingleSpikeDayNotEnough(t *testing.T) {
	days := createTestDays([]float64{2, 2, 2, 2, 2, 2, 2, 2, 8})

	result := DetectStart(days, baselineOf(2, 0.2), DefaultConfig())

	if result.OperationDetected {
		t.Error("A single spike day should not be an operation")
	}
	if result.ConsecutiveSpikeDays != 1 {
		t.Errorf("Expected 1 spike day, got %d", result.ConsecutiveSpikeDays)
	}
}

func TestDetectStart_RefillDayIsNeutral(t *testing.T) {
	days := createTestDays([]float64{2, 2, 2, 2, 2, 5, 1, 5})
	days[6].IsRefillDay = true

	result := DetectStart(days, baselineOf(2, 0.2), DefaultConfig())

	if !result.OperationDetected {
		t.Fatalf("Expected refill day to be skipped, reason: %s", result.Reason)
	}
	if result.ConsecutiveSpikeDays != 2 {
		t.Errorf("Expected 2 spike days, got %d", result.ConsecutiveSpikeDays)
	}
}

func TestDetectStart_BaselineUnavailable(t *testing.T) {
	days := createTestDays([]float64{5, 5, 5})

	result := DetectStart(days, consumption.BaselineResult{}, DefaultConfig())

	if result.OperationDetected || result.Reason != "baseline unavailable" {
		t.Errorf("Expected baseline unavailable, got %+v", result)
	}
}

func TestDetectStart_UnknownTypeStillDetected(t *testing.T) {
	// March matches no default season rule.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	days := createTestDays([]float64{2, 2, 2, 5, 5})
	for i := range days {
		days[i].Date = start.AddDate(0, 0, i)
	}

	result := DetectStart(days, baselineOf(2, 0.1), DefaultConfig())

	if !result.OperationDetected {
		t.Fatal("Expected operation detected")
	}
	if result.OperationType != TypeUnknown {
		t.Errorf("Expected unknown type, got %s", result.OperationType)
	}
	// 50 + 16 (2 days) + 5 (2.5x tier)
	if result.ConfidenceLevel != 71 {
		t.Errorf("Expected confidence 71, got %d", result.ConfidenceLevel)
	}
}

func TestConfidence_CappedAt95(t *testing.T) {
	if got := confidence(7, 6, TypeHarvest); got != 95 {
		t.Errorf("Expected 95, got %d", got)
	}
}

func TestInferType(t *testing.T) {
	rules := DefaultSeasonRules()
	tests := []struct {
		month      time.Month
		multiplier float64
		expected   Type
	}{
		{time.December, 3.0, TypeHarvest},
		{time.December, 2.2, TypeIrrigation},
		{time.May, 2.1, TypeSeeding},
		{time.August, 2.5, TypeSpraying},
		{time.March, 4.0, TypeUnknown},
		{time.May, 1.5, TypeUnknown},
	}

	for _, tt := range tests {
		if got := InferType(tt.month, tt.multiplier, rules); got != tt.expected {
			t.Errorf("InferType(%s, %.1f) = %s, want %s", tt.month, tt.multiplier, got, tt.expected)
		}
	}
}

func TestType_Valid(t *testing.T) {
	if !TypeHarvest.Valid() || !TypeUnknown.Valid() {
		t.Error("Expected known types to be valid")
	}
	if Type("mowing").Valid() {
		t.Error("Expected unknown string to be invalid")
	}
}

func TestDetectEnd_Ended(t *testing.T) {
	days := createTestDays([]float64{2, 2, 6, 6, 6, 2, 2, 2})
	start := testBaseTime.AddDate(0, 0, 2)

	result := DetectEnd(days, baselineOf(2, 0.1), start, DefaultConfig())

	if !result.Ended {
		t.Fatalf("Expected ended, reason: %s", result.Reason)
	}
	if result.EndDate == nil || !result.EndDate.Equal(testBaseTime.AddDate(0, 0, 4)) {
		t.Errorf("Expected end on day 4, got %v", result.EndDate)
	}
	if result.DurationDays != 3 {
		t.Errorf("Expected 3 days, got %d", result.DurationDays)
	}
	if result.TotalConsumptionLiters == nil || math.Abs(*result.TotalConsumptionLiters-1800) > 1e-6 {
		t.Errorf("Expected 1800 L, got %v", result.TotalConsumptionLiters)
	}
}

func TestDetectEnd_Ongoing(t *testing.T) {
	days := createTestDays([]float64{2, 6, 6, 6, 2, 2})
	start := testBaseTime.AddDate(0, 0, 1)

	result := DetectEnd(days, baselineOf(2, 0.1), start, DefaultConfig())

	if result.Ended {
		t.Error("Expected ongoing with only 2 quiet days")
	}
	if result.DurationDays != 5 {
		t.Errorf("Expected 5 days so far, got %d", result.DurationDays)
	}
}

func TestDetectEnd_RefillDayDoesNotCountAsQuiet(t *testing.T) {
	days := createTestDays([]float64{6, 6, 2, 1, 2})
	days[3].IsRefillDay = true

	result := DetectEnd(days, baselineOf(2, 0.1), testBaseTime, DefaultConfig())

	if result.Ended {
		t.Error("Refill day should not count toward quiet days")
	}
}
