package consumption

import (
	"errors"
	"testing"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

func TestAggregateDaily_RequiresLocation(t *testing.T) {
	_, err := AggregateDaily([]telemetry.Reading{{Timestamp: at(0, 1, 0), LevelPercent: 50}}, DailyOptions{})
	if !errors.Is(err, telemetry.ErrMissingTimezone) {
		t.Fatalf("Expected ErrMissingTimezone, got %v", err)
	}
}

func TestAggregateDaily_Empty(t *testing.T) {
	days, err := AggregateDaily(nil, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(days) != 0 {
		t.Errorf("Expected no days, got %d", len(days))
	}
}

func TestAggregateDaily_DecreaseSummation(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 0, 0), LevelPercent: 80},
		{Timestamp: at(0, 4, 0), LevelPercent: 79},
		{Timestamp: at(0, 8, 0), LevelPercent: 78.2},
		{Timestamp: at(0, 12, 0), LevelPercent: 78.5}, // jitter, not counted
		{Timestamp: at(0, 16, 0), LevelPercent: 78.4}, // within noise of anchor
		{Timestamp: at(0, 20, 0), LevelPercent: 77},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("Expected 1 day, got %d", len(days))
	}
	assertClose(t, "ConsumptionPct", days[0].ConsumptionPct, 3.0, 1e-9)
	if days[0].Readings != 6 {
		t.Errorf("Expected 6 readings, got %d", days[0].Readings)
	}
	if days[0].ConsumptionLiters != nil {
		t.Error("Expected nil liters without capacity")
	}
}

func TestAggregateDaily_UnsortedInput(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 20, 0), LevelPercent: 77},
		{Timestamp: at(0, 0, 0), LevelPercent: 80},
		{Timestamp: at(0, 10, 0), LevelPercent: 79},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assertClose(t, "ConsumptionPct", days[0].ConsumptionPct, 3.0, 1e-9)
}

func TestAggregateDaily_RefillDay(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 6, 0), LevelPercent: 50},
		{Timestamp: at(0, 18, 0), LevelPercent: 48},
		{Timestamp: at(1, 6, 0), LevelPercent: 47},
		{Timestamp: at(1, 10, 0), LevelPercent: 62}, // +15 points
		{Timestamp: at(1, 18, 0), LevelPercent: 61},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(days))
	}
	if days[0].IsRefillDay {
		t.Error("Day 0 should not be a refill day")
	}
	if !days[1].IsRefillDay {
		t.Error("Day 1 should be a refill day")
	}
	// 48 -> 47 carried overnight, then 62 -> 61 after the refill.
	assertClose(t, "day 1 ConsumptionPct", days[1].ConsumptionPct, 2.0, 1e-9)

	baseline := EstimateBaseline(days, DefaultBaselineOptions())
	if baseline.DataPointsUsed != 1 {
		t.Errorf("Expected refill day excluded from baseline, got %d points", baseline.DataPointsUsed)
	}
}

func TestAggregateDaily_OvernightRefillMarksNextDay(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 8, 0), LevelPercent: 30},
		{Timestamp: at(0, 22, 0), LevelPercent: 25},
		{Timestamp: at(1, 7, 0), LevelPercent: 90},
		{Timestamp: at(1, 20, 0), LevelPercent: 86},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if days[0].IsRefillDay || !days[1].IsRefillDay {
		t.Errorf("Expected refill on day 1 only, got day0=%v day1=%v", days[0].IsRefillDay, days[1].IsRefillDay)
	}
	assertClose(t, "day 1 ConsumptionPct", days[1].ConsumptionPct, 4.0, 1e-9)
}

func TestAggregateDaily_OvernightDropCountsOnNextDay(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 8, 0), LevelPercent: 62},
		{Timestamp: at(0, 22, 0), LevelPercent: 60},
		{Timestamp: at(1, 6, 0), LevelPercent: 58},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assertClose(t, "day 0 ConsumptionPct", days[0].ConsumptionPct, 2.0, 1e-9)
	assertClose(t, "day 1 ConsumptionPct", days[1].ConsumptionPct, 2.0, 1e-9)
}

func TestAggregateDaily_GapRestartsAnchor(t *testing.T) {
	readings := []telemetry.Reading{
		{Timestamp: at(0, 8, 0), LevelPercent: 60},
		{Timestamp: at(3, 8, 0), LevelPercent: 50},
		{Timestamp: at(3, 20, 0), LevelPercent: 49},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(time.UTC))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Expected 2 days (no synthesized gap days), got %d", len(days))
	}
	assertClose(t, "post-gap ConsumptionPct", days[1].ConsumptionPct, 1.0, 1e-9)
}

func TestAggregateDaily_UsesAssetTimezone(t *testing.T) {
	perth := time.FixedZone("AWST", 8*3600)
	readings := []telemetry.Reading{
		{Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), LevelPercent: 70},
		{Timestamp: time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC), LevelPercent: 68},
	}

	days, err := AggregateDaily(readings, DefaultDailyOptions(perth))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Expected readings to split across 2 local days, got %d", len(days))
	}
	if days[1].Date.Day() != 2 || days[1].Date.Location() != perth {
		t.Errorf("Expected second day to be 2 March AWST, got %v", days[1].Date)
	}
}

func TestAggregateDaily_ExclusionsAndLiters(t *testing.T) {
	opts := DefaultDailyOptions(time.UTC)
	opts.CapacityLiters = 10000
	opts.Exclusions = []telemetry.ExclusionPeriod{
		{Start: at(1, 0, 0), End: at(1, 23, 0), Label: "harvest"},
	}
	readings := []telemetry.Reading{
		{Timestamp: at(0, 0, 0), LevelPercent: 90},
		{Timestamp: at(0, 23, 0), LevelPercent: 87},
		{Timestamp: at(1, 23, 0), LevelPercent: 77},
	}

	days, err := AggregateDaily(readings, opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if days[0].IsOperationDay || !days[1].IsOperationDay {
		t.Errorf("Expected only day 1 flagged as operation day")
	}
	if days[0].ConsumptionLiters == nil {
		t.Fatal("Expected liters with capacity set")
	}
	assertClose(t, "day 0 liters", *days[0].ConsumptionLiters, 300, 1e-6)
	assertClose(t, "day 1 liters", *days[1].ConsumptionLiters, 1000, 1e-6)
}
