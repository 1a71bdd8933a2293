package telemetry

import (
	"testing"
	"time"
)

func TestExclusionPeriod_ContainsDay(t *testing.T) {
	loc := time.FixedZone("AWST", 8*60*60)
	p := ExclusionPeriod{
		Start: time.Date(2026, 3, 10, 15, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 12, 2, 0, 0, 0, loc),
	}

	tests := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2026, 3, 9, 0, 0, 0, 0, loc), false},
		{time.Date(2026, 3, 10, 0, 0, 0, 0, loc), true},
		{time.Date(2026, 3, 11, 0, 0, 0, 0, loc), true},
		{time.Date(2026, 3, 12, 0, 0, 0, 0, loc), true},
		{time.Date(2026, 3, 13, 0, 0, 0, 0, loc), false},
	}

	for _, tt := range tests {
		if got := p.ContainsDay(tt.day); got != tt.want {
			t.Errorf("ContainsDay(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// DST starts on the first Sunday of October 2026.
	a := time.Date(2026, 10, 3, 23, 0, 0, 0, loc)
	b := time.Date(2026, 10, 5, 1, 0, 0, 0, loc)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween = %d, want 2", got)
	}
}

func TestSortedCopy_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Reading{
		{Timestamp: base.Add(2 * time.Hour), LevelPercent: 1},
		{Timestamp: base, LevelPercent: 2},
	}
	out := SortedCopy(in)
	if out[0].LevelPercent != 2 || out[1].LevelPercent != 1 {
		t.Fatalf("unexpected order: %+v", out)
	}
	if in[0].LevelPercent != 1 {
		t.Error("input slice was reordered")
	}
}
