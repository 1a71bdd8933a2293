package telemetry

import "time"

// ExclusionPeriod is a caller-supplied interval of known activity (a harvest,
// a generator hire) whose days must not feed the consumption baseline.
// Both bounds are inclusive at calendar-day granularity.
type ExclusionPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
}

// ContainsDay reports whether the calendar day starting at day (midnight in
// the analysis timezone) overlaps the period.
func (p ExclusionPeriod) ContainsDay(day time.Time) bool {
	loc := day.Location()
	start := StartOfDay(p.Start.In(loc))
	end := StartOfDay(p.End.In(loc))
	return !day.Before(start) && !day.After(end)
}

// Asset is the static metadata of one monitored tank.
type Asset struct {
	ID             string            `json:"id"`
	Name           string            `json:"name,omitempty"`
	CapacityLiters float64           `json:"capacity_liters"`
	Timezone       string            `json:"timezone,omitempty"`
	RegionID       string            `json:"region_id,omitempty"`
	Exclusions     []ExclusionPeriod `json:"exclusions,omitempty"`
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b (b - a), counted
// in a's location. Wall-clock dates are compared so DST shifts never produce
// fractional days.
func DaysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
