package delivery

import (
	"fmt"
	"sort"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

const (
	DefaultMinProbability   = 0.5
	DefaultSafetyMarginDays = 1
)

// RiskEvaluator pulls the order-by date ahead of weather events that cut
// delivery access. Road-closure categories are only considered for regions
// with closure-prone access roads, which keeps sealed-road regions free of
// false alarms.
type RiskEvaluator struct {
	Events           []telemetry.WeatherEvent
	Region           telemetry.Region
	Assessments      []telemetry.RoadRiskAssessment
	MinProbability   float64
	SafetyMarginDays int
	HorizonDays      int
}

// Name returns the evaluator name
func (e RiskEvaluator) Name() string {
	return string(StrategyRisk)
}

// Evaluate returns a signal for the earliest qualifying event: likely
// enough, inside the horizon, applicable to the region, and long enough
// that the tank reaches the low level before access is restored.
func (e RiskEvaluator) Evaluate(in Inputs) *Signal {
	if in.DaysToLow == nil {
		return nil
	}

	minProb := e.MinProbability
	if minProb <= 0 {
		minProb = DefaultMinProbability
	}
	margin := e.SafetyMarginDays
	if margin < 0 {
		margin = DefaultSafetyMarginDays
	}
	horizon := e.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	events := make([]telemetry.WeatherEvent, len(e.Events))
	copy(events, e.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})

	loc := in.Today.Location()
	for _, ev := range events {
		if ev.Probability < minProb || !e.applies(ev.Category) {
			continue
		}

		start := telemetry.StartOfDay(ev.StartDate.In(loc))
		end := telemetry.StartOfDay(ev.EndDate.In(loc))
		if end.Before(start) {
			end = start
		}
		if telemetry.DaysBetween(in.Today, start) > horizon || end.Before(in.Today) {
			continue
		}

		restored := end.AddDate(0, 0, 1)
		if ev.Category.ClosesRoads() {
			restored = restored.AddDate(0, 0, e.closureDays(ev, minProb))
		}
		if *in.DaysToLow >= float64(telemetry.DaysBetween(in.Today, restored)) {
			continue
		}

		factor := fmt.Sprintf("%s from %s to %s (%.0f%% likely)",
			ev.Category, start.Format(dateLayout), end.Format(dateLayout), ev.Probability*100)
		orderBy := start.AddDate(0, 0, -(in.LeadTimeDays + margin))

		return &Signal{
			OrderByDate: orderBy,
			Factor:      factor,
			Reason: fmt.Sprintf("Order by %s: %s; tank reaches low level before access is restored on %s",
				orderBy.Format(dateLayout), factor, restored.Format(dateLayout)),
		}
	}
	return nil
}

func (e RiskEvaluator) applies(category telemetry.EventCategory) bool {
	switch {
	case category.ClosesRoads():
		return e.Region.ClosureProneRoads
	case category.DisruptsDeliveries():
		return true
	default:
		return false
	}
}

// closureDays is the longest expected closure among likely assessments
// valid during the event.
func (e RiskEvaluator) closureDays(ev telemetry.WeatherEvent, minProb float64) int {
	days := 0
	for _, a := range e.Assessments {
		if a.ClosureProbability < minProb {
			continue
		}
		if a.RegionID != "" && e.Region.ID != "" && a.RegionID != e.Region.ID {
			continue
		}
		if !a.ValidTo.IsZero() && a.ValidTo.Before(ev.StartDate) {
			continue
		}
		if !a.ValidFrom.IsZero() && a.ValidFrom.After(ev.EndDate) {
			continue
		}
		if a.ExpectedClosureDays > days {
			days = a.ExpectedClosureDays
		}
	}
	return days
}

// NewRiskEvaluator creates a risk-aware evaluator with default probability,
// margin and horizon.
func NewRiskEvaluator(events []telemetry.WeatherEvent, region telemetry.Region, assessments []telemetry.RoadRiskAssessment) RiskEvaluator {
	return RiskEvaluator{
		Events:           events,
		Region:           region,
		Assessments:      assessments,
		MinProbability:   DefaultMinProbability,
		SafetyMarginDays: DefaultSafetyMarginDays,
		HorizonDays:      DefaultHorizonDays,
	}
}
