// Package delivery turns the current level and consumption rate into one
// delivery recommendation. A single recommender core is parameterised by a
// ContextEvaluator that may pull the order-by date earlier.
package delivery

import (
	"fmt"
	"math"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

const (
	DefaultTargetLevelPct = 70.0
	DefaultLowLevelPct    = 20.0
	DefaultLeadTimeDays   = 3

	// DefaultMaxPlanningDays bounds the order-by date when the tank is not
	// depleting.
	DefaultMaxPlanningDays = 90
)

// Request is the input of one recommendation.
type Request struct {
	AssetID                string
	CapacityLiters         float64
	CurrentLevelLiters     float64
	DailyConsumptionLiters float64

	// A zero target takes the default. A negative low level or lead time
	// takes the default; zero low level plans against an empty tank and zero
	// lead time means same-day delivery.
	TargetLevelPct float64
	LowLevelPct    float64
	LeadTimeDays   int

	// Today is injectable for deterministic results; zero means now.
	Today    time.Time
	Location *time.Location
}

func (r Request) withDefaults() Request {
	if r.TargetLevelPct <= 0 {
		r.TargetLevelPct = DefaultTargetLevelPct
	}
	if r.LowLevelPct < 0 {
		r.LowLevelPct = DefaultLowLevelPct
	}
	if r.LeadTimeDays < 0 {
		r.LeadTimeDays = DefaultLeadTimeDays
	}
	if r.Location == nil {
		r.Location = time.UTC
	}
	if r.Today.IsZero() {
		r.Today = time.Now()
	}
	return r
}

// Details records the intermediate values of a recommendation.
type Details struct {
	CapacityLiters         float64   `json:"capacity_liters"`
	CurrentLevelLiters     float64   `json:"current_level_liters"`
	CurrentLevelPct        float64   `json:"current_level_pct"`
	TargetLevelLiters      float64   `json:"target_level_liters"`
	LowLevelLiters         float64   `json:"low_level_liters"`
	LitersToTarget         float64   `json:"liters_to_target"`
	DailyConsumptionLiters float64   `json:"daily_consumption_liters"`
	DaysToLow              *float64  `json:"days_to_low,omitempty"`
	LeadTimeDays           int       `json:"lead_time_days"`
	ConsumptionOrderByDate time.Time `json:"consumption_order_by_date"`
	ConsumptionBufferDays  int       `json:"consumption_buffer_days"`
	Evaluator              string    `json:"evaluator"`
	ContextApplied         bool      `json:"context_applied"`
	ContextFactor          string    `json:"context_factor,omitempty"`
	ExtraLiters            float64   `json:"extra_liters"`
	CappedToCapacity       bool      `json:"capped_to_capacity"`
}

// Recommendation is the terminal output of the engine.
type Recommendation struct {
	AssetID            string    `json:"asset_id"`
	UrgencyLevel       Urgency   `json:"urgency_level"`
	OrderByDate        time.Time `json:"order_by_date"`
	Reason             string    `json:"reason"`
	LitersNeeded       float64   `json:"liters_needed"`
	DaysOfBuffer       int       `json:"days_of_buffer"`
	CalculationDetails Details   `json:"calculation_details"`
}

// Recommender computes delivery recommendations.
type Recommender struct {
	maxPlanningDays int
}

// NewRecommender creates a recommender. maxPlanningDays <= 0 takes the
// default.
func NewRecommender(maxPlanningDays int) *Recommender {
	if maxPlanningDays <= 0 {
		maxPlanningDays = DefaultMaxPlanningDays
	}
	return &Recommender{maxPlanningDays: maxPlanningDays}
}

// Recommend computes the consumption-driven order-by date, then lets the
// evaluator move it earlier. A signal never moves it later.
func (r *Recommender) Recommend(req Request, evaluator ContextEvaluator) (Recommendation, error) {
	if req.AssetID == "" {
		return Recommendation{}, telemetry.ErrMissingAssetID
	}
	if req.CapacityLiters <= 0 {
		return Recommendation{}, telemetry.ErrInvalidCapacity
	}
	if evaluator == nil {
		evaluator = NoContext{}
	}
	req = req.withDefaults()

	today := telemetry.StartOfDay(req.Today.In(req.Location))
	current := math.Max(0, math.Min(req.CurrentLevelLiters, req.CapacityLiters))
	targetLiters := req.CapacityLiters * req.TargetLevelPct / 100
	lowLiters := req.CapacityLiters * req.LowLevelPct / 100

	details := Details{
		CapacityLiters:         req.CapacityLiters,
		CurrentLevelLiters:     current,
		CurrentLevelPct:        current / req.CapacityLiters * 100,
		TargetLevelLiters:      targetLiters,
		LowLevelLiters:         lowLiters,
		LitersToTarget:         math.Max(0, targetLiters-current),
		DailyConsumptionLiters: req.DailyConsumptionLiters,
		LeadTimeDays:           req.LeadTimeDays,
		Evaluator:              evaluator.Name(),
	}

	buffer := r.maxPlanningDays
	if req.DailyConsumptionLiters > 0 {
		daysToLow := math.Max(0, (current-lowLiters)/req.DailyConsumptionLiters)
		details.DaysToLow = &daysToLow
		if b := math.Floor(daysToLow - float64(req.LeadTimeDays)); b < float64(buffer) {
			buffer = int(b)
		}
	}
	details.ConsumptionBufferDays = buffer
	details.ConsumptionOrderByDate = orderByDate(today, buffer)
	reason := consumptionReason(details, req, buffer, details.ConsumptionOrderByDate)

	signal := evaluator.Evaluate(Inputs{
		Today:                  today,
		CapacityLiters:         req.CapacityLiters,
		CurrentLevelLiters:     current,
		DailyConsumptionLiters: req.DailyConsumptionLiters,
		LowLevelLiters:         lowLiters,
		LeadTimeDays:           req.LeadTimeDays,
		DaysToLow:              details.DaysToLow,
	})
	if signal != nil {
		details.ContextFactor = signal.Factor
		details.ExtraLiters = math.Max(0, signal.ExtraLiters)

		signalDay := telemetry.StartOfDay(signal.OrderByDate.In(req.Location))
		if signalBuffer := telemetry.DaysBetween(today, signalDay); signalBuffer < buffer {
			buffer = signalBuffer
			details.ContextApplied = true
			reason = signal.Reason
		} else {
			reason += fmt.Sprintf("; %s does not require an earlier order", signal.Factor)
		}
	}

	liters := details.LitersToTarget + details.ExtraLiters
	if free := req.CapacityLiters - current; liters > free {
		liters = free
		details.CappedToCapacity = true
	}

	return Recommendation{
		AssetID:            req.AssetID,
		UrgencyLevel:       UrgencyFor(buffer),
		OrderByDate:        orderByDate(today, buffer),
		Reason:             reason,
		LitersNeeded:       liters,
		DaysOfBuffer:       buffer,
		CalculationDetails: details,
	}, nil
}

// orderByDate is today plus the buffer, floored at today.
func orderByDate(today time.Time, buffer int) time.Time {
	if buffer < 0 {
		buffer = 0
	}
	return today.AddDate(0, 0, buffer)
}

func consumptionReason(d Details, req Request, buffer int, orderBy time.Time) string {
	if d.DaysToLow == nil {
		return fmt.Sprintf("No measurable consumption; next review by %s", orderBy.Format(dateLayout))
	}
	if buffer < 0 {
		return fmt.Sprintf("Order now: tank reaches %.0f%% in %.1f days at %.0f L/day, inside the %d-day lead time",
			req.LowLevelPct, *d.DaysToLow, d.DailyConsumptionLiters, req.LeadTimeDays)
	}
	return fmt.Sprintf("Order by %s: tank reaches %.0f%% in %.1f days at %.0f L/day with a %d-day lead time",
		orderBy.Format(dateLayout), req.LowLevelPct, *d.DaysToLow, d.DailyConsumptionLiters, req.LeadTimeDays)
}

const dateLayout = "2006-01-02"
