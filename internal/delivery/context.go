package delivery

import "time"

// Inputs is what a context evaluator sees of the recommendation.
type Inputs struct {
	// Today is midnight in the asset's timezone.
	Today                  time.Time
	CapacityLiters         float64
	CurrentLevelLiters     float64
	DailyConsumptionLiters float64
	LowLevelLiters         float64
	LeadTimeDays           int

	// DaysToLow is nil when the tank is not depleting.
	DaysToLow *float64
}

// Signal is a context-driven order-by candidate.
type Signal struct {
	OrderByDate time.Time
	ExtraLiters float64

	// Factor names the driving event, e.g. "harvest starting 2026-11-02".
	Factor string
	Reason string
}

// ContextEvaluator inspects external context and returns a signal when it
// could require ordering earlier, or nil. Implementations are pure.
type ContextEvaluator interface {
	Name() string
	Evaluate(in Inputs) *Signal
}

// NoContext is the pure-consumption evaluator.
type NoContext struct{}

// Name returns the evaluator name
func (NoContext) Name() string {
	return string(StrategyNone)
}

// Evaluate never produces a signal
func (NoContext) Evaluate(Inputs) *Signal {
	return nil
}
