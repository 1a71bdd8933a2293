package delivery

import (
	"fmt"
	"math"
	"sort"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// DefaultHorizonDays is how far ahead evaluators look for events.
const DefaultHorizonDays = 30

// OperationEvaluator pulls the order-by date ahead of a scheduled operation
// whose usage would take the tank below the low level.
type OperationEvaluator struct {
	Operations  []telemetry.UpcomingOperation
	HorizonDays int
}

// Name returns the evaluator name
func (e OperationEvaluator) Name() string {
	return string(StrategyOperation)
}

// Evaluate returns a signal for the earliest qualifying operation. The tank
// level at the operation start is projected from normal consumption; an
// operation qualifies when its expected usage then takes the tank below the
// low level.
func (e OperationEvaluator) Evaluate(in Inputs) *Signal {
	horizon := e.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	ops := make([]telemetry.UpcomingOperation, len(e.Operations))
	copy(ops, e.Operations)
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].StartDate.Before(ops[j].StartDate)
	})

	for _, op := range ops {
		start := telemetry.StartOfDay(op.StartDate.In(in.Today.Location()))
		daysUntil := telemetry.DaysBetween(in.Today, start)
		duration := op.ExpectedDurationDays
		if duration <= 0 {
			duration = 1
		}
		if daysUntil > horizon || daysUntil+duration <= 0 {
			continue
		}

		daily := op.ExpectedDailyUsageLiters
		if daily <= 0 {
			daily = in.DailyConsumptionLiters
		}
		remaining := duration
		if daysUntil < 0 {
			remaining = duration + daysUntil
		}
		usage := daily * float64(remaining)

		levelAtStart := in.CurrentLevelLiters - in.DailyConsumptionLiters*math.Max(0, float64(daysUntil))
		if levelAtStart-usage >= in.LowLevelLiters {
			continue
		}

		name := op.Label
		if name == "" {
			name = op.Type
		}
		if name == "" {
			name = "operation"
		}
		factor := fmt.Sprintf("%s starting %s", name, start.Format(dateLayout))
		orderBy := start.AddDate(0, 0, -in.LeadTimeDays)

		return &Signal{
			OrderByDate: orderBy,
			ExtraLiters: usage,
			Factor:      factor,
			Reason: fmt.Sprintf("Order by %s: %s for %d day(s) needs about %.0f L on top of normal use",
				orderBy.Format(dateLayout), factor, remaining, usage),
		}
	}
	return nil
}

// NewOperationEvaluator creates an operation-aware evaluator with the
// default horizon.
func NewOperationEvaluator(ops []telemetry.UpcomingOperation) OperationEvaluator {
	return OperationEvaluator{Operations: ops, HorizonDays: DefaultHorizonDays}
}
