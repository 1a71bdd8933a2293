package delivery

import "fmt"

// Urgency is the recommendation bucket shown to operators.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyNormal   Urgency = "normal"
	UrgencyGood     Urgency = "good"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyWarning, UrgencyNormal, UrgencyGood:
		return true
	default:
		return false
	}
}

// Rank orders urgencies from most (0) to least urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyWarning:
		return 1
	case UrgencyNormal:
		return 2
	default:
		return 3
	}
}

// UrgencyFor buckets days of buffer: below 0 critical, below 3 warning,
// below 7 normal, otherwise good.
func UrgencyFor(daysOfBuffer int) Urgency {
	switch {
	case daysOfBuffer < 0:
		return UrgencyCritical
	case daysOfBuffer < 3:
		return UrgencyWarning
	case daysOfBuffer < 7:
		return UrgencyNormal
	default:
		return UrgencyGood
	}
}

// Strategy selects the context evaluator.
type Strategy string

const (
	StrategyNone      Strategy = "none"
	StrategyOperation Strategy = "operation"
	StrategyRisk      Strategy = "risk"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyNone, StrategyOperation, StrategyRisk:
		return true
	default:
		return false
	}
}

// ParseStrategy parses a strategy name. An empty string means none.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyNone, nil
	}
	strategy := Strategy(s)
	if !strategy.Valid() {
		return "", fmt.Errorf("unknown strategy: %s (expected none, operation or risk)", s)
	}
	return strategy, nil
}
