package operation

import "time"

// SeasonRule maps a set of calendar months and a minimum consumption
// multiplier to an operation type.
type SeasonRule struct {
	Type          Type         `json:"type" mapstructure:"type"`
	Months        []time.Month `json:"months" mapstructure:"months"`
	MinMultiplier float64      `json:"min_multiplier" mapstructure:"min_multiplier"`
}

func (r SeasonRule) matches(month time.Month, multiplier float64) bool {
	if multiplier < r.MinMultiplier {
		return false
	}
	for _, m := range r.Months {
		if m == month {
			return true
		}
	}
	return false
}

// DefaultSeasonRules returns the southern-hemisphere broadacre calendar.
// Rules are evaluated in order; harvest comes before irrigation so a heavy
// December spike is read as harvest.
func DefaultSeasonRules() []SeasonRule {
	return []SeasonRule{
		{Type: TypeHarvest, Months: []time.Month{time.October, time.November, time.December, time.January}, MinMultiplier: 2.5},
		{Type: TypeSeeding, Months: []time.Month{time.April, time.May, time.June}, MinMultiplier: 2.0},
		{Type: TypeSpraying, Months: []time.Month{time.July, time.August, time.September}, MinMultiplier: 2.0},
		{Type: TypeIrrigation, Months: []time.Month{time.December, time.January, time.February}, MinMultiplier: 2.0},
	}
}

// InferType returns the first rule matching month and multiplier, or
// TypeUnknown.
func InferType(month time.Month, multiplier float64, rules []SeasonRule) Type {
	for _, r := range rules {
		if r.matches(month, multiplier) {
			return r.Type
		}
	}
	return TypeUnknown
}
