// Package telemetry defines the input shapes shared by every analysis: tank
// readings, static asset metadata and the reference errors raised when a
// caller breaks the input contract.
package telemetry

import (
	"sort"
	"time"
)

// Reading is a single fill-level sample reported by a tank sensor or entered
// as a manual dip. Optional measurements are nil when the device does not
// report them.
type Reading struct {
	Timestamp      time.Time `json:"timestamp"`
	LevelPercent   float64   `json:"level_percent"`
	LevelLiters    *float64  `json:"level_liters,omitempty"`
	RawPercent     *float64  `json:"raw_percent,omitempty"`
	BatteryVoltage *float64  `json:"battery_voltage,omitempty"`
	IsOnline       *bool     `json:"is_online,omitempty"`
}

// SortedCopy returns the readings ordered by timestamp without touching the
// caller's slice. Equal timestamps keep their input order.
func SortedCopy(readings []Reading) []Reading {
	out := make([]Reading, len(readings))
	copy(out, readings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Latest returns the newest reading of an already sorted slice.
func Latest(readings []Reading) (Reading, bool) {
	if len(readings) == 0 {
		return Reading{}, false
	}
	return readings[len(readings)-1], true
}

// Float64 returns a pointer to v, for filling optional reading fields.
func Float64(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
