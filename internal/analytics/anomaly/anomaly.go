// Package anomaly flags point anomalies in a tank's reading and daily
// consumption series. It is independent of operation detection.
package anomaly

import (
	"fmt"
	"time"

	"github.com/soltixdb/tankwatch/internal/analytics/consumption"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Type represents the type of anomaly detected
type Type string

const (
	TypeUnusualRate      Type = "unusual_rate"      // Daily rate far above baseline
	TypeSuddenDrop       Type = "sudden_drop"       // Large level drop within 24 hours
	TypeSensorDrift      Type = "sensor_drift"      // Raw vs calibrated offset moved
	TypeNightConsumption Type = "night_consumption" // Draw-down outside working hours
)

// Valid reports whether t is a known anomaly type.
func (t Type) Valid() bool {
	switch t {
	case TypeUnusualRate, TypeSuddenDrop, TypeSensorDrift, TypeNightConsumption:
		return true
	default:
		return false
	}
}

// Severity grades an anomaly.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// Anomaly represents a detected anomaly
type Anomaly struct {
	Type        Type      `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
}

// Input is everything a detector may look at. Readings need not be sorted.
type Input struct {
	Readings []telemetry.Reading
	Days     []consumption.DailyConsumption
	Baseline consumption.BaselineResult

	// Location defines local night hours. Night consumption is skipped
	// when nil.
	Location *time.Location
}

// DetectorConfig holds configuration for anomaly detection
type DetectorConfig struct {
	// Z-score above which a day's rate is unusual, and above which it is high severity
	ZScoreThreshold float64
	HighZScore      float64

	SuddenDropPct     float64
	SuddenDropHighPct float64
	SuddenDropWindow  time.Duration

	DriftThresholdPct float64
	DriftHighPct      float64
	DriftWindow       int

	NightStartHour        int
	NightEndHour          int
	NightMinPct           float64
	NightBaselineFraction float64

	NoiseThresholdPct  float64
	RefillThresholdPct float64

	// MaxAnomalies caps the combined list
	MaxAnomalies int
}

// DefaultConfig returns default detector configuration
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		ZScoreThreshold:       2.5,
		HighZScore:            3.0,
		SuddenDropPct:         15,
		SuddenDropHighPct:     25,
		SuddenDropWindow:      24 * time.Hour,
		DriftThresholdPct:     5,
		DriftHighPct:          10,
		DriftWindow:           10,
		NightStartHour:        22,
		NightEndHour:          5,
		NightMinPct:           1,
		NightBaselineFraction: 0.5,
		NoiseThresholdPct:     consumption.DefaultNoiseThresholdPct,
		RefillThresholdPct:    consumption.DefaultRefillThresholdPct,
		MaxAnomalies:          10,
	}
}

// Detector is implemented by every anomaly rule.
type Detector interface {
	// Name returns the anomaly type the detector emits
	Name() Type

	// Detect returns anomalies in detection order. Readings are sorted.
	Detect(in Input, config DetectorConfig) []Anomaly
}

// detectors run in this fixed order; the combined list keeps it.
var detectors = []Detector{
	&UnusualRateDetector{},
	&SuddenDropDetector{},
	&SensorDriftDetector{},
	&NightConsumptionDetector{},
}

// GetDetector returns a detector by name
func GetDetector(name Type) (Detector, error) {
	for _, d := range detectors {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the detector names in run order
func ListDetectors() []Type {
	names := make([]Type, len(detectors))
	for i, d := range detectors {
		names[i] = d.Name()
	}
	return names
}

// Detect runs every detector and concatenates their findings, capped at
// MaxAnomalies. The list is in detection order, not severity order.
func Detect(in Input, config DetectorConfig) []Anomaly {
	in.Readings = telemetry.SortedCopy(in.Readings)

	results := make([]Anomaly, 0)
	for _, d := range detectors {
		results = append(results, d.Detect(in, config)...)
		if config.MaxAnomalies > 0 && len(results) >= config.MaxAnomalies {
			return results[:config.MaxAnomalies]
		}
	}
	return results
}
