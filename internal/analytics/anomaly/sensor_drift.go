package anomaly

import (
	"fmt"
	"math"

	"github.com/soltixdb/tankwatch/internal/analytics"
)

// SensorDriftDetector flags a shift in the raw-minus-calibrated offset
// between the oldest and most recent sample windows.
type SensorDriftDetector struct{}

// Name returns the anomaly type
func (s *SensorDriftDetector) Name() Type {
	return TypeSensorDrift
}

// Detect needs two full windows of readings carrying a raw percentage.
func (s *SensorDriftDetector) Detect(in Input, config DetectorConfig) []Anomaly {
	drift, pairs, ok := analytics.CalibrationDrift(in.Readings, config.DriftWindow)
	if !ok {
		return nil
	}

	magnitude := math.Abs(drift)
	if magnitude <= config.DriftThresholdPct {
		return nil
	}

	severity := SeverityMedium
	if magnitude > config.DriftHighPct {
		severity = SeverityHigh
	}

	last := in.Readings[len(in.Readings)-1]
	return []Anomaly{{
		Type:      TypeSensorDrift,
		Timestamp: last.Timestamp,
		Severity:  severity,
		Description: fmt.Sprintf("raw vs calibrated offset moved %+.1f points across %d paired samples",
			drift, pairs),
		Value: magnitude,
	}}
}
