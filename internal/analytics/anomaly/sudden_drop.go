package anomaly

import "fmt"

// SuddenDropDetector flags level drops larger than SuddenDropPct within a
// trailing SuddenDropWindow, regardless of z-score.
type SuddenDropDetector struct{}

// Name returns the anomaly type
func (s *SuddenDropDetector) Name() Type {
	return TypeSuddenDrop
}

// Detect measures each reading against the highest level in its trailing
// window. A refill or a flagged drop starts a new span so one event is
// reported once.
func (s *SuddenDropDetector) Detect(in Input, config DetectorConfig) []Anomaly {
	readings := in.Readings
	if len(readings) < 2 {
		return nil
	}

	var results []Anomaly
	spanStart := 0
	for j := 1; j < len(readings); j++ {
		cur := readings[j]
		if cur.LevelPercent-readings[j-1].LevelPercent > config.RefillThresholdPct {
			spanStart = j
			continue
		}

		peak := cur.LevelPercent
		for i := j - 1; i >= spanStart; i-- {
			if cur.Timestamp.Sub(readings[i].Timestamp) > config.SuddenDropWindow {
				break
			}
			if readings[i].LevelPercent > peak {
				peak = readings[i].LevelPercent
			}
		}

		drop := peak - cur.LevelPercent
		if drop <= config.SuddenDropPct {
			continue
		}

		severity := SeverityMedium
		if drop > config.SuddenDropHighPct {
			severity = SeverityHigh
		}
		results = append(results, Anomaly{
			Type:      TypeSuddenDrop,
			Timestamp: cur.Timestamp,
			Severity:  severity,
			Description: fmt.Sprintf("level dropped %.1f points to %.1f%% within %s",
				drop, cur.LevelPercent, config.SuddenDropWindow),
			Value: drop,
		})
		spanStart = j
	}
	return results
}
