package analytics

import "github.com/soltixdb/tankwatch/internal/telemetry"

// DefaultDriftWindow is the number of paired samples in each of the recent
// and older drift windows.
const DefaultDriftWindow = 10

// CalibrationDrift compares the mean raw-minus-calibrated offset of the most
// recent window of paired samples against the oldest window. It returns the
// signed change and the number of paired samples; ok is false when fewer
// than two full windows are available. Readings must be sorted.
func CalibrationDrift(readings []telemetry.Reading, window int) (drift float64, pairs int, ok bool) {
	if window <= 0 {
		window = DefaultDriftWindow
	}

	offsets := make([]float64, 0, len(readings))
	for _, r := range readings {
		if r.RawPercent == nil {
			continue
		}
		offsets = append(offsets, *r.RawPercent-r.LevelPercent)
	}
	if len(offsets) < 2*window {
		return 0, len(offsets), false
	}

	older, _ := MeanStdDev(offsets[:window])
	recent, _ := MeanStdDev(offsets[len(offsets)-window:])
	return recent - older, len(offsets), true
}
