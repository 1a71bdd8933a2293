// Package analytics provides common types and utilities for the tank
// analytics packages (consumption, operation, anomaly, forecast, health).
package analytics

import (
	"math"
	"time"
)

// TimeSeriesPoint represents a single time-series data point with time and value.
// This is the common type used across all analytics packages.
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

// TimeSeriesData represents a collection of time-series data points
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the time series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// ElapsedDays returns, for every point, the fractional days elapsed since the
// first point of the series.
func (ts TimeSeriesData) ElapsedDays() []float64 {
	xs := make([]float64, len(ts))
	if len(ts) == 0 {
		return xs
	}
	origin := ts[0].Time
	for i, p := range ts {
		xs[i] = p.Time.Sub(origin).Hours() / 24
	}
	return xs
}

// Len returns the number of data points
func (ts TimeSeriesData) Len() int {
	return len(ts)
}

// Span returns the time covered by the series.
func (ts TimeSeriesData) Span() time.Duration {
	if len(ts) < 2 {
		return 0
	}
	return ts[len(ts)-1].Time.Sub(ts[0].Time)
}

// MeanStdDev calculates the mean and population standard deviation of values.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var varianceSum float64
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	stdDev = math.Sqrt(varianceSum / float64(len(values)))

	return mean, stdDev
}

// ZScore calculates the standard score of value given mean and stdDev.
// A zero stdDev yields 0.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}
