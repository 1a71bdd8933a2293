package forecast

import "github.com/soltixdb/tankwatch/internal/analytics"

// Fit is an ordinary least-squares line y = Intercept + Slope*x, where x is
// elapsed days since the first sample.
type Fit struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	RSquared   float64 `json:"r_squared"`
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape,omitempty"`
	DataPoints int     `json:"data_points"`
}

// At evaluates the line at x elapsed days.
func (f Fit) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// LinearFit regresses values against elapsed days since the first point.
// It reports false with fewer than two points or when every point shares
// one timestamp.
func LinearFit(data []DataPoint) (Fit, bool) {
	if len(data) < 2 {
		return Fit{DataPoints: len(data)}, false
	}

	series := analytics.TimeSeriesData(data)
	xs := series.ElapsedDays()
	ys := series.Values()
	n := float64(len(data))

	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumX2 := 0.0
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return Fit{DataPoints: len(data)}, false
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	fitted := make([]float64, len(data))
	for i, x := range xs {
		fitted[i] = intercept + slope*x
	}

	return Fit{
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   CalculateRSquared(ys, fitted),
		MAE:        CalculateMAE(ys, fitted),
		RMSE:       CalculateRMSE(ys, fitted),
		MAPE:       CalculateMAPE(ys, fitted),
		DataPoints: len(data),
	}, true
}
