package indicators

import "gonum.org/v1/gonum/stat"

// LinearRegressionSlope fits an ordinary-least-squares line to the last
// period closes (x = bar index 0..period-1, y = close) and returns its
// slope: positive for an uptrend, negative for a downtrend, near zero for
// sideways. Returns (slope, ok); ok is false with fewer than period closes.
//
// Uses gonum's stat.LinearRegression rather than a hand-rolled
// normal-equation solver (§4.1a).
func LinearRegressionSlope(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	recent := closes[len(closes)-period:]

	xs := make([]float64, period)
	for i := range xs {
		xs[i] = float64(i)
	}

	_, slope := stat.LinearRegression(xs, recent, nil, false)
	return slope, true
}
