package indicators

// RangePercent returns the percentage spread between the highest and
// lowest of the last period closes, relative to the low: how wide the
// trading range has been. Returns (pct, ok); ok is false with fewer than
// period closes or a zero low.
func RangePercent(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	recent := closes[len(closes)-period:]

	high, low := recent[0], recent[0]
	for _, p := range recent[1:] {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	if low == 0 {
		return 0, false
	}
	return (high - low) / low * 100, true
}
