package indicators

// FibLevel names one retracement/extension ratio.
type FibLevel string

const (
	Fib000   FibLevel = "0.0%"
	Fib236   FibLevel = "23.6%"
	Fib382   FibLevel = "38.2%"
	Fib500   FibLevel = "50.0%"
	Fib618   FibLevel = "61.8%"
	Fib786   FibLevel = "78.6%"
	Fib100   FibLevel = "100.0%"
	Fib1272  FibLevel = "127.2%"
	Fib1618  FibLevel = "161.8%"
	Fib200   FibLevel = "200.0%"
	Fib2618  FibLevel = "261.8%"
)

// SwingHighLow returns the highest and lowest close over the last period
// bars, the anchor points for Fibonacci levels. Returns ok=false with
// fewer than period closes.
func SwingHighLow(closes []float64, period int) (high, low float64, ok bool) {
	if len(closes) < period {
		return 0, 0, false
	}
	recent := closes[len(closes)-period:]
	return maxOf(recent), minOf(recent), true
}

// FibonacciRetracement returns the standard retracement levels between a
// swing high and low.
func FibonacciRetracement(swingHigh, swingLow float64) map[FibLevel]float64 {
	diff := swingHigh - swingLow
	return map[FibLevel]float64{
		Fib000: swingHigh,
		Fib236: swingHigh - diff*0.236,
		Fib382: swingHigh - diff*0.382,
		Fib500: swingHigh - diff*0.500,
		Fib618: swingHigh - diff*0.618,
		Fib786: swingHigh - diff*0.786,
		Fib100: swingLow,
	}
}

// FibonacciExtensions returns breakout-target extension levels beyond a
// swing high.
func FibonacciExtensions(swingHigh, swingLow float64) map[FibLevel]float64 {
	diff := swingHigh - swingLow
	return map[FibLevel]float64{
		Fib000:  swingHigh,
		Fib1272: swingHigh + diff*0.272,
		Fib1618: swingHigh + diff*0.618,
		Fib200:  swingHigh + diff,
		Fib2618: swingHigh + diff*1.618,
	}
}

// IsNearFibonacciLevel reports the first level within tolerancePercent of
// currentPrice, if any.
func IsNearFibonacciLevel(currentPrice float64, levels map[FibLevel]float64, tolerancePercent float64) (FibLevel, float64, bool) {
	for name, price := range levels {
		if price == 0 {
			continue
		}
		diffPct := absF((currentPrice - price) / price * 100)
		if diffPct <= tolerancePercent {
			return name, price, true
		}
	}
	return "", 0, false
}

// fibonacciLevelWeights assigns each key retracement level a signal-
// strength multiplier — the golden ratio (61.8%) carries the highest
// weight (§11 supplemented from the reference get_fibonacci_signal_strength).
var fibonacciLevelWeights = map[FibLevel]float64{
	Fib382: 1.1,
	Fib500: 1.1,
	Fib618: 1.2,
	Fib786: 1.15,
}

// FibonacciSignalStrength returns a 1.0-1.3 confidence multiplier based on
// proximity to the given key levels (defaulting to 38.2/50.0/61.8 when
// keyLevels is empty): 1.0 if not near any level, up to 1.3 at an exact
// level, with 61.8% weighted highest.
func FibonacciSignalStrength(currentPrice float64, levels map[FibLevel]float64, keyLevels []FibLevel, tolerancePercent float64) float64 {
	if len(keyLevels) == 0 {
		keyLevels = []FibLevel{Fib382, Fib500, Fib618}
	}

	best := 1.0
	for _, name := range keyLevels {
		price, exists := levels[name]
		if !exists || price == 0 {
			continue
		}
		diffPct := absF((currentPrice - price) / price * 100)
		if diffPct > tolerancePercent {
			continue
		}

		strength := 1.1
		if w, ok := fibonacciLevelWeights[name]; ok {
			strength = w
		}
		if diffPct <= 0.2 {
			strength = 1.3
		}
		if strength > best {
			best = strength
		}
	}
	return best
}
