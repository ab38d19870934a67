// Package indicators computes the technical indicators MarketAnalyzer and
// the strategy family read off committed OHLC series. SMA, EMA, Bollinger
// Bands and MACD are thin wrappers around go-talib. RSI, ATR and ADX are
// hand-rolled as plain sliding-window averages (matching
// original_source/src/indicators.py's calculate_rsi/calculate_atr/
// calculate_adx) rather than talib's Wilder-smoothed Rsi/Atr/Adx, which
// accumulate across the whole series and drift from the reference values
// once a ring buffer runs longer than period+1 bars. Indicators with no
// talib equivalent (Choppiness Index, linear-regression slope, range%,
// support/resistance clustering, Fibonacci levels) are implemented
// directly below.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the simple moving average series for period; the first
// period-1 entries are talib's placeholder zeros.
func SMA(closes []float64, period int) []float64 {
	return talib.Sma(closes, period)
}

// EMA returns the exponential moving average series for period.
func EMA(closes []float64, period int) []float64 {
	return talib.Ema(closes, period)
}

// RSI returns the relative strength index series for period (standard 14).
// Each entry is a fresh simple average of gains and losses over the
// trailing period deltas, not a Wilder-smoothed running value — a
// direct port of calculate_rsi. Entries before index period are zero
// placeholders, matching the talib series convention callers rely on via
// Last.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) < period+1 {
		return out
	}

	for i := period; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gainSum += change
			} else {
				lossSum += -change
			}
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// BollingerBands returns (upper, middle, lower) band series for period and
// the given standard deviation multiplier.
func BollingerBands(closes []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	return talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
}

// ATR returns the average true range series for period. Each entry is a
// fresh simple average of true ranges over the trailing period bars, a
// direct port of calculate_atr, not talib's Wilder-smoothed running
// average.
func ATR(highs, lows, closes []float64, period int) []float64 {
	out := make([]float64, len(highs))
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return out
	}

	for i := period; i < len(highs); i++ {
		var trSum float64
		for j := i - period + 1; j <= i; j++ {
			highLow := highs[j] - lows[j]
			highClose := math.Abs(highs[j] - closes[j-1])
			lowClose := math.Abs(lows[j] - closes[j-1])
			trSum += max3(highLow, highClose, lowClose)
		}
		out[i] = trSum / float64(period)
	}
	return out
}

// ADX returns the average directional index series for period, measuring
// trend strength independent of direction. It is a direct port of
// calculate_adx: +DM/-DM smoothed by a trailing simple average (not
// Wilder's running smoothing), normalized against ATR into +DI/-DI, then
// DX averaged over the trailing period values. Like the reference
// implementation, only the last entry is populated — callers read it
// through Last, which only inspects the tail of the series.
func ADX(highs, lows, closes []float64, period int) []float64 {
	out := make([]float64, len(highs))
	n := len(highs)
	if n < period*2 || len(lows) < period*2 || len(closes) < period*2 {
		return out
	}

	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		highDiff := highs[i] - highs[i-1]
		lowDiff := lows[i-1] - lows[i]

		if highDiff > lowDiff && highDiff > 0 {
			plusDM = append(plusDM, highDiff)
		} else {
			plusDM = append(plusDM, 0)
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM = append(minusDM, lowDiff)
		} else {
			minusDM = append(minusDM, 0)
		}
	}

	var atrValues []float64
	for i := period; i < len(closes); i++ {
		atr := ATR(highs[i-period:i+1], lows[i-period:i+1], closes[i-period:i+1], period)
		if last, ok := Last(atr, period+1); ok && last > 0 {
			atrValues = append(atrValues, last)
		}
	}
	if len(atrValues) == 0 {
		return out
	}

	var plusDI, minusDI []float64
	for i := period - 1; i < len(plusDM); i++ {
		var smoothedPlus, smoothedMinus float64
		for j := i - period + 1; j <= i; j++ {
			smoothedPlus += plusDM[j]
			smoothedMinus += minusDM[j]
		}
		smoothedPlus /= float64(period)
		smoothedMinus /= float64(period)

		idx := i - period + 1
		if idx >= len(atrValues) {
			idx = len(atrValues) - 1
		}
		if idx < 0 || atrValues[idx] <= 0 {
			continue
		}
		plusDI = append(plusDI, (smoothedPlus/atrValues[idx])*100)
		minusDI = append(minusDI, (smoothedMinus/atrValues[idx])*100)
	}
	if len(plusDI) == 0 || len(minusDI) == 0 {
		return out
	}

	var dx []float64
	for i := 0; i < len(plusDI) && i < len(minusDI); i++ {
		diSum := plusDI[i] + minusDI[i]
		if diSum <= 0 {
			continue
		}
		dx = append(dx, (math.Abs(plusDI[i]-minusDI[i])/diSum)*100)
	}
	if len(dx) < period {
		return out
	}

	var dxSum float64
	for _, v := range dx[len(dx)-period:] {
		dxSum += v
	}
	out[n-1] = dxSum / float64(period)
	return out
}

// MACD returns (macd, signal, histogram) series for the given fast/slow/
// signal EMA periods.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal, hist []float64) {
	return talib.Macd(closes, fastPeriod, slowPeriod, signalPeriod)
}

// Last returns the final element of series, or ok=false if series is empty
// or its tail is talib's zero-padding (fewer than minLen usable values).
func Last(series []float64, minLen int) (float64, bool) {
	if len(series) < minLen || len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}
