package indicators_test

import (
	"testing"

	"github.com/c-rw/spicetrader-go/internal/indicators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFibonacciRetracement(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)
	assert.InDelta(t, 110000, levels[indicators.Fib000], 0.001)
	assert.InDelta(t, 103820, levels[indicators.Fib618], 0.001)
	assert.InDelta(t, 100000, levels[indicators.Fib100], 0.001)
}

func TestIsNearFibonacciLevel(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)

	name, price, ok := indicators.IsNearFibonacciLevel(103820, levels, 0.5)
	require.True(t, ok)
	assert.Equal(t, indicators.Fib618, name)
	assert.InDelta(t, 103820, price, 0.001)
}

func TestIsNearFibonacciLevel_NoMatch(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)

	_, _, ok := indicators.IsNearFibonacciLevel(103000, levels, 0.1)
	assert.False(t, ok)
}

func TestFibonacciSignalStrength_GoldenRatioWeightedHighest(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)

	// 0.5% above the 61.8% level: inside the 1% tolerance but outside the
	// 0.2% exact-level band; the 50% level (about 0.6% away) scores only 1.1.
	strength := indicators.FibonacciSignalStrength(levels[indicators.Fib618]*1.005, levels, nil, 1.0)
	assert.InDelta(t, 1.2, strength, 1e-9)
}

func TestFibonacciSignalStrength_ExactLevelIsHighestTier(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)

	strength := indicators.FibonacciSignalStrength(levels[indicators.Fib500], levels, nil, 1.0)
	assert.InDelta(t, 1.3, strength, 1e-9)
}

func TestFibonacciSignalStrength_FarFromAnyLevel(t *testing.T) {
	levels := indicators.FibonacciRetracement(110000, 100000)

	strength := indicators.FibonacciSignalStrength(120000, levels, nil, 1.0)
	assert.Equal(t, 1.0, strength)
}

func TestSwingHighLow(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	high, low, ok := indicators.SwingHighLow(closes, 50)
	require.True(t, ok)
	assert.Equal(t, 149.0, high)
	assert.Equal(t, 100.0, low)
}

func TestSwingHighLow_InsufficientData(t *testing.T) {
	_, _, ok := indicators.SwingHighLow([]float64{1, 2, 3}, 50)
	assert.False(t, ok)
}
