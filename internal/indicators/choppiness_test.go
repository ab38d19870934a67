package indicators_test

import (
	"testing"

	"github.com/c-rw/spicetrader-go/internal/indicators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestChoppinessIndex_FlatMarketIsMaximallyChoppy(t *testing.T) {
	highs := flatSeries(20, 100)
	lows := flatSeries(20, 100)
	closes := flatSeries(20, 100)

	ci, ok := indicators.ChoppinessIndex(highs, lows, closes, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, ci)
}

func TestChoppinessIndex_InsufficientData(t *testing.T) {
	_, ok := indicators.ChoppinessIndex([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 14)
	assert.False(t, ok)
}

func TestChoppinessIndex_ClampedToRange(t *testing.T) {
	highs := make([]float64, 20)
	lows := make([]float64, 20)
	closes := make([]float64, 20)
	for i := range highs {
		highs[i] = 100 + float64(i)*5
		lows[i] = 95 + float64(i)*5
		closes[i] = 97 + float64(i)*5
	}

	ci, ok := indicators.ChoppinessIndex(highs, lows, closes, 14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, ci, 0.0)
	assert.LessOrEqual(t, ci, 100.0)
}

func TestRangePercent(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	closes[10] = 110
	closes[20] = 90

	pct, ok := indicators.RangePercent(closes, 50)
	require.True(t, ok)
	assert.InDelta(t, (110.0-90.0)/90.0*100, pct, 1e-9)
}

func TestLinearRegressionSlope_Uptrend(t *testing.T) {
	closes := make([]float64, 14)
	for i := range closes {
		closes[i] = float64(i)
	}
	slope, ok := indicators.LinearRegressionSlope(closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 1.0, slope, 1e-9)
}

func TestLinearRegressionSlope_Flat(t *testing.T) {
	closes := flatSeries(14, 50)
	slope, ok := indicators.LinearRegressionSlope(closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 0.0, slope, 1e-9)
}

func TestSupportResistance_ClustersNearbyLevels(t *testing.T) {
	prices := []float64{
		100, 99, 98, 97, 96, 95, 94, 93, 92, 91,
		90, 91, 92, 93, 94, 95, 96, 97, 98, 99,
		100, 99, 98, 97, 96, 95, 94, 93, 92, 91,
		90, 91, 92, 93, 94, 95, 96, 97, 98, 99,
	}
	support, resistance := indicators.SupportResistance(prices, 10, 0.02)
	assert.NotEmpty(t, support)
	assert.NotEmpty(t, resistance)
}
