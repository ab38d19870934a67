package strategy_test

import (
	"testing"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/stretchr/testify/assert"
)

func ohlcSeries(closes, volumes []float64) domain.OHLCSeries {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		v := 1.0
		if i < len(volumes) {
			v = volumes[i]
		}
		candles[i] = domain.Candle{Time: int64(i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: v}
	}
	return domain.OHLCSeries{Pair: "X", Candles: candles}
}

func TestBreakout_HoldsOnInsufficientData(t *testing.T) {
	b := strategy.NewBreakout(config.BreakoutConfig{ATRPeriod: 14, LookbackPeriod: 20})
	signal := b.Analyze(ohlcSeries([]float64{1, 2, 3}, nil), strategy.Context{})
	assert.Equal(t, strategy.Hold, signal)
}

func TestBreakout_Reset(t *testing.T) {
	b := strategy.NewBreakout(config.BreakoutConfig{ATRPeriod: 3, LookbackPeriod: 5, RequireRetest: true})
	b.Reset()
	assert.Equal(t, strategy.KindBreakout, b.Kind())
}
