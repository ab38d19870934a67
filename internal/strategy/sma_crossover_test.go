package strategy_test

import (
	"testing"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/stretchr/testify/assert"
)

func closesSeries(closes []float64) domain.OHLCSeries {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = domain.Candle{Time: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return domain.OHLCSeries{Pair: "X", Candles: candles}
}

// TestSMACrossover_BullishCross is spec.md §8 scenario 6: with fast=3,
// slow=5, trend_filter=off, min_hold=0, min_profit=0, feed
// [10,10,10,10,10] -> null, then [...,12] -> buy.
func TestSMACrossover_BullishCross(t *testing.T) {
	cfg := config.SMACrossoverConfig{FastPeriod: 3, SlowPeriod: 5, EnableTrendFilter: false}
	s := strategy.NewSMACrossover(cfg)

	first := s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10}), strategy.Context{})
	assert.Equal(t, strategy.Hold, first)

	second := s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10, 12}), strategy.Context{})
	assert.Equal(t, strategy.Buy, second)
}

func TestSMACrossover_TrendFilterSuppressesBuyInDowntrend(t *testing.T) {
	cfg := config.SMACrossoverConfig{FastPeriod: 3, SlowPeriod: 5, EnableTrendFilter: true}
	s := strategy.NewSMACrossover(cfg)

	s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10}), strategy.Context{})
	signal := s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10, 12}), strategy.Context{MarketState: domain.StateStrongDowntrend})

	assert.Equal(t, strategy.Hold, signal)
}

func TestSMACrossover_SellRequiresMinHoldAndProfit(t *testing.T) {
	cfg := config.SMACrossoverConfig{FastPeriod: 3, SlowPeriod: 5, MinProfitTarget: 0.5, MinHoldTime: 0}
	s := strategy.NewSMACrossover(cfg)

	s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10}), strategy.Context{})
	s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10, 12}), strategy.Context{NowUnix: 0})

	// Bearish cross without enough profit should hold, not sell.
	signal := s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10, 12, 1}), strategy.Context{
		NowUnix:  10,
		Position: strategy.PositionState{Long: true},
	})
	assert.Equal(t, strategy.Hold, signal)
}

func TestSMACrossover_Reset(t *testing.T) {
	s := strategy.NewSMACrossover(config.SMACrossoverConfig{FastPeriod: 3, SlowPeriod: 5})
	s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10}), strategy.Context{})
	s.Reset()
	// After reset, the very first call should again return Hold to seed prevFast/prevSlow.
	signal := s.Analyze(closesSeries([]float64{10, 10, 10, 10, 10, 12}), strategy.Context{})
	assert.Equal(t, strategy.Hold, signal)
}
