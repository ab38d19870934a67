package orders_test

import (
	"errors"
	"testing"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func xbtusdRules() domain.AssetPairRules {
	return domain.AssetPairRules{
		Pair:         "XBTUSD",
		LotDecimals:  8,
		PairDecimals: 1,
		TickSize:     0.1,
		OrderMin:     0.0001,
		CostMin:      0.5,
	}
}

func TestNormalize_LimitOrder_RoundsVolumeAndPrice(t *testing.T) {
	rules := xbtusdRules()
	got, err := orders.Normalize(rules, orders.OrderLimit, 0.123456789, 50000.37, 0)

	require.NoError(t, err)
	assert.InDelta(t, 0.12345678, got.Volume, 1e-9)
	assert.InDelta(t, 50000.3, got.Price, 1e-9)
}

func TestNormalize_MarketOrder_NoPriceRounding(t *testing.T) {
	rules := xbtusdRules()
	got, err := orders.Normalize(rules, orders.OrderMarket, 0.01, 0, 50000.0)

	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Price)
	assert.InDelta(t, 0.01, got.Volume, 1e-9)
}

func TestNormalize_RejectsVolumeRoundingToZero(t *testing.T) {
	rules := xbtusdRules()
	rules.LotDecimals = 0
	_, err := orders.Normalize(rules, orders.OrderLimit, 0.5, 50000, 0)

	assert.True(t, errors.Is(err, domain.ErrOrderVolumeBelowMin))
}

func TestNormalize_RejectsVolumeBelowOrderMin(t *testing.T) {
	rules := xbtusdRules()
	_, err := orders.Normalize(rules, orders.OrderLimit, 0.00001, 50000, 0)

	assert.True(t, errors.Is(err, domain.ErrOrderVolumeBelowMin))
}

func TestNormalize_RejectsPriceRoundingToZero(t *testing.T) {
	rules := xbtusdRules()
	rules.TickSize = 0
	rules.PairDecimals = 0
	_, err := orders.Normalize(rules, orders.OrderLimit, 1.0, 0.04, 0)

	assert.True(t, errors.Is(err, domain.ErrPriceRoundsToZero))
}

func TestNormalize_RejectsCostBelowMinimum(t *testing.T) {
	rules := xbtusdRules()
	rules.CostMin = 1000
	_, err := orders.Normalize(rules, orders.OrderLimit, 0.001, 50000, 0)

	assert.True(t, errors.Is(err, domain.ErrOrderCostBelowMin))
}

func TestNormalize_MarketOrderUsesCurrentPriceForCostFloor(t *testing.T) {
	rules := xbtusdRules()
	rules.CostMin = 100
	_, err := orders.Normalize(rules, orders.OrderMarket, 0.01, 0, 50000)
	assert.NoError(t, err)

	_, err = orders.Normalize(rules, orders.OrderMarket, 0.001, 0, 50000)
	assert.True(t, errors.Is(err, domain.ErrOrderCostBelowMin))
}
