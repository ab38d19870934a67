// Package orders normalizes a proposed order's volume and price against an
// exchange's reported precision/minimum rules before it is ever sent over
// the wire (§4.7).
package orders

import (
	"fmt"
	"math"

	"github.com/c-rw/spicetrader-go/internal/domain"
)

// OrderType distinguishes a market order, which carries no limit price,
// from a limit order.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Normalized is a post-rounding order ready to submit. Price is zero for
// market orders.
type Normalized struct {
	Volume float64
	Price  float64
}

// Normalize rounds volume down to rules.LotDecimals and, for limit orders,
// floors price to rules.TickSize and then rules.PairDecimals. currentPrice
// is used to estimate cost against rules.CostMin when the order is a
// market order (no explicit price to check against).
//
// Returns a typed domain error wrapping ErrOrderValidation when the
// rounded volume is zero or below OrderMin, when a limit price rounds to
// zero, or when estimated cost is below CostMin.
func Normalize(rules domain.AssetPairRules, orderType OrderType, volume, price, currentPrice float64) (Normalized, error) {
	roundedVolume := floorToDecimals(volume, rules.LotDecimals)
	if roundedVolume <= 0 {
		return Normalized{}, fmt.Errorf("%w: %s", domain.ErrOrderVolumeBelowMin, "volume rounds to 0")
	}
	if rules.OrderMin > 0 && roundedVolume < rules.OrderMin {
		return Normalized{}, fmt.Errorf("%w: volume %g below ordermin %g", domain.ErrOrderVolumeBelowMin, roundedVolume, rules.OrderMin)
	}

	var roundedPrice float64
	priceForCost := currentPrice

	if orderType != OrderMarket {
		p := price
		if rules.TickSize > 0 {
			p = floorToTick(p, rules.TickSize)
		}
		roundedPrice = floorToDecimals(p, rules.PairDecimals)
		if roundedPrice <= 0 {
			return Normalized{}, fmt.Errorf("%w: price for volume %g", domain.ErrPriceRoundsToZero, roundedVolume)
		}
		priceForCost = roundedPrice
	}

	if rules.CostMin > 0 && priceForCost > 0 {
		cost := roundedVolume * priceForCost
		if cost < rules.CostMin {
			return Normalized{}, fmt.Errorf("%w: cost %g below costmin %g", domain.ErrOrderCostBelowMin, cost, rules.CostMin)
		}
	}

	return Normalized{Volume: roundedVolume, Price: roundedPrice}, nil
}

// floorToDecimals truncates v to decimals places without banker's-rounding
// surprises near the boundary (e.g. 1.0049999999 at 2 decimals stays 1.00,
// not 1.01).
func floorToDecimals(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Floor(v*scale+1e-9) / scale
}

// floorToTick floors v to the nearest lower multiple of tickSize.
func floorToTick(v, tickSize float64) float64 {
	if tickSize <= 0 {
		return v
	}
	return math.Floor(v/tickSize+1e-9) * tickSize
}
