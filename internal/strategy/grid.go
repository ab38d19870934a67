package strategy

import (
	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
)

// Grid trades tight, low-volatility ranges: it lays symmetric buy/sell
// levels at multiples of a fixed spacing around the first stable price it
// sees, fires when price touches an unfilled level, and re-centers
// whenever price leaves the [lower, upper] band.
type Grid struct {
	cfg config.GridConfig

	centered   bool
	center     float64
	buyLevels  []float64
	sellLevels []float64
	filledBuy  map[float64]bool
	filledSell map[float64]bool
	lower      float64
	upper      float64
}

func NewGrid(cfg config.GridConfig) *Grid {
	return &Grid{cfg: cfg}
}

func (g *Grid) Kind() Kind { return KindGrid }

func (g *Grid) Analyze(series domain.OHLCSeries, ctx Context) Signal {
	closes := series.Closes()
	if len(closes) < 10 {
		return Hold
	}
	currentPrice := closes[len(closes)-1]

	if !g.centered {
		g.initGrid(currentPrice)
		return Hold
	}

	if currentPrice > g.upper || currentPrice < g.lower {
		g.initGrid(currentPrice)
		return Hold
	}

	if level, ok := nearestBelowFilled(currentPrice, g.buyLevels, g.filledBuy); ok {
		if absF(currentPrice-level)/level < 0.001 {
			g.filledBuy[level] = true
			return Buy
		}
	}

	if level, ok := nearestAboveUnfilled(currentPrice, g.sellLevels, g.filledSell); ok {
		if absF(currentPrice-level)/level < 0.001 {
			g.filledSell[level] = true
			return Sell
		}
	}

	return Hold
}

func (g *Grid) initGrid(center float64) {
	g.center = center
	g.centered = true
	g.buyLevels = nil
	g.sellLevels = nil
	g.filledBuy = make(map[float64]bool)
	g.filledSell = make(map[float64]bool)

	half := g.cfg.GridLevels / 2
	spacing := g.cfg.GridSpacingPct / 100

	lower := center
	upper := center
	for i := 1; i <= half; i++ {
		buyLevel := center * (1 - spacing*float64(i))
		sellLevel := center * (1 + spacing*float64(i))
		g.buyLevels = append(g.buyLevels, buyLevel)
		g.sellLevels = append(g.sellLevels, sellLevel)
		if buyLevel < lower {
			lower = buyLevel
		}
		if sellLevel > upper {
			upper = sellLevel
		}
	}
	g.lower, g.upper = lower, upper
}

func (g *Grid) Reset() {
	g.centered = false
	g.buyLevels, g.sellLevels = nil, nil
	g.filledBuy, g.filledSell = nil, nil
}

func nearestBelowFilled(price float64, levels []float64, filled map[float64]bool) (float64, bool) {
	found := false
	var best float64
	for _, l := range levels {
		if l < price && !filled[l] && (!found || l > best) {
			best, found = l, true
		}
	}
	return best, found
}

func nearestAboveUnfilled(price float64, levels []float64, filled map[float64]bool) (float64, bool) {
	found := false
	var best float64
	for _, l := range levels {
		if l > price && !filled[l] && (!found || l < best) {
			best, found = l, true
		}
	}
	return best, found
}
