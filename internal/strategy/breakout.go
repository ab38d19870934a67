package strategy

import (
	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/indicators"
)

// Breakout trades volatile markets: it maintains clustered support and
// resistance levels and fires when price clears one of them with a volume
// surge and elevated ATR. With retest confirmation enabled, the first pass
// only arms the breakout; the signal fires once price returns within 2% of
// the broken level.
type Breakout struct {
	cfg config.BreakoutConfig

	lastResistance    float64
	hasResistance     bool
	lastSupport       float64
	hasSupport        bool
	breakoutConfirmed bool
	breakoutBullish   bool
}

func NewBreakout(cfg config.BreakoutConfig) *Breakout {
	return &Breakout{cfg: cfg}
}

func (b *Breakout) Kind() Kind { return KindBreakout }

func (b *Breakout) Analyze(series domain.OHLCSeries, ctx Context) Signal {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	required := b.cfg.LookbackPeriod + 1
	if b.cfg.ATRPeriod+1 > required {
		required = b.cfg.ATRPeriod + 1
	}
	if 21 > required {
		required = 21
	}
	if len(closes) < required {
		return Hold
	}

	currentPrice := closes[len(closes)-1]

	supportLevels, resistanceLevels := indicators.SupportResistance(closes, 10, 0.02)
	if len(supportLevels) == 0 || len(resistanceLevels) == 0 {
		return Hold
	}

	b.hasResistance, b.lastResistance = nearestAbove(resistanceLevels, currentPrice)
	b.hasSupport, b.lastSupport = nearestBelow(supportLevels, currentPrice)

	atrSeries := indicators.ATR(highs, lows, closes, b.cfg.ATRPeriod)
	atr, atrOK := indicators.Last(atrSeries, b.cfg.ATRPeriod+1)
	if !atrOK {
		return Hold
	}
	atrHigh := b.atrIsHigh(atrSeries, atr)

	volumeSurge := indicators.VolumeSurge(volumes, 20, b.cfg.VolumeThreshold)

	if b.hasResistance && currentPrice > b.lastResistance {
		if volumeSurge && atrHigh {
			if !b.cfg.RequireRetest || b.breakoutConfirmed {
				b.breakoutConfirmed = false
				return Buy
			}
			b.breakoutConfirmed = true
			b.breakoutBullish = true
			return Hold
		}
	} else if b.hasSupport && currentPrice < b.lastSupport {
		if volumeSurge && atrHigh {
			if !b.cfg.RequireRetest || b.breakoutConfirmed {
				b.breakoutConfirmed = false
				return Sell
			}
			b.breakoutConfirmed = true
			b.breakoutBullish = false
			return Hold
		}
	}

	if b.breakoutConfirmed {
		if b.breakoutBullish && b.hasResistance {
			if absF(currentPrice-b.lastResistance)/b.lastResistance < 0.02 {
				b.breakoutConfirmed = false
				return Buy
			}
		} else if !b.breakoutBullish && b.hasSupport {
			if absF(currentPrice-b.lastSupport)/b.lastSupport < 0.02 {
				b.breakoutConfirmed = false
				return Sell
			}
		}
	}

	return Hold
}

// atrIsHigh compares the latest ATR reading to the mean of the preceding
// 20 (or however many are available) computed ATR values in the series.
func (b *Breakout) atrIsHigh(atrSeries []float64, current float64) bool {
	lookback := 20
	start := len(atrSeries) - 1 - lookback
	if start < b.cfg.ATRPeriod {
		start = b.cfg.ATRPeriod
	}
	window := atrSeries[start : len(atrSeries)-1]
	if len(window) < 2 {
		return false
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(len(window))
	return avg > 0 && current >= avg
}

func (b *Breakout) Reset() {
	b.hasResistance, b.hasSupport = false, false
	b.breakoutConfirmed = false
	b.breakoutBullish = false
}

func nearestAbove(levels []float64, price float64) (bool, float64) {
	found := false
	var best float64
	for _, l := range levels {
		if l > price && (!found || l < best) {
			best, found = l, true
		}
	}
	return found, best
}

func nearestBelow(levels []float64, price float64) (bool, float64) {
	found := false
	var best float64
	for _, l := range levels {
		if l < price && (!found || l > best) {
			best, found = l, true
		}
	}
	return found, best
}
