package strategy

import (
	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/indicators"
	"github.com/rs/zerolog"
)

// MeanReversion trades range-bound/choppy markets: buy near support when
// oversold and below the lower Bollinger band, sell near resistance when
// overbought and above the upper band. Fibonacci proximity relaxes the RSI
// gate by 5 points on each side; a separate 2%-profit cut exits early on
// RSI/mid-band confirmation regardless of the resistance zone.
type MeanReversion struct {
	cfg    config.MeanReversionConfig
	symbol string
	log    zerolog.Logger

	supportLevel    float64
	resistanceLevel float64
	supportZone     float64
	resistanceZone  float64
	breakoutLower   float64
	breakoutUpper   float64

	entryPrice    float64
	hasEntryPrice bool
	position      bool
}

// NewMeanReversion builds a MeanReversion instance for symbol, seeding
// support/resistance from per-coin defaults (refined later by auto-detect
// once enough history accumulates).
func NewMeanReversion(symbol string, cfg config.MeanReversionConfig, log zerolog.Logger) *MeanReversion {
	support, resistance, lower, upper := defaultRangeFor(symbol)
	return &MeanReversion{
		cfg:             cfg,
		symbol:          symbol,
		log:             log.With().Str("strategy", "mean_reversion").Str("symbol", symbol).Logger(),
		supportLevel:    support,
		resistanceLevel: resistance,
		supportZone:     support * cfg.SupportZonePct,
		resistanceZone:  resistance * cfg.ResistanceZonePct,
		breakoutLower:   lower,
		breakoutUpper:   upper,
	}
}

func (m *MeanReversion) Kind() Kind { return KindMeanReversion }

func (m *MeanReversion) Analyze(series domain.OHLCSeries, ctx Context) Signal {
	m.position = ctx.Position.Long

	closes := series.Closes()
	required := m.cfg.RSIPeriod
	if m.cfg.BBPeriod > required {
		required = m.cfg.BBPeriod
	}
	if len(closes) < required+1 {
		return Hold
	}

	currentPrice := closes[len(closes)-1]

	rsi, rsiOK := indicators.Last(indicators.RSI(closes, m.cfg.RSIPeriod), m.cfg.RSIPeriod+1)
	upper, middle, lower := indicators.BollingerBands(closes, m.cfg.BBPeriod, m.cfg.BBStdDev)
	upperBB, upperOK := indicators.Last(upper, m.cfg.BBPeriod)
	middleBB, middleOK := indicators.Last(middle, m.cfg.BBPeriod)
	lowerBB, lowerOK := indicators.Last(lower, m.cfg.BBPeriod)
	if !rsiOK || !upperOK || !middleOK || !lowerOK {
		return Hold
	}

	if m.cfg.AutoDetectLevels && len(closes) >= 50 {
		m.updateSupportResistance(closes)
	}

	fibStrength := 1.0
	if m.cfg.UseFibonacci && len(closes) >= m.cfg.FibLookbackPeriod {
		if high, low, ok := indicators.SwingHighLow(closes, m.cfg.FibLookbackPeriod); ok {
			levels := indicators.FibonacciRetracement(high, low)
			fibStrength = indicators.FibonacciSignalStrength(currentPrice, levels,
				[]indicators.FibLevel{indicators.Fib382, indicators.Fib500, indicators.Fib618}, m.cfg.FibTolerancePct)
		}
	}

	// Range-break: signal held back, caller should consider switching strategy.
	if currentPrice < m.breakoutLower || currentPrice > m.breakoutUpper {
		m.log.Warn().Float64("price", currentPrice).Msg("mean reversion range broken")
		return Hold
	}

	inSupportZone := currentPrice >= m.supportLevel-m.supportZone && currentPrice <= m.supportLevel+m.supportZone
	inResistanceZone := currentPrice >= m.resistanceLevel-m.resistanceZone && currentPrice <= m.resistanceLevel+m.resistanceZone

	rsiBuyThreshold := m.cfg.RSIOversold
	if fibStrength > 1.15 {
		rsiBuyThreshold += 5
	}

	if inSupportZone && rsi < rsiBuyThreshold && currentPrice < lowerBB && !m.position {
		m.entryPrice = currentPrice
		m.hasEntryPrice = true
		return Buy
	}

	// Profit-cut exit: independent of the resistance-zone sell path below.
	if m.position && m.hasEntryPrice {
		profitPct := (currentPrice - m.entryPrice) / m.entryPrice
		if profitPct >= m.cfg.ProfitCutPercent && rsi > 50 && currentPrice > middleBB {
			m.hasEntryPrice = false
			return Sell
		}
	}

	rsiSellThreshold := m.cfg.RSIOverbought
	if fibStrength > 1.15 {
		rsiSellThreshold -= 5
	}

	if inResistanceZone && rsi > rsiSellThreshold && currentPrice > upperBB && m.position {
		if m.hasEntryPrice {
			profitPct := (currentPrice - m.entryPrice) / m.entryPrice
			if profitPct < m.cfg.MinProfitTarget {
				return Hold
			}
		}
		m.hasEntryPrice = false
		return Sell
	}

	return Hold
}

func (m *MeanReversion) updateSupportResistance(closes []float64) {
	support, resistance := indicators.SupportResistance(closes, 10, 0.02)
	if len(support) > 0 {
		if newSupport := maxSlice(support); absF(newSupport-m.supportLevel) > 1000 {
			m.supportLevel = newSupport
		}
	}
	if len(resistance) > 0 {
		if newResistance := minSlice(resistance); absF(newResistance-m.resistanceLevel) > 1000 {
			m.resistanceLevel = newResistance
		}
	}
}

func (m *MeanReversion) Reset() {
	m.entryPrice = 0
	m.hasEntryPrice = false
	m.position = false
}

func maxSlice(xs []float64) float64 {
	out := xs[0]
	for _, x := range xs[1:] {
		if x > out {
			out = x
		}
	}
	return out
}

func minSlice(xs []float64) float64 {
	out := xs[0]
	for _, x := range xs[1:] {
		if x < out {
			out = x
		}
	}
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
