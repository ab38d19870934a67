// Package regime classifies a pair's current MarketState from an indicator
// snapshot (§4.3), caching the result per symbol for a short TTL so a
// CoinTrader re-running within the same window reuses the last
// classification rather than recomputing it.
package regime

import (
	"fmt"
	"sync"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/indicators"
	"github.com/rs/zerolog"
)

// Thresholds are MarketAnalyzer's configurable decision-tree cutoffs.
// Field names mirror spec.md §4.3's defaults.
type Thresholds struct {
	ADXStrong      float64
	ADXWeak        float64
	ChoppinessChoppy   float64
	ChoppinessTrending float64
	RangeTight     float64
	RangeModerate  float64
}

// DefaultThresholds matches spec.md §4.3's literal defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ADXStrong:          25,
		ADXWeak:            20,
		ChoppinessChoppy:   61.8,
		ChoppinessTrending: 38.2,
		RangeTight:         5,
		RangeModerate:      15,
	}
}

// Periods are the lookback windows each input indicator needs.
type Periods struct {
	ADXPeriod   int
	ATRPeriod   int
	ChopPeriod  int
	SlopePeriod int
	RangePeriod int
}

// DefaultPeriods matches the reference implementation's defaults (14-bar
// ADX/ATR/Choppiness/slope, 50-bar range).
func DefaultPeriods() Periods {
	return Periods{ADXPeriod: 14, ATRPeriod: 14, ChopPeriod: 14, SlopePeriod: 14, RangePeriod: 50}
}

// stateToStrategy is the canonical MarketState → strategy kind mapping
// consumed by the selector (§4.3).
var stateToStrategy = map[domain.MarketState]string{
	domain.StateStrongUptrend:    "sma_crossover",
	domain.StateStrongDowntrend:  "sma_crossover",
	domain.StateModerateTrend:    "macd",
	domain.StateRangeBound:       "mean_reversion",
	domain.StateChoppy:           "mean_reversion",
	domain.StateVolatileBreakout: "breakout",
	domain.StateLowVolatility:    "grid",
	domain.StateUnknown:          "mean_reversion",
}

// RecommendedStrategy returns the canonical strategy kind for state.
func RecommendedStrategy(state domain.MarketState) string {
	if kind, ok := stateToStrategy[state]; ok {
		return kind
	}
	return "mean_reversion"
}

type cacheEntry struct {
	condition domain.MarketCondition
	at        time.Time
}

// Analyzer classifies market regimes and caches results per symbol for
// cacheTTL — the teacher's MarketStateDetector cache shape (read-lock
// check staleness, recompute outside the lock, write-lock publish),
// adapted to a per-symbol map instead of a single global snapshot.
type Analyzer struct {
	thresholds Thresholds
	periods    Periods
	cacheTTL   time.Duration
	log        zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New builds an Analyzer with the given thresholds/periods/cache TTL.
func New(thresholds Thresholds, periods Periods, cacheTTL time.Duration, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		thresholds: thresholds,
		periods:    periods,
		cacheTTL:   cacheTTL,
		log:        log.With().Str("component", "market_analyzer").Logger(),
		cache:      make(map[string]cacheEntry),
	}
}

// RequiredDataPoints is the minimum committed-candle count the analyzer
// needs before it can classify anything.
func (a *Analyzer) RequiredDataPoints() int {
	n := a.periods.ADXPeriod * 2
	if a.periods.RangePeriod > n {
		n = a.periods.RangePeriod
	}
	return n
}

// Analyze returns the MarketCondition for symbol given its committed
// series, reusing the cached value if it's younger than cacheTTL.
func (a *Analyzer) Analyze(symbol string, series domain.OHLCSeries, now time.Time) domain.MarketCondition {
	a.mu.RLock()
	entry, ok := a.cache[symbol]
	fresh := ok && now.Sub(entry.at) < a.cacheTTL
	a.mu.RUnlock()

	if fresh {
		return entry.condition
	}

	condition := a.classify(series, now)

	a.mu.Lock()
	a.cache[symbol] = cacheEntry{condition: condition, at: now}
	a.mu.Unlock()

	return condition
}

func (a *Analyzer) classify(series domain.OHLCSeries, now time.Time) domain.MarketCondition {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	adxSeries := indicators.ADX(highs, lows, closes, a.periods.ADXPeriod)
	adx, adxOK := indicators.Last(adxSeries, a.periods.ADXPeriod*2)
	rangePct, rangeOK := indicators.RangePercent(closes, a.periods.RangePeriod)

	if !adxOK || !rangeOK {
		return domain.MarketCondition{
			State:       domain.StateUnknown,
			Confidence:  0,
			Timestamp:   now,
			Description: "insufficient data for classification",
		}
	}

	atrSeries := indicators.ATR(highs, lows, closes, a.periods.ATRPeriod)
	atr, _ := indicators.Last(atrSeries, a.periods.ATRPeriod)
	choppiness, _ := indicators.ChoppinessIndex(highs, lows, closes, a.periods.ChopPeriod)
	slope, _ := indicators.LinearRegressionSlope(closes, a.periods.SlopePeriod)

	t := a.thresholds
	var state domain.MarketState
	var confidence float64

	switch {
	case adx > t.ADXStrong:
		confidence = 0.8
		switch {
		case slope > 0:
			state = domain.StateStrongUptrend
		case slope < 0:
			state = domain.StateStrongDowntrend
		default:
			state = domain.StateModerateTrend
		}
	case adx < t.ADXWeak:
		if rangePct < t.RangeModerate {
			if rangePct < t.RangeTight {
				state, confidence = domain.StateLowVolatility, 0.8
			} else if choppiness < t.ChoppinessChoppy {
				state, confidence = domain.StateRangeBound, 0.75
			} else {
				state, confidence = domain.StateChoppy, 0.6
			}
		} else {
			if choppiness > t.ChoppinessChoppy {
				state, confidence = domain.StateChoppy, 0.7
			} else {
				state, confidence = domain.StateVolatileBreakout, 0.6
			}
		}
	default:
		if choppiness < t.ChoppinessTrending {
			state, confidence = domain.StateModerateTrend, 0.65
		} else {
			state, confidence = domain.StateRangeBound, 0.6
		}
	}

	condition := domain.MarketCondition{
		State:               state,
		Confidence:          confidence,
		Timestamp:           now,
		ADX:                 floatPtr(adx),
		ATR:                 floatPtr(atr),
		Choppiness:          floatPtr(choppiness),
		Slope:               floatPtr(slope),
		RangePercent:        floatPtr(rangePct),
		RecommendedStrategy: RecommendedStrategy(state),
		Description:         describe(state, adx, choppiness, rangePct),
	}
	return condition
}

func describe(state domain.MarketState, adx, choppiness, rangePct float64) string {
	switch state {
	case domain.StateStrongUptrend:
		return fmt.Sprintf("strong uptrend detected (ADX %.1f, positive momentum)", adx)
	case domain.StateStrongDowntrend:
		return fmt.Sprintf("strong downtrend detected (ADX %.1f, negative momentum)", adx)
	case domain.StateModerateTrend:
		return fmt.Sprintf("moderate trend (ADX %.1f, developing direction)", adx)
	case domain.StateRangeBound:
		return fmt.Sprintf("range-bound market (ADX %.1f, %.1f%% range)", adx, rangePct)
	case domain.StateVolatileBreakout:
		return fmt.Sprintf("volatile breakout condition (wide range %.1f%%)", rangePct)
	case domain.StateChoppy:
		return fmt.Sprintf("choppy market (choppiness %.1f, no clear direction)", choppiness)
	case domain.StateLowVolatility:
		return fmt.Sprintf("low volatility (%.1f%% range, tight consolidation)", rangePct)
	default:
		return "insufficient data for analysis"
	}
}

func floatPtr(v float64) *float64 { return &v }
