// Package trader implements the per-instrument controller (§4.5): it owns
// one symbol's bounded price history, drives MarketAnalyzer re-classification
// on a cadence, and gates strategy switches behind a confirmation counter
// and a daily/cooldown budget before handing off to the active Strategy.
package trader

import (
	"time"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/regime"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/rs/zerolog"
)

const ringMaxLen = 200

// CoinTrader is the adaptive controller for a single trading pair.
type CoinTrader struct {
	symbol   string
	analyzer *regime.Analyzer
	selector *strategy.Selector
	log      zerolog.Logger

	reanalysisInterval    time.Duration
	switchCooldown        time.Duration
	confirmationsRequired int
	maxSwitchesPerDay     int

	state   domain.CoinTraderState
	current strategy.Strategy
}

// New builds a CoinTrader for symbol against cfg's switching parameters.
func New(symbol string, cfg *config.Config, analyzer *regime.Analyzer, selector *strategy.Selector, log zerolog.Logger) *CoinTrader {
	return &CoinTrader{
		symbol:                symbol,
		analyzer:              analyzer,
		selector:              selector,
		log:                   log.With().Str("component", "coin_trader").Str("symbol", symbol).Logger(),
		reanalysisInterval:    cfg.ReanalysisInterval,
		switchCooldown:        cfg.SwitchCooldown,
		confirmationsRequired: cfg.ConfirmationsRequired,
		maxSwitchesPerDay:     cfg.MaxSwitchesPerDay,
		state:                 domain.CoinTraderState{Symbol: symbol},
	}
}

// State returns a copy of the controller's current bookkeeping, e.g. for a
// dashboard snapshot or warm-restart dump.
func (t *CoinTrader) State() domain.CoinTraderState {
	return t.state
}

// Tick appends candle to the ring buffers, performs regime re-classification
// and confirmation-gated switching per §4.5 steps 1-8, then runs the active
// strategy and returns its signal. switched is non-nil exactly when step 8
// fired this tick.
func (t *CoinTrader) Tick(now time.Time, candle domain.Candle, position strategy.PositionState) (strategy.Signal, *domain.StrategySwitch) {
	t.appendCandle(candle)

	required := t.analyzer.RequiredDataPoints()
	if len(t.state.Closes) < required {
		return strategy.Hold, nil
	}

	var switched *domain.StrategySwitch
	var initialOnly bool

	if t.state.LastAnalysisAt.IsZero() || now.Sub(t.state.LastAnalysisAt) >= t.reanalysisInterval {
		condition := t.analyzer.Analyze(t.symbol, t.series(), now)
		t.state.LastAnalysisAt = now
		switched, initialOnly = t.applyCondition(condition, now)
	}

	if initialOnly || t.current == nil {
		return strategy.Hold, switched
	}

	ctx := strategy.Context{
		Symbol:      t.symbol,
		NowUnix:     now.Unix(),
		MarketState: t.conditionState(),
		Position:    position,
	}
	signal := t.current.Analyze(t.series(), ctx)
	return signal, switched
}

// applyCondition runs §4.5 steps 5-8 against an already-computed
// MarketCondition: first-strategy assignment, confirmation counting, and
// the gated switch itself. initialOnly is true when this call merely set
// the first strategy (step 5), in which case the caller must emit null
// for this tick rather than running the new strategy against cold state.
func (t *CoinTrader) applyCondition(condition domain.MarketCondition, now time.Time) (switched *domain.StrategySwitch, initialOnly bool) {
	t.state.CurrentCondition = &condition
	recommended := condition.RecommendedStrategy

	if t.current == nil {
		kind, _ := strategy.ParseKind(recommended)
		t.current = t.selector.Get(kind)
		t.state.CurrentStrategy = recommended
		return nil, true
	}

	if recommended == t.state.CurrentStrategy {
		t.state.PendingState = ""
		t.state.PendingConfirmations = 0
		return nil, false
	}

	if t.state.PendingState == condition.State {
		t.state.PendingConfirmations++
	} else {
		t.state.PendingState = condition.State
		t.state.PendingConfirmations = 1
	}

	if t.state.PendingConfirmations >= t.confirmationsRequired && t.canSwitch(now) {
		switched = t.switchStrategy(condition, recommended, now)
	}
	return switched, false
}

func (t *CoinTrader) conditionState() domain.MarketState {
	if t.state.CurrentCondition == nil {
		return domain.StateUnknown
	}
	return t.state.CurrentCondition.State
}

func (t *CoinTrader) canSwitch(now time.Time) bool {
	today := localMidnight(now)
	if t.state.CurrentDay.IsZero() || !t.state.CurrentDay.Equal(today) {
		t.state.CurrentDay = today
		t.state.SwitchesToday = 0
	}

	if t.state.SwitchesToday >= t.maxSwitchesPerDay {
		return false
	}

	if t.state.LastSwitchAt.IsZero() {
		return true
	}

	return now.Sub(t.state.LastSwitchAt) >= t.switchCooldown
}

func (t *CoinTrader) switchStrategy(condition domain.MarketCondition, recommended string, now time.Time) *domain.StrategySwitch {
	from := t.state.CurrentStrategy

	if t.current != nil {
		t.current.Reset()
	}

	kind, _ := strategy.ParseKind(recommended)
	t.current = t.selector.Get(kind)

	t.state.CurrentStrategy = recommended
	t.state.LastSwitchAt = now
	t.state.SwitchesToday++
	t.state.PendingState = ""
	t.state.PendingConfirmations = 0

	t.log.Info().Str("from", from).Str("to", recommended).Msg("strategy switch")

	return &domain.StrategySwitch{
		Timestamp:             now,
		Symbol:                t.symbol,
		FromStrategy:          from,
		ToStrategy:            recommended,
		Reason:                condition.Description,
		MarketState:           condition.State,
		Confidence:            condition.Confidence,
		ConfirmationsReceived: t.confirmationsRequired,
		SwitchesToday:         t.state.SwitchesToday,
	}
}

func (t *CoinTrader) appendCandle(c domain.Candle) {
	t.state.Closes = appendBounded(t.state.Closes, c.Close, ringMaxLen)
	t.state.Highs = appendBounded(t.state.Highs, c.High, ringMaxLen)
	t.state.Lows = appendBounded(t.state.Lows, c.Low, ringMaxLen)
}

func appendBounded(xs []float64, v float64, maxLen int) []float64 {
	xs = append(xs, v)
	if over := len(xs) - maxLen; over > 0 {
		xs = append([]float64(nil), xs[over:]...)
	}
	return xs
}

// localMidnight returns the start of now's calendar day on the local wall
// clock, so the daily switch-count rolls over at local midnight rather
// than UTC midnight.
func localMidnight(now time.Time) time.Time {
	y, m, d := now.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func (t *CoinTrader) series() domain.OHLCSeries {
	candles := make([]domain.Candle, len(t.state.Closes))
	for i := range candles {
		candles[i] = domain.Candle{Close: t.state.Closes[i], High: t.state.Highs[i], Low: t.state.Lows[i]}
	}
	return domain.OHLCSeries{Pair: t.symbol, Candles: candles}
}
