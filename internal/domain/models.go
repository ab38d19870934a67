// Package domain holds the shared data types that flow through the trading
// engine's pipeline: candles in, positions and trades out.
package domain

import "time"

// MarketState is the classification MarketAnalyzer assigns to a pair on
// each analysis pass.
type MarketState string

const (
	StateStrongUptrend    MarketState = "strong_uptrend"
	StateStrongDowntrend  MarketState = "strong_downtrend"
	StateModerateTrend    MarketState = "moderate_trend"
	StateRangeBound       MarketState = "range_bound"
	StateVolatileBreakout MarketState = "volatile_breakout"
	StateChoppy           MarketState = "choppy"
	StateLowVolatility    MarketState = "low_volatility"
	StateUnknown          MarketState = "unknown"
)

// Candle is a single committed OHLC bar for one pair/interval.
type Candle struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	VWAP   float64
	Volume float64
	Count  int
}

// OHLCSeries is a time-ordered, oldest-first slice of committed candles for
// one pair, plus the exchange's `since` watermark.
type OHLCSeries struct {
	Pair    string
	Candles []Candle
	Since   int64
}

// Latest returns the most recent committed candle, or ok=false if the
// series is empty.
func (s OHLCSeries) Latest() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes returns the close prices of the series, oldest first.
func (s OHLCSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices of the series, oldest first.
func (s OHLCSeries) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices of the series, oldest first.
func (s OHLCSeries) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volumes of the series, oldest first.
func (s OHLCSeries) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// MarketCondition is a single snapshot persisted to the market_conditions
// table after each MarketAnalyzer pass.
type MarketCondition struct {
	ID                  int64
	Pair                string
	Timestamp           time.Time
	State               MarketState
	ADX                 *float64
	ATR                 *float64
	RangePercent        *float64
	Choppiness          *float64
	Slope               *float64
	Confidence          float64
	Price               *float64
	Volume              *float64
	RecommendedStrategy string
	ActiveStrategy      string
	Description         string
}

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeType distinguishes a position-opening fill from a position-closing
// one.
type TradeType string

const (
	TradeEntry TradeType = "entry"
	TradeExit  TradeType = "exit"
)

// PositionType is always "long" in spot mode — spec.md's Non-goals exclude
// margin/short positions — but the field is carried through so the P&L sign
// convention stays explicit rather than assumed.
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// PositionStatus tracks a position's lifecycle.
type PositionStatus string

const (
	PositionOpen      PositionStatus = "open"
	PositionClosed    PositionStatus = "closed"
	PositionCancelled PositionStatus = "cancelled"
)

// Position is a persistent holding; spot mode allows at most one open
// position per symbol. Once closed, its P&L fields are fixed.
type Position struct {
	ID           int64
	Symbol       string
	Strategy     string
	MarketState  MarketState
	PositionType PositionType
	EntryTime    time.Time
	EntryPrice   float64
	EntryVolume  float64
	EntryFee     float64
	ExitTime     *time.Time
	ExitPrice    *float64
	ExitVolume   *float64
	ExitFee      *float64
	GrossPnL     *float64
	TotalFees    *float64
	NetPnL       *float64
	PnLPercent   *float64
	Status       PositionStatus
	DryRun       bool
	ClosedTime   *time.Time
}

// Trade is one immutable fill record — entry or exit — independent of the
// position's own lifecycle bookkeeping.
type Trade struct {
	ID           int64
	Timestamp    time.Time
	Symbol       string
	Strategy     string
	MarketState  MarketState
	TradeType    TradeType
	PositionType PositionType
	Side         Side
	Price        float64
	Volume       float64
	Value        float64
	Fee          float64
	FeeCurrency  string
	PositionID   *int64
	TxID         string
	DryRun       bool
	Notes        string
}

// StrategySwitch records one confirmed strategy-selector transition for a
// symbol.
type StrategySwitch struct {
	ID                    int64
	Timestamp             time.Time
	Symbol                string
	FromStrategy          string
	ToStrategy            string
	Reason                string
	MarketState           MarketState
	Confidence            float64
	ConfirmationsReceived int
	SwitchesToday         int
	TradesWithOldStrategy *int
	PnLWithOldStrategy    *float64
}

// AssetPairRules are the exchange-reported precision/minimum constraints
// OrderNormalizer enforces before any order is placed. Cached by the
// caller; invalidated only on explicit refresh.
type AssetPairRules struct {
	Pair         string
	LotDecimals  int
	PairDecimals int
	TickSize     float64
	OrderMin     float64
	CostMin      float64
}

// CoinTraderState is the in-memory, per-symbol state a CoinTrader carries
// across ticks: ring buffers, the active strategy, and the confirmation/
// cooldown bookkeeping for strategy switching. Lifetime is the process
// lifetime.
type CoinTraderState struct {
	Symbol              string
	Closes              []float64
	Highs               []float64
	Lows                []float64
	CurrentStrategy     string
	CurrentCondition    *MarketCondition
	LastAnalysisAt      time.Time
	LastSwitchAt        time.Time
	PendingState        MarketState
	PendingConfirmations int
	SwitchesToday       int
	CurrentDay          time.Time
	OpenPositionID      *int64
	EntryPrice          float64
	EntryVolume         float64
	EntryFee            float64
}
