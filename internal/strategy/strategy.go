package strategy

import "github.com/c-rw/spicetrader-go/internal/domain"

// PositionState is the per-strategy-instance memory spec.md §4.4 allows:
// position side, the last emitted signal, and entry bookkeeping. Strategies
// never read or write exchange/DB state directly — the CoinTrader updates
// this after every fill.
type PositionState struct {
	Long        bool
	LastSignal  Signal
	EntryPrice  float64
	EntryTimeUnix int64
	FilledLevels map[float64]bool
}

// Context is everything a strategy needs beyond the closes/highs/lows
// series itself to decide a signal: current time, current regime, and its
// own position bookkeeping (set by the CoinTrader before each analyze call).
type Context struct {
	Symbol      string
	NowUnix     int64
	MarketState domain.MarketState
	Position    PositionState
}

// Strategy is the shared contract every concrete strategy satisfies (§4.4).
// Series is the committed OHLC history (oldest first); implementations
// return Hold when they don't have enough data yet.
type Strategy interface {
	Kind() Kind
	Analyze(series domain.OHLCSeries, ctx Context) Signal
	Reset()
}
