// Package strategy implements the tagged strategy family (§4.4): each
// concrete strategy consumes committed OHLC closes and emits buy/sell/hold,
// owning only its own internal memory — no exchange or DB access.
package strategy

// Kind names a concrete strategy. Strategy identity is an explicit enum
// with a single string table rather than derived from a type name, which
// the reference implementation did by mangling the strategy class name
// (lossy and inconsistent — e.g. some callers saw "SMACrossover" stay
// mixed-case). The table below is the single source of truth.
type Kind int

const (
	KindUnknown Kind = iota
	KindMeanReversion
	KindSMACrossover
	KindMACD
	KindBreakout
	KindGrid
)

var kindNames = map[Kind]string{
	KindMeanReversion: "mean_reversion",
	KindSMACrossover:  "sma_crossover",
	KindMACD:          "macd",
	KindBreakout:      "breakout",
	KindGrid:          "grid",
}

var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// String returns the canonical strategy name, matching regime.RecommendedStrategy's output.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a canonical strategy name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := namesToKind[name]
	return k, ok
}

// Signal is a strategy's verdict for the current tick.
type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}
