// Package exchange defines the narrow transport contract the trading core
// consumes (§6). Concrete clients (Kraken's signed REST API, or a fake for
// tests) implement Client; the core never inspects HTTP.
package exchange

import (
	"context"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
)

// Side is the direction of an order request.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes market orders (no limit price) from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Ticker is one pair's last-trade/volume/high/low snapshot from a batched
// ticker fetch.
type Ticker struct {
	Pair   string
	Last   float64
	Volume float64
	High   float64
	Low    float64
}

// AddOrderResult is what the exchange hands back from placing an order.
// TxIDs is empty (not an error) when validate=true was requested.
type AddOrderResult struct {
	TxIDs []string
}

// Client is the ExchangeClient contract from §6. Every method is expected
// to enforce its own request timeout and retry policy; callers pass a
// context only to propagate cancellation, not to set deadlines.
type Client interface {
	// GetServerTime returns the exchange's clock, mostly for health checks.
	GetServerTime(ctx context.Context) (time.Time, error)

	// GetTradeBalance returns available equity in the quote currency
	// (e.g. ZUSD).
	GetTradeBalance(ctx context.Context, asset string) (float64, error)

	// GetTicker batch-fetches last/volume/high/low for every pair in one
	// call.
	GetTicker(ctx context.Context, pairs []string) (map[string]Ticker, error)

	// GetOHLC fetches committed candles for pair since the given
	// watermark (0 for "from the start of what the exchange retains").
	GetOHLC(ctx context.Context, pair string, intervalMinutes int, since int64) (domain.OHLCSeries, error)

	// GetAssetPairRules returns the exchange's precision/minimum rules for
	// pair. Callers are expected to cache the result.
	GetAssetPairRules(ctx context.Context, pair string) (domain.AssetPairRules, error)

	// AddOrder places (or, with validate=true, dry-validates) an order.
	AddOrder(ctx context.Context, pair string, side Side, orderType OrderType, volume float64, price *float64, validate bool) (AddOrderResult, error)

	// GetTradeActualFee polls the ledger for the real fee charged against
	// txid, up to deadline. Returns 0.0 without error if the deadline
	// elapses before the ledger entry appears.
	GetTradeActualFee(ctx context.Context, txID string, deadline time.Duration) (float64, error)
}
