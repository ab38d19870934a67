// Package coordinator implements the ExecutionCoordinator (§4.8): the
// single-threaded cooperative loop that drives every pair's CoinTrader off
// one batched ticker fetch, enforces the spot one-open-position invariant,
// sizes and places orders, and records the result. Grounded on
// original_source/src/multi_coin_bot.py's run_iteration.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/exchange"
	"github.com/c-rw/spicetrader-go/internal/ohlc"
	"github.com/c-rw/spicetrader-go/internal/orders"
	"github.com/c-rw/spicetrader-go/internal/portfolio"
	"github.com/c-rw/spicetrader-go/internal/store"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/c-rw/spicetrader-go/internal/trader"
	"github.com/c-rw/spicetrader-go/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// feeActualWaitDeadline bounds how long GetTradeActualFee polls the ledger
// for a live fill's real fee before giving up (§7).
const feeActualWaitDeadline = 10 * time.Second

// balanceLogInterval throttles the account-balance log line the same way
// the original throttles its own balance-refresh logging.
const balanceLogInterval = 60 * time.Second

// quoteAsset is the account currency every pair in this deployment quotes
// against. spec.md's Non-goals exclude multi-quote-currency support.
const quoteAsset = "ZUSD"

// Coordinator owns the per-tick control loop for every configured trading
// pair (§3 Ownership): it is the only component that calls AddOrder or
// writes to the store.
type Coordinator struct {
	cfg      *config.Config
	exchange exchange.Client
	cache    *ohlc.Cache
	store    *store.Store
	log      zerolog.Logger

	traders   map[string]*trader.CoinTrader
	positions map[string]strategy.PositionState

	accountBalance   float64
	lastBalanceLogAt time.Time
}

// New builds a Coordinator over one CoinTrader per configured pair.
func New(cfg *config.Config, ex exchange.Client, cache *ohlc.Cache, st *store.Store, traders map[string]*trader.CoinTrader, log zerolog.Logger) *Coordinator {
	positions := make(map[string]strategy.PositionState, len(traders))
	for symbol := range traders {
		positions[symbol] = strategy.PositionState{}
	}
	return &Coordinator{
		cfg:       cfg,
		exchange:  ex,
		cache:     cache,
		store:     st,
		traders:   traders,
		positions: positions,
		log:       log.With().Str("component", "coordinator").Logger(),
	}
}

// Run drives RunOnce on cfg.APICallDelay until ctx is cancelled, mirroring
// the original's while-loop-plus-sleep shape with a context-aware ticker
// in place of time.sleep.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.APICallDelay)
	defer ticker.Stop()

	for {
		if err := c.RunOnce(ctx, time.Now()); err != nil {
			c.log.Error().Err(err).Msg("iteration failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one full iteration: refresh balance, batch-fetch ticker
// and per-pair OHLC, tick every trader, then execute any resulting signals.
func (c *Coordinator) RunOnce(ctx context.Context, now time.Time) error {
	timer := utils.NewTimer("run_iteration", c.log)
	defer timer.Stop()

	pairs := c.cfg.TradingPairs
	if len(pairs) == 0 {
		return nil
	}

	if err := c.refreshBalance(ctx, now); err != nil {
		c.log.Warn().Err(err).Msg("failed to refresh account balance")
	}

	tickers, err := c.exchange.GetTicker(ctx, pairs)
	if err != nil {
		return fmt.Errorf("fetching batch ticker: %w", err)
	}

	type pendingSignal struct {
		symbol string
		signal strategy.Signal
		price  float64
	}
	var pending []pendingSignal

	for _, pair := range pairs {
		t, ok := c.traders[pair]
		if !ok {
			continue
		}

		ticker, ok := tickers[pair]
		if !ok {
			c.log.Warn().Str("symbol", pair).Msg("no ticker in batch response")
			continue
		}

		series, err := c.exchange.GetOHLC(ctx, pair, int(c.cfg.OHLCInterval/time.Minute), c.sinceWatermark(pair))
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", pair).Msg("failed to fetch OHLC")
			continue
		}
		c.cache.Update(pair, series.Candles, series.Since)

		committed, ok := c.cache.GetSeries(pair)
		if !ok {
			continue
		}
		latest, ok := committed.Latest()
		if !ok {
			continue
		}

		position := c.positions[pair]
		signal, switched := t.Tick(now, latest, position)
		state := t.State()

		if switched != nil {
			if err := c.store.RecordStrategySwitch(ctx, *switched); err != nil {
				c.log.Warn().Err(err).Str("symbol", pair).Msg("failed to record strategy switch")
			}
		}
		if state.CurrentCondition != nil && state.LastAnalysisAt.Equal(now) {
			if err := c.store.RecordMarketCondition(ctx, *state.CurrentCondition); err != nil {
				c.log.Warn().Err(err).Str("symbol", pair).Msg("failed to record market condition")
			}
		}

		if signal == strategy.Hold {
			continue
		}
		if signal == position.LastSignal {
			c.log.Info().Str("symbol", pair).Str("signal", signal.String()).Msg("signal already acted upon, skipping")
			continue
		}

		pending = append(pending, pendingSignal{symbol: pair, signal: signal, price: ticker.Last})
	}

	for _, p := range pending {
		if err := c.executeSignal(ctx, p.symbol, p.signal, p.price, now); err != nil {
			c.log.Warn().Err(err).Str("symbol", p.symbol).Msg("failed to execute signal")
		}
	}
	return nil
}

// executeSignal enforces the spot invariants, sizes and places the order,
// fetches the live fee, and records the entry/exit (§4.8 steps 4-9).
func (c *Coordinator) executeSignal(ctx context.Context, symbol string, signal strategy.Signal, currentPrice float64, now time.Time) error {
	openPosition, hasOpen, err := c.store.GetOpenPosition(ctx, symbol)
	if err != nil {
		return err
	}

	positionSize := c.positionSize(currentPrice)
	if positionSize <= 0 {
		return nil
	}

	if signal == strategy.Buy && hasOpen {
		c.log.Info().Str("symbol", symbol).Int64("position_id", openPosition.ID).Msg("skipping buy, already have open position")
		return nil
	}
	if signal == strategy.Sell && !hasOpen {
		c.log.Info().Str("symbol", symbol).Msg("skipping sell, no open position (spot mode)")
		return nil
	}
	if signal == strategy.Sell && hasOpen && strings.EqualFold(openPosition.Strategy, "macd") {
		if !c.macdExitAllowed(symbol, openPosition, currentPrice, now) {
			return nil
		}
	}

	side := exchange.SideBuy
	tradeType := domain.TradeEntry
	if signal == strategy.Sell {
		side = exchange.SideSell
		tradeType = domain.TradeExit
	}

	txID, err := c.placeOrder(ctx, symbol, side, positionSize, currentPrice)
	if err != nil {
		return err
	}

	actualFee := 0.0
	if !c.cfg.DryRun && txID != "" {
		actualFee, err = c.exchange.GetTradeActualFee(ctx, txID, feeActualWaitDeadline)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to fetch actual fee")
		}
	}

	t := c.traders[symbol]
	state := t.State()
	marketState := domain.StateUnknown
	if state.CurrentCondition != nil {
		marketState = state.CurrentCondition.State
	}

	position := c.positions[symbol]
	var positionID *int64
	if signal == strategy.Buy {
		id, err := c.store.OpenPosition(ctx, domain.Position{
			Symbol:       symbol,
			Strategy:     state.CurrentStrategy,
			MarketState:  marketState,
			PositionType: domain.PositionLong,
			EntryTime:    now,
			EntryPrice:   currentPrice,
			EntryVolume:  positionSize,
			EntryFee:     actualFee,
			DryRun:       c.cfg.DryRun,
		})
		if err != nil {
			return err
		}
		positionID = &id
		position.Long = true
		position.EntryPrice = currentPrice
		position.EntryTimeUnix = now.Unix()
	} else {
		if hasOpen {
			if err := c.store.ClosePosition(ctx, openPosition.ID, now, currentPrice, positionSize, actualFee); err != nil {
				return err
			}
			positionID = &openPosition.ID
		}
		position.Long = false
	}
	position.LastSignal = signal
	c.positions[symbol] = position

	if _, err := c.store.RecordTrade(ctx, domain.Trade{
		Timestamp:    now,
		Symbol:       symbol,
		Strategy:     state.CurrentStrategy,
		MarketState:  marketState,
		TradeType:    tradeType,
		PositionType: domain.PositionLong,
		Side:         domain.Side(side),
		Price:        currentPrice,
		Volume:       positionSize,
		Value:        currentPrice * positionSize,
		Fee:          actualFee,
		FeeCurrency:  "USD",
		PositionID:   positionID,
		TxID:         txID,
		DryRun:       c.cfg.DryRun,
	}); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to record trade")
	}

	c.log.Info().Str("symbol", symbol).Str("signal", signal.String()).Float64("size", positionSize).Float64("price", currentPrice).Msg("signal executed")
	return nil
}

// macdExitAllowed implements the MACD-only exit gate: profitable exits must
// clear both a minimum hold time and a minimum net-of-fees profit target;
// losing exits are always allowed through immediately so the strategy can
// still cut a loss.
func (c *Coordinator) macdExitAllowed(symbol string, pos domain.Position, currentPrice float64, now time.Time) bool {
	holdSeconds := now.Sub(pos.EntryTime).Seconds()
	grossProfitPct := (currentPrice - pos.EntryPrice) / pos.EntryPrice
	netProfitPct := grossProfitPct - (2.0 * c.cfg.TakerFee)

	if netProfitPct <= 0 {
		return true
	}
	if holdSeconds < c.cfg.MinHoldTime.Seconds() {
		c.log.Info().Str("symbol", symbol).Float64("hold_seconds", holdSeconds).Dur("min_hold_time", c.cfg.MinHoldTime).Msg("macd sell gated: hold time not met")
		return false
	}
	if netProfitPct < c.cfg.MinProfitTarget {
		c.log.Info().Str("symbol", symbol).Float64("net_profit_pct", netProfitPct).Float64("min_profit_target", c.cfg.MinProfitTarget).Msg("macd sell gated: profit target not met")
		return false
	}
	return true
}

// positionSize sizes a new entry in base-currency units. In
// equal_split_quote_allocation mode (the configured default) it is capped
// by both PortfolioSizer's even split and the symbol's own MaxPerCoin
// budget. Any other mode falls back to percentage-based sizing against
// MaxTotalExposure; note that mode never actually decrements its own
// remaining-exposure budget as positions open (ported as-is from
// multi_coin_bot.py, where total_exposure is initialized to 0 and never
// updated — §Open Question decisions).
func (c *Coordinator) positionSize(currentPrice float64) float64 {
	if currentPrice <= 0 {
		return 0
	}
	maxCoinValue := (c.accountBalance * c.cfg.MaxPerCoin) / 100

	var positionValue float64
	switch c.cfg.PositionSizingMode {
	case "equal_split_quote_allocation", "equal", "equal_split", "per_coin", "dynamic":
		perCoinValue := portfolio.EqualSplitQuoteAllocation(c.accountBalance, len(c.cfg.TradingPairs), c.cfg.FeeBufferPct, c.cfg.MaxTotalExposure)
		positionValue = math.Min(maxCoinValue, perCoinValue)
	default:
		remainingExposure := c.cfg.MaxTotalExposure
		availablePct := math.Min(c.cfg.MaxPerCoin, remainingExposure)
		availableValue := (c.accountBalance * availablePct) / 100
		positionValue = math.Min(maxCoinValue, availableValue)
	}

	return positionValue / currentPrice
}

// placeOrder submits a market order, or logs and no-ops under DryRun.
// Returns the exchange's transaction id, empty for dry runs or validate
// responses.
func (c *Coordinator) placeOrder(ctx context.Context, symbol string, side exchange.Side, size, currentPrice float64) (string, error) {
	correlationID := uuid.New().String()
	log := c.log.With().Str("correlation_id", correlationID).Logger()

	if c.cfg.DryRun {
		log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("size", size).Float64("price", currentPrice).Msg("dry run order")
		return "", nil
	}

	rules, err := c.exchange.GetAssetPairRules(ctx, symbol)
	if err != nil {
		return "", err
	}
	normalized, err := orders.Normalize(rules, orders.OrderMarket, size, 0, currentPrice)
	if err != nil {
		return "", err
	}

	log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("volume", normalized.Volume).Msg("submitting order")
	result, err := c.exchange.AddOrder(ctx, symbol, side, exchange.OrderTypeMarket, normalized.Volume, nil, false)
	if err != nil {
		log.Error().Err(err).Msg("order submission failed")
		return "", err
	}
	if len(result.TxIDs) == 0 {
		return "", nil
	}
	log.Info().Str("txid", result.TxIDs[0]).Msg("order accepted")
	return result.TxIDs[0], nil
}

func (c *Coordinator) refreshBalance(ctx context.Context, now time.Time) error {
	balance, err := c.exchange.GetTradeBalance(ctx, quoteAsset)
	if err != nil {
		return err
	}
	c.accountBalance = balance

	if c.lastBalanceLogAt.IsZero() || now.Sub(c.lastBalanceLogAt) >= balanceLogInterval {
		c.log.Info().Float64("balance", balance).Msg("account balance refreshed")
		c.lastBalanceLogAt = now
	}
	return nil
}

func (c *Coordinator) sinceWatermark(pair string) int64 {
	if series, ok := c.cache.GetSeries(pair); ok {
		return series.Since
	}
	return 0
}
