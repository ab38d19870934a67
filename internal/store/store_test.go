package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trading.db")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenPositionAndGetOpenPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	id, err := s.OpenPosition(ctx, domain.Position{
		Symbol:       "XBTUSD",
		Strategy:     "mean_reversion",
		MarketState:  domain.StateRangeBound,
		PositionType: domain.PositionLong,
		EntryTime:    now,
		EntryPrice:   50000.0,
		EntryVolume:  0.01,
		EntryFee:     1.3,
		DryRun:       true,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	pos, ok, err := s.GetOpenPosition(ctx, "XBTUSD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, pos.ID)
	assert.Equal(t, "mean_reversion", pos.Strategy)
	assert.Equal(t, domain.PositionOpen, pos.Status)
	assert.InDelta(t, 50000.0, pos.EntryPrice, 1e-9)

	_, ok, err = s.GetOpenPosition(ctx, "ETHUSD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosePosition_ComputesNetPnLAndPercent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.OpenPosition(ctx, domain.Position{
		Symbol:       "XBTUSD",
		Strategy:     "mean_reversion",
		PositionType: domain.PositionLong,
		EntryTime:    time.Now().UTC(),
		EntryPrice:   50000.0,
		EntryVolume:  0.01,
		EntryFee:     1.3,
		DryRun:       true,
	})
	require.NoError(t, err)

	// gross = (50500-50000)*0.01 = 5.0; fees = 1.3+1.31=2.61; net=2.39
	err = s.ClosePosition(ctx, id, time.Now().UTC(), 50500.0, 0.01, 1.31)
	require.NoError(t, err)

	pos, ok, err := s.GetOpenPosition(ctx, "XBTUSD")
	require.NoError(t, err)
	assert.False(t, ok, "closed position should no longer be the open one")
	_ = pos

	var status string
	var netPnL, pnlPercent float64
	row := s.db.QueryRowContext(ctx, `SELECT status, net_pnl, pnl_percent FROM positions WHERE id = ?`, id)
	require.NoError(t, row.Scan(&status, &netPnL, &pnlPercent))
	assert.Equal(t, "closed", status)
	assert.InDelta(t, 2.39, netPnL, 1e-9)
	assert.InDelta(t, (2.39/500.0)*100, pnlPercent, 1e-6)
}

func TestClosePosition_UnknownIDErrors(t *testing.T) {
	s := newTestStore(t)
	err := s.ClosePosition(context.Background(), 99999, time.Now().UTC(), 1, 1, 0)
	assert.Error(t, err)
}

func TestRecordTrade_PersistsComputedValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.RecordTrade(ctx, domain.Trade{
		Timestamp:    time.Now().UTC(),
		Symbol:       "XBTUSD",
		Strategy:     "mean_reversion",
		TradeType:    domain.TradeEntry,
		PositionType: domain.PositionLong,
		Side:         domain.SideBuy,
		Price:        50000.0,
		Volume:       0.01,
		Fee:          1.3,
		DryRun:       true,
	})
	require.NoError(t, err)

	var value float64
	row := s.db.QueryRowContext(ctx, `SELECT value FROM trades WHERE id = ?`, id)
	require.NoError(t, row.Scan(&value))
	assert.InDelta(t, 500.0, value, 1e-9)
}

func TestRecordMarketConditionAndStrategySwitch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	adx := 28.5
	err := s.RecordMarketCondition(ctx, domain.MarketCondition{
		Pair:                "XBTUSD",
		Timestamp:           time.Now().UTC(),
		State:               domain.StateModerateTrend,
		ADX:                 &adx,
		Confidence:          0.7,
		RecommendedStrategy: "sma_crossover",
		ActiveStrategy:      "mean_reversion",
	})
	require.NoError(t, err)

	err = s.RecordStrategySwitch(ctx, domain.StrategySwitch{
		Timestamp:             time.Now().UTC(),
		Symbol:                "XBTUSD",
		FromStrategy:          "mean_reversion",
		ToStrategy:            "sma_crossover",
		Reason:                "trend confirmed",
		MarketState:           domain.StateModerateTrend,
		Confidence:            0.7,
		ConfirmationsReceived: 3,
		SwitchesToday:         1,
	})
	require.NoError(t, err)

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM strategy_switches WHERE symbol = ?`, "XBTUSD")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetDailyStats_AggregatesClosedPositionsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := s.OpenPosition(ctx, domain.Position{
		Symbol: "XBTUSD", Strategy: "mean_reversion", PositionType: domain.PositionLong,
		EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
	})
	require.NoError(t, err)
	require.NoError(t, s.ClosePosition(ctx, id, now, 110, 1, 0))

	// A second, still-open position must not count toward daily stats.
	_, err = s.OpenPosition(ctx, domain.Position{
		Symbol: "ETHUSD", Strategy: "mean_reversion", PositionType: domain.PositionLong,
		EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
	})
	require.NoError(t, err)

	stats, err := s.GetDailyStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 1, stats.WinningTrades)
	assert.InDelta(t, 10.0, stats.NetPnL, 1e-9)
	assert.Equal(t, []string{"XBTUSD"}, stats.CoinsTraded)
}

func TestGetStrategyPerformance_WinRateAndProfitFactor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	winID, err := s.OpenPosition(ctx, domain.Position{
		Symbol: "XBTUSD", Strategy: "sma_crossover", PositionType: domain.PositionLong,
		EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
	})
	require.NoError(t, err)
	require.NoError(t, s.ClosePosition(ctx, winID, now, 120, 1, 0)) // +20

	loseID, err := s.OpenPosition(ctx, domain.Position{
		Symbol: "XBTUSD", Strategy: "sma_crossover", PositionType: domain.PositionLong,
		EntryTime: now, EntryPrice: 100, EntryVolume: 1, DryRun: true,
	})
	require.NoError(t, err)
	require.NoError(t, s.ClosePosition(ctx, loseID, now, 90, 1, 0)) // -10

	perf, err := s.GetStrategyPerformance(ctx, "XBTUSD", "sma_crossover")
	require.NoError(t, err)
	assert.Equal(t, 2, perf.TotalTrades)
	assert.Equal(t, 1, perf.WinningTrades)
	assert.Equal(t, 1, perf.LosingTrades)
	assert.InDelta(t, 50.0, perf.WinRate, 1e-9)
	assert.InDelta(t, 2.0, perf.ProfitFactor, 1e-9) // avgWin=20, avgLoss=10
}
