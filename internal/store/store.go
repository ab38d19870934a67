// Package store persists trades, positions, market conditions, and
// strategy switches to SQLite (§4.9/§6). It is the only package that
// issues SQL against the trading schema; everything else talks to it
// through typed domain values.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/c-rw/spicetrader-go/internal/database"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/rs/zerolog"
)

const timeLayout = time.RFC3339Nano

// Store wraps a trading-profile database connection.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// Open connects to (and migrates) the trading database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileLedger,
		Name:    "trading",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening trading database: %s", domain.ErrStore, err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrating trading database: %s", domain.ErrStore, err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the underlying connection can still round-trip a
// query, for the dashboard's /healthz.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Path returns the sqlite file backing this store, for the backup job.
func (s *Store) Path() string {
	return s.db.Path()
}

// Checkpoint forces a WAL checkpoint so the on-disk file reflects every
// committed write before it is copied into a backup archive.
func (s *Store) Checkpoint() error {
	return s.db.WALCheckpoint("TRUNCATE")
}

// RecordTrade inserts one immutable fill record (entry or exit) and
// returns its row id.
func (s *Store) RecordTrade(ctx context.Context, t domain.Trade) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (
			timestamp, symbol, strategy, market_state,
			trade_type, position_type, side,
			price, volume, value, fee, fee_currency,
			position_id, txid, dry_run, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Timestamp.UTC().Format(timeLayout), t.Symbol, t.Strategy, string(t.MarketState),
		string(t.TradeType), string(t.PositionType), string(t.Side),
		t.Price, t.Volume, t.Price*t.Volume, t.Fee, orDefault(t.FeeCurrency, "USD"),
		nullableInt64(t.PositionID), nullableString(t.TxID), t.DryRun, nullableString(t.Notes),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: recording trade for %s: %s", domain.ErrStore, t.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading trade id: %s", domain.ErrStore, err)
	}
	s.log.Debug().Int64("trade_id", id).Str("symbol", t.Symbol).Str("trade_type", string(t.TradeType)).Msg("recorded trade")
	return id, nil
}

// OpenPosition inserts a new open position row and returns its id. Spot
// mode enforces at most one open position per symbol; callers must check
// GetOpenPosition first — the store itself does not serialize this.
func (s *Store) OpenPosition(ctx context.Context, p domain.Position) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (
			symbol, strategy, market_state, position_type,
			entry_time, entry_price, entry_volume, entry_fee,
			status, dry_run
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'open', ?)`,
		p.Symbol, p.Strategy, string(p.MarketState), string(p.PositionType),
		p.EntryTime.UTC().Format(timeLayout), p.EntryPrice, p.EntryVolume, p.EntryFee,
		p.DryRun,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: opening position for %s: %s", domain.ErrStore, p.Symbol, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading position id: %s", domain.ErrStore, err)
	}
	s.log.Info().Int64("position_id", id).Str("symbol", p.Symbol).Float64("entry_price", p.EntryPrice).Bool("dry_run", p.DryRun).Msg("opened position")
	return id, nil
}

// ClosePosition closes an open position and derives its P&L the same way
// the original database module does: gross P&L from entry/exit prices and
// exit volume (sign-flipped for a short position), total fees as the
// sum of entry and exit fees, and percent P&L relative to entry notional.
func (s *Store) ClosePosition(ctx context.Context, positionID int64, exitTime time.Time, exitPrice, exitVolume, exitFee float64) error {
	var entryPrice, entryVolume, entryFee float64
	var positionType string
	err := s.db.QueryRowContext(ctx, `SELECT entry_price, entry_volume, entry_fee, position_type FROM positions WHERE id = ?`, positionID).
		Scan(&entryPrice, &entryVolume, &entryFee, &positionType)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: position %d not found", domain.ErrStore, positionID)
	}
	if err != nil {
		return fmt.Errorf("%w: reading position %d: %s", domain.ErrStore, positionID, err)
	}

	var grossPnL float64
	if domain.PositionType(positionType) == domain.PositionShort {
		grossPnL = (entryPrice - exitPrice) * exitVolume
	} else {
		grossPnL = (exitPrice - entryPrice) * exitVolume
	}
	totalFees := entryFee + exitFee
	netPnL := grossPnL - totalFees
	var pnlPercent float64
	if entryNotional := entryPrice * entryVolume; entryNotional != 0 {
		pnlPercent = (netPnL / entryNotional) * 100
	}

	now := exitTime.UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `
		UPDATE positions SET
			exit_time = ?, exit_price = ?, exit_volume = ?, exit_fee = ?,
			gross_pnl = ?, total_fees = ?, net_pnl = ?, pnl_percent = ?,
			status = 'closed', closed_time = ?
		WHERE id = ?`,
		now, exitPrice, exitVolume, exitFee,
		grossPnL, totalFees, netPnL, pnlPercent,
		now, positionID,
	)
	if err != nil {
		return fmt.Errorf("%w: closing position %d: %s", domain.ErrStore, positionID, err)
	}

	s.log.Info().Int64("position_id", positionID).Float64("gross_pnl", grossPnL).Float64("total_fees", totalFees).Float64("net_pnl", netPnL).Msg("closed position")
	return nil
}

// GetOpenPosition returns the most recent open position for symbol, or
// ok=false if none is open.
func (s *Store) GetOpenPosition(ctx context.Context, symbol string) (domain.Position, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, strategy, market_state, position_type,
			entry_time, entry_price, entry_volume, entry_fee, status, dry_run
		FROM positions
		WHERE symbol = ? AND status = 'open'
		ORDER BY entry_time DESC
		LIMIT 1`, symbol)

	var p domain.Position
	var marketState, positionType, status, entryTime string
	err := row.Scan(&p.ID, &p.Symbol, &p.Strategy, &marketState, &positionType,
		&entryTime, &p.EntryPrice, &p.EntryVolume, &p.EntryFee, &status, &p.DryRun)
	if err == sql.ErrNoRows {
		return domain.Position{}, false, nil
	}
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("%w: reading open position for %s: %s", domain.ErrStore, symbol, err)
	}

	p.MarketState = domain.MarketState(marketState)
	p.PositionType = domain.PositionType(positionType)
	p.Status = domain.PositionStatus(status)
	p.EntryTime, _ = time.Parse(timeLayout, entryTime)
	return p, true, nil
}

// GetOpenPositions returns every currently open position, across all
// symbols, most-recent entry first.
func (s *Store) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, market_state, position_type,
			entry_time, entry_price, entry_volume, entry_fee, status, dry_run
		FROM positions
		WHERE status = 'open'
		ORDER BY entry_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading open positions: %s", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var marketState, positionType, status, entryTime string
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Strategy, &marketState, &positionType,
			&entryTime, &p.EntryPrice, &p.EntryVolume, &p.EntryFee, &status, &p.DryRun); err != nil {
			return nil, fmt.Errorf("%w: scanning open position: %s", domain.ErrStore, err)
		}
		p.MarketState = domain.MarketState(marketState)
		p.PositionType = domain.PositionType(positionType)
		p.Status = domain.PositionStatus(status)
		p.EntryTime, _ = time.Parse(timeLayout, entryTime)
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetRecentTrades returns the most recent trade fills, newest first,
// mirroring report.py's print_recent_trades query.
func (s *Store) GetRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, strategy, trade_type, side, price, volume, fee, value
		FROM trades
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading recent trades: %s", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var tradeType, side, timestamp string
		if err := rows.Scan(&timestamp, &t.Symbol, &t.Strategy, &tradeType, &side, &t.Price, &t.Volume, &t.Fee, &t.Value); err != nil {
			return nil, fmt.Errorf("%w: scanning trade: %s", domain.ErrStore, err)
		}
		t.TradeType = domain.TradeType(tradeType)
		t.Side = domain.Side(side)
		t.Timestamp, _ = time.Parse(timeLayout, timestamp)
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetClosedPositions returns the most recently closed positions with their
// realized P&L, newest first, mirroring report.py's print_all_positions.
func (s *Store) GetClosedPositions(ctx context.Context, limit int) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy, position_type, entry_price, exit_price,
			gross_pnl, total_fees, net_pnl, pnl_percent, closed_time
		FROM positions
		WHERE status = 'closed'
		ORDER BY closed_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading closed positions: %s", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var positionType, closedTime string
		var exitPrice, grossPnL, totalFees, netPnL, pnlPercent float64
		if err := rows.Scan(&p.Symbol, &p.Strategy, &positionType, &p.EntryPrice, &exitPrice,
			&grossPnL, &totalFees, &netPnL, &pnlPercent, &closedTime); err != nil {
			return nil, fmt.Errorf("%w: scanning closed position: %s", domain.ErrStore, err)
		}
		p.PositionType = domain.PositionType(positionType)
		p.Status = domain.PositionClosed
		p.ExitPrice = &exitPrice
		p.GrossPnL = &grossPnL
		p.TotalFees = &totalFees
		p.NetPnL = &netPnL
		p.PnLPercent = &pnlPercent
		if ct, err := time.Parse(timeLayout, closedTime); err == nil {
			p.ClosedTime = &ct
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordMarketCondition persists one MarketAnalyzer classification pass.
func (s *Store) RecordMarketCondition(ctx context.Context, c domain.MarketCondition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_conditions (
			timestamp, symbol, state, adx, atr, range_percent, choppiness, slope,
			confidence, price, volume, recommended_strategy, active_strategy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Timestamp.UTC().Format(timeLayout), c.Pair, string(c.State),
		nullableFloat(c.ADX), nullableFloat(c.ATR), nullableFloat(c.RangePercent),
		nullableFloat(c.Choppiness), nullableFloat(c.Slope), c.Confidence,
		nullableFloat(c.Price), nullableFloat(c.Volume),
		c.RecommendedStrategy, c.ActiveStrategy,
	)
	if err != nil {
		return fmt.Errorf("%w: recording market condition for %s: %s", domain.ErrStore, c.Pair, err)
	}
	return nil
}

// RecordStrategySwitch persists one confirmed strategy transition.
func (s *Store) RecordStrategySwitch(ctx context.Context, sw domain.StrategySwitch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategy_switches (
			timestamp, symbol, from_strategy, to_strategy, reason,
			market_state, confidence, confirmations_received, switches_today,
			trades_with_old_strategy, pnl_with_old_strategy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sw.Timestamp.UTC().Format(timeLayout), sw.Symbol, sw.FromStrategy, sw.ToStrategy, sw.Reason,
		string(sw.MarketState), sw.Confidence, sw.ConfirmationsReceived, sw.SwitchesToday,
		nullableInt(sw.TradesWithOldStrategy), nullableFloat(sw.PnLWithOldStrategy),
	)
	if err != nil {
		return fmt.Errorf("%w: recording strategy switch for %s: %s", domain.ErrStore, sw.Symbol, err)
	}
	s.log.Info().Str("symbol", sw.Symbol).Str("from", sw.FromStrategy).Str("to", sw.ToStrategy).Msg("recorded strategy switch")
	return nil
}

// DailyStats are the aggregate figures get_daily_stats computed over
// closed positions for one calendar day.
type DailyStats struct {
	TotalTrades      int
	WinningTrades    int
	GrossPnL         float64
	TotalFees        float64
	NetPnL           float64
	CoinsTraded      []string
	StrategySwitches int
}

// GetDailyStats aggregates closed-position performance for the UTC
// calendar day containing day.
func (s *Store) GetDailyStats(ctx context.Context, day time.Time) (DailyStats, error) {
	dateStr := day.UTC().Format("2006-01-02")

	var stats DailyStats
	var coinsTraded sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN net_pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(gross_pnl), 0),
			COALESCE(SUM(total_fees), 0),
			COALESCE(SUM(net_pnl), 0),
			GROUP_CONCAT(DISTINCT symbol)
		FROM positions
		WHERE DATE(closed_time) = ? AND status = 'closed'`, dateStr).
		Scan(&stats.TotalTrades, &stats.WinningTrades, &stats.GrossPnL, &stats.TotalFees, &stats.NetPnL, &coinsTraded)
	if err != nil {
		return DailyStats{}, fmt.Errorf("%w: reading daily stats for %s: %s", domain.ErrStore, dateStr, err)
	}
	if coinsTraded.Valid && coinsTraded.String != "" {
		stats.CoinsTraded = splitCSV(coinsTraded.String)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM strategy_switches WHERE DATE(timestamp) = ?`, dateStr).
		Scan(&stats.StrategySwitches); err != nil {
		return DailyStats{}, fmt.Errorf("%w: reading daily switch count for %s: %s", domain.ErrStore, dateStr, err)
	}

	return stats, nil
}

// StrategyPerformance is one symbol/strategy pair's closed-position track
// record, matching get_strategy_performance's aggregate fields.
type StrategyPerformance struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	GrossPnL      float64
	TotalFees     float64
	NetPnL        float64
	WinRate       float64
	ProfitFactor  float64
}

// GetStrategyPerformance aggregates closed positions for symbol/strategy.
func (s *Store) GetStrategyPerformance(ctx context.Context, symbol, strategy string) (StrategyPerformance, error) {
	var perf StrategyPerformance
	var avgWin, avgLoss float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN net_pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN net_pnl <= 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(gross_pnl), 0),
			COALESCE(SUM(total_fees), 0),
			COALESCE(SUM(net_pnl), 0),
			COALESCE(AVG(CASE WHEN net_pnl > 0 THEN net_pnl END), 0),
			COALESCE(AVG(CASE WHEN net_pnl <= 0 THEN ABS(net_pnl) END), 0)
		FROM positions
		WHERE symbol = ? AND strategy = ? AND status = 'closed'`, symbol, strategy).
		Scan(&perf.TotalTrades, &perf.WinningTrades, &perf.LosingTrades,
			&perf.GrossPnL, &perf.TotalFees, &perf.NetPnL, &avgWin, &avgLoss)
	if err != nil {
		return StrategyPerformance{}, fmt.Errorf("%w: reading strategy performance for %s/%s: %s", domain.ErrStore, symbol, strategy, err)
	}

	if perf.TotalTrades > 0 {
		perf.WinRate = (float64(perf.WinningTrades) / float64(perf.TotalTrades)) * 100
	}
	if avgLoss > 0 {
		perf.ProfitFactor = avgWin / avgLoss
	}
	return perf, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
