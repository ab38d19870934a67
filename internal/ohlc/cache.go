// Package ohlc maintains a per-pair bounded ring of committed candles: the
// exchange's in-progress tail candle is never stored, and updates merge by
// timestamp rather than blindly appending.
package ohlc

import (
	"sync"

	"github.com/c-rw/spicetrader-go/internal/domain"
)

// DefaultMaxLen is the minimum ring length spec.md §3 requires (≥200).
const DefaultMaxLen = 200

// Cache holds one bounded candle ring per pair. Owned exclusively by the
// ExecutionCoordinator (§3 Ownership) — not safe for use by more than one
// coordinator, though reads are mutex-guarded so a CoinTrader can read
// through its coordinator without racing the update path.
type Cache struct {
	mu     sync.RWMutex
	maxLen int
	series map[string]*domain.OHLCSeries
}

// New builds an empty cache with the given per-pair ring length.
func New(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Cache{
		maxLen: maxLen,
		series: make(map[string]*domain.OHLCSeries),
	}
}

// Update applies one exchange OHLC response to pair's ring: drops the
// exchange's not-yet-committed tail candle (when 2+ rows are present), then
// merges the remainder by timestamp — appending strictly newer candles and
// replacing the ring's tail when a row repeats the current last time. since
// is the exchange's watermark for the next incremental fetch.
func (c *Cache) Update(pair string, rows []domain.Candle, since int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(rows) >= 2 {
		rows = rows[:len(rows)-1]
	} else if len(rows) == 1 {
		// A single row is always the in-progress candle — nothing commits.
		rows = nil
	}

	s, ok := c.series[pair]
	if !ok {
		s = &domain.OHLCSeries{Pair: pair}
		c.series[pair] = s
	}

	for _, row := range rows {
		if n := len(s.Candles); n > 0 && s.Candles[n-1].Time == row.Time {
			s.Candles[n-1] = row
		} else if n == 0 || row.Time > s.Candles[n-1].Time {
			s.Candles = append(s.Candles, row)
		}
		// A row with Time < last.Time is a stale/out-of-order read; ignored.
	}

	if over := len(s.Candles) - c.maxLen; over > 0 {
		s.Candles = append([]domain.Candle(nil), s.Candles[over:]...)
	}

	s.Since = since
}

// GetSeries returns the current committed series for pair, or ok=false if
// nothing has been committed yet.
func (c *Cache) GetSeries(pair string) (domain.OHLCSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.series[pair]
	if !ok || len(s.Candles) == 0 {
		return domain.OHLCSeries{}, false
	}
	out := domain.OHLCSeries{
		Pair:    s.Pair,
		Since:   s.Since,
		Candles: append([]domain.Candle(nil), s.Candles...),
	}
	return out, true
}
