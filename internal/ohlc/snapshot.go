package ohlc

import (
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshot is the on-disk shape of a warm-restart dump: enough to rebuild
// every pair's ring without re-fetching maxlen candles from the exchange.
type snapshot struct {
	MaxLen int                            `msgpack:"max_len"`
	Series map[string]domain.OHLCSeries `msgpack:"series"`
}

// Dump serializes the cache's current state for warm-restart. Purely a
// performance carry-over (§11) — it changes no invariant in §3/§8.
func (c *Cache) Dump() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := snapshot{MaxLen: c.maxLen, Series: make(map[string]domain.OHLCSeries, len(c.series))}
	for pair, s := range c.series {
		snap.Series[pair] = *s
	}
	return msgpack.Marshal(snap)
}

// Load restores a cache from a Dump()'d snapshot. maxLen on the receiving
// Cache is kept; only the per-pair series are replaced.
func (c *Cache) Load(data []byte) error {
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = make(map[string]*domain.OHLCSeries, len(snap.Series))
	for pair, s := range snap.Series {
		s := s
		c.series[pair] = &s
	}
	return nil
}
