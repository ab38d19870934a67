package ohlc_test

import (
	"testing"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/ohlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(t int64, close float64) domain.Candle {
	return domain.Candle{Time: t, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestUpdate_CommitDropsInProgressTail(t *testing.T) {
	c := ohlc.New(200)
	c.Update("X", []domain.Candle{candle(100, 1), candle(200, 2), candle(300, 3)}, 300)

	s, ok := c.GetSeries("X")
	require.True(t, ok)
	require.Len(t, s.Candles, 2)
	assert.Equal(t, int64(100), s.Candles[0].Time)
	assert.Equal(t, int64(200), s.Candles[1].Time)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(200), latest.Time)
}

func TestUpdate_MergeReplacesTailAndAppendsNewer(t *testing.T) {
	c := ohlc.New(200)
	c.Update("X", []domain.Candle{candle(100, 1), candle(200, 2), candle(300, 3)}, 300)

	c.Update("X", []domain.Candle{candle(200, 20), candle(400, 4), candle(500, 5)}, 500)

	s, ok := c.GetSeries("X")
	require.True(t, ok)
	require.Len(t, s.Candles, 3)

	closes := s.Closes()
	assert.Equal(t, []float64{1, 20, 4}, closes)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(400), latest.Time)
}

func TestUpdate_NeverStoresDuplicateTimestamps(t *testing.T) {
	c := ohlc.New(200)
	c.Update("X", []domain.Candle{candle(100, 1), candle(200, 2)}, 200)
	c.Update("X", []domain.Candle{candle(200, 2), candle(200, 9)}, 200)

	s, _ := c.GetSeries("X")
	seen := map[int64]bool{}
	for _, cd := range s.Candles {
		assert.False(t, seen[cd.Time], "duplicate timestamp %d", cd.Time)
		seen[cd.Time] = true
	}
}

func TestUpdate_SingleRowIsAlwaysInProgress(t *testing.T) {
	c := ohlc.New(200)
	c.Update("X", []domain.Candle{candle(100, 1)}, 100)

	_, ok := c.GetSeries("X")
	assert.False(t, ok)
}

func TestUpdate_IsIdempotentForSameResponse(t *testing.T) {
	c1 := ohlc.New(200)
	c1.Update("X", []domain.Candle{candle(100, 1), candle(200, 2), candle(300, 3)}, 300)
	s1, _ := c1.GetSeries("X")

	c2 := ohlc.New(200)
	c2.Update("X", []domain.Candle{candle(100, 1), candle(200, 2), candle(300, 3)}, 300)
	c2.Update("X", []domain.Candle{candle(100, 1), candle(200, 2), candle(300, 3)}, 300)
	s2, _ := c2.GetSeries("X")

	assert.Equal(t, s1.Closes(), s2.Closes())
}

func TestGetSeries_EmptyWhenNothingCommitted(t *testing.T) {
	c := ohlc.New(200)
	_, ok := c.GetSeries("nope")
	assert.False(t, ok)
}

func TestUpdate_RingBoundedAtMaxLen(t *testing.T) {
	c := ohlc.New(3)
	rows := []domain.Candle{candle(1, 1), candle(2, 2), candle(3, 3), candle(4, 4), candle(5, 5)}
	c.Update("X", rows, 5)

	s, ok := c.GetSeries("X")
	require.True(t, ok)
	assert.LessOrEqual(t, len(s.Candles), 3)
}
