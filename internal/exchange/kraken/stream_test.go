package kraken

import (
	"testing"
	"time"

	"github.com/c-rw/spicetrader-go/internal/exchange"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPriceStream_Fresh_ReturnsRecentTick(t *testing.T) {
	s := newPriceStream([]string{"XBTUSD"}, zerolog.Nop())
	now := time.Now()

	s.mu.Lock()
	s.cache["XBTUSD"] = exchange.Ticker{Pair: "XBTUSD", Last: 50000}
	s.updated["XBTUSD"] = now
	s.mu.Unlock()

	ticker, ok := s.fresh("XBTUSD", now.Add(1*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 50000.0, ticker.Last)
}

func TestPriceStream_Fresh_StaleTickIsRejected(t *testing.T) {
	s := newPriceStream([]string{"XBTUSD"}, zerolog.Nop())
	now := time.Now()

	s.mu.Lock()
	s.cache["XBTUSD"] = exchange.Ticker{Pair: "XBTUSD", Last: 50000}
	s.updated["XBTUSD"] = now
	s.mu.Unlock()

	_, ok := s.fresh("XBTUSD", now.Add(streamStaleAfter+time.Second))
	assert.False(t, ok)
}

func TestPriceStream_Fresh_UnknownPair(t *testing.T) {
	s := newPriceStream([]string{"XBTUSD"}, zerolog.Nop())
	_, ok := s.fresh("ETHUSD", time.Now())
	assert.False(t, ok)
}
