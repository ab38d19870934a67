package kraken

import (
	"context"
	"sync"
	"time"

	"github.com/c-rw/spicetrader-go/internal/exchange"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	wsURL            = "wss://ws.kraken.com/v2"
	streamStaleAfter = 10 * time.Second
	reconnectBackoff = 3 * time.Second
)

// priceStream is an optional best-effort pre-warm of GetTicker's batched
// REST call: a live websocket ticker subscription keeps a per-pair cache
// that GetTicker prefers when fresh, falling back to the REST poll per §5
// whenever the stream hasn't delivered a tick recently (stopped, dropped,
// reconnecting). It is never the source of truth, only a latency shortcut.
type priceStream struct {
	pairs []string
	log   zerolog.Logger

	mu      sync.RWMutex
	cache   map[string]exchange.Ticker
	updated map[string]time.Time
}

func newPriceStream(pairs []string, log zerolog.Logger) *priceStream {
	return &priceStream{
		pairs:   pairs,
		log:     log.With().Str("component", "kraken-ws").Logger(),
		cache:   make(map[string]exchange.Ticker),
		updated: make(map[string]time.Time),
	}
}

// run connects and reconnects until ctx is cancelled. Meant to be started
// in its own goroutine; all errors are logged and retried, never fatal.
func (s *priceStream) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("price stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

type tickerSubscribeRequest struct {
	Method string           `json:"method"`
	Params tickerSubscribeParams `json:"params"`
}

type tickerSubscribeParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
}

type tickerUpdate struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    []struct {
		Symbol string  `json:"symbol"`
		Last   float64 `json:"last"`
		Volume float64 `json:"volume"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
	} `json:"data"`
}

func (s *priceStream) connectOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	sub := tickerSubscribeRequest{
		Method: "subscribe",
		Params: tickerSubscribeParams{Channel: "ticker", Symbol: s.pairs},
	}
	if err := wsjson.Write(ctx, conn, sub); err != nil {
		return err
	}

	for {
		var update tickerUpdate
		if err := wsjson.Read(ctx, conn, &update); err != nil {
			return err
		}
		if update.Channel != "ticker" {
			continue
		}
		now := time.Now()
		s.mu.Lock()
		for _, d := range update.Data {
			s.cache[d.Symbol] = exchange.Ticker{
				Pair:   d.Symbol,
				Last:   d.Last,
				Volume: d.Volume,
				High:   d.High,
				Low:    d.Low,
			}
			s.updated[d.Symbol] = now
		}
		s.mu.Unlock()
	}
}

// fresh returns the cached ticker for pair if it was updated within
// streamStaleAfter, signaling GetTicker it can skip the REST round trip.
func (s *priceStream) fresh(pair string, now time.Time) (exchange.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.cache[pair]
	if !ok {
		return exchange.Ticker{}, false
	}
	if now.Sub(s.updated[pair]) > streamStaleAfter {
		return exchange.Ticker{}, false
	}
	return t, true
}
