// Package kraken is the signed-REST ExchangeClient implementation (§6)
// against Kraken's public/private HTTP API. Requests are serialized through
// a single background worker so the exchange's rate limits are respected
// without per-call sleeps littering call sites.
package kraken

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/rs/zerolog"
)

const (
	baseURL          = "https://api.kraken.com"
	apiVersion       = "0"
	requestTimeout   = 45 * time.Second
	maxRetries       = 3
	requestQueueSize = 256
	rateLimitDelay   = 500 * time.Millisecond
)

// Client is a Kraken REST client satisfying exchange.Client.
type Client struct {
	apiKey    string
	apiSecret string

	httpClient *http.Client
	log        zerolog.Logger

	requestQueue chan requestJob
	stopChan     chan struct{}
	workerDone   chan struct{}
	once         sync.Once

	pairRulesMu    sync.RWMutex
	pairRulesCache map[string]domain.AssetPairRules

	stream *priceStream
}

type requestJob struct {
	fn       func() (map[string]interface{}, error)
	resultCh chan requestResult
}

type requestResult struct {
	data map[string]interface{}
	err  error
}

// New builds a Kraken client. apiKey/apiSecret may be empty for a
// public-endpoints-only client (e.g. a warm-restart OHLC backfill).
func New(apiKey, apiSecret string, log zerolog.Logger) *Client {
	c := &Client{
		apiKey:         apiKey,
		apiSecret:      apiSecret,
		httpClient:     &http.Client{Timeout: requestTimeout},
		log:            log.With().Str("component", "kraken-client").Logger(),
		requestQueue:   make(chan requestJob, requestQueueSize),
		stopChan:       make(chan struct{}),
		workerDone:     make(chan struct{}),
		pairRulesCache: make(map[string]domain.AssetPairRules),
	}
	go c.worker()
	return c
}

// StartPriceStream launches a best-effort websocket ticker subscription for
// pairs that GetTicker consults before falling back to the REST poll. Safe
// to skip entirely: GetTicker works over plain REST whether or not this was
// ever called.
func (c *Client) StartPriceStream(ctx context.Context, pairs []string) {
	c.stream = newPriceStream(pairs, c.log)
	go c.stream.run(ctx)
}

// Close drains the request queue and stops the background worker.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.stopChan)
		close(c.requestQueue)
		<-c.workerDone
	})
}

func (c *Client) enqueue(fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	resultCh := make(chan requestResult, 1)
	job := requestJob{fn: fn, resultCh: resultCh}

	select {
	case c.requestQueue <- job:
	case <-c.stopChan:
		return nil, fmt.Errorf("%w: client is closed", domain.ErrTransportTransient)
	}

	result := <-resultCh
	return result.data, result.err
}

func (c *Client) worker() {
	defer close(c.workerDone)

	var lastRequestAt time.Time
	first := true

	process := func(job requestJob) {
		if !first {
			if wait := rateLimitDelay - time.Since(lastRequestAt); wait > 0 {
				time.Sleep(wait)
			}
		}
		first = false

		data, err := job.fn()
		lastRequestAt = time.Now()
		job.resultCh <- requestResult{data: data, err: err}
	}

	for {
		select {
		case <-c.stopChan:
			for {
				select {
				case job, ok := <-c.requestQueue:
					if !ok {
						return
					}
					process(job)
				default:
					return
				}
			}
		case job, ok := <-c.requestQueue:
			if !ok {
				return
			}
			process(job)
		}
	}
}
