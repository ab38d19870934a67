package kraken

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/exchange"
)

var _ exchange.Client = (*Client)(nil)

// GetServerTime returns Kraken's clock.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "Time", nil, false)
	})
	if err != nil {
		return time.Time{}, err
	}
	unixtime, _ := result["unixtime"].(float64)
	return time.Unix(int64(unixtime), 0).UTC(), nil
}

// GetTradeBalance returns equity/buying power (field "eb") in the quote
// asset.
func (c *Client) GetTradeBalance(ctx context.Context, asset string) (float64, error) {
	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "TradeBalance", map[string]string{"asset": asset}, true)
	})
	if err != nil {
		return 0, err
	}
	eb, _ := result["eb"].(string)
	if eb == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(eb, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable eb %q", domain.ErrTransportAPI, eb)
	}
	return v, nil
}

// GetTicker batch-fetches last/volume/high/low for every pair in one call.
// Pairs with a fresh websocket tick (see StartPriceStream) skip the REST
// round trip entirely; everything else falls back to the batched poll.
func (c *Client) GetTicker(ctx context.Context, pairs []string) (map[string]exchange.Ticker, error) {
	out := make(map[string]exchange.Ticker, len(pairs))
	var toPoll []string

	if c.stream != nil {
		now := time.Now()
		for _, pair := range pairs {
			if t, ok := c.stream.fresh(pair, now); ok {
				out[pair] = t
				continue
			}
			toPoll = append(toPoll, pair)
		}
	} else {
		toPoll = pairs
	}

	if len(toPoll) == 0 {
		return out, nil
	}

	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "Ticker", map[string]string{"pair": strings.Join(toPoll, ",")}, false)
	})
	if err != nil {
		if len(out) > 0 {
			// Stream already covered some pairs; a REST failure for the
			// remainder shouldn't discard what we already have.
			return out, nil
		}
		return nil, err
	}

	for key, raw := range result {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		pair := matchRequestedPair(key, toPoll)
		out[pair] = exchange.Ticker{
			Pair:   pair,
			Last:   firstOfArrayField(entry, "c"),
			Volume: firstOfArrayField(entry, "v"),
			High:   firstOfArrayField(entry, "h"),
			Low:    firstOfArrayField(entry, "l"),
		}
	}
	return out, nil
}

// GetOHLC fetches committed candles for pair since the watermark.
func (c *Client) GetOHLC(ctx context.Context, pair string, intervalMinutes int, since int64) (domain.OHLCSeries, error) {
	data := map[string]string{
		"pair":     pair,
		"interval": strconv.Itoa(intervalMinutes),
	}
	if since > 0 {
		data["since"] = strconv.FormatInt(since, 10)
	}

	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "OHLC", data, false)
	})
	if err != nil {
		return domain.OHLCSeries{}, err
	}

	key := selectResponseKey(pair, result)
	rows, _ := result[key].([]interface{})

	candles := make([]domain.Candle, 0, len(rows))
	for _, rawRow := range rows {
		row, ok := rawRow.([]interface{})
		if !ok || len(row) < 8 {
			continue
		}
		candles = append(candles, domain.Candle{
			Time:   int64(asFloat(row[0])),
			Open:   parseFloatField(row[1]),
			High:   parseFloatField(row[2]),
			Low:    parseFloatField(row[3]),
			Close:  parseFloatField(row[4]),
			VWAP:   parseFloatField(row[5]),
			Volume: parseFloatField(row[6]),
			Count:  int(asFloat(row[7])),
		})
	}

	var lastWatermark int64
	if last, ok := result["last"]; ok {
		lastWatermark = int64(asFloat(last))
	}

	return domain.OHLCSeries{Pair: pair, Candles: candles, Since: lastWatermark}, nil
}

// GetAssetPairRules returns cached AssetPairs metadata for pair, fetching
// and caching it on first use.
func (c *Client) GetAssetPairRules(ctx context.Context, pair string) (domain.AssetPairRules, error) {
	c.pairRulesMu.RLock()
	if rules, ok := c.pairRulesCache[pair]; ok {
		c.pairRulesMu.RUnlock()
		return rules, nil
	}
	c.pairRulesMu.RUnlock()

	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "AssetPairs", map[string]string{"pair": pair}, false)
	})
	if err != nil {
		return domain.AssetPairRules{}, err
	}

	key := selectResponseKey(pair, result)
	raw, ok := result[key].(map[string]interface{})
	if !ok {
		return domain.AssetPairRules{}, fmt.Errorf("%w: AssetPairs did not return rules for pair=%s", domain.ErrTransportAPI, pair)
	}

	rules := domain.AssetPairRules{
		Pair:         pair,
		LotDecimals:  int(asFloat(raw["lot_decimals"])),
		PairDecimals: int(asFloat(raw["pair_decimals"])),
		TickSize:     parseFloatField(raw["tick_size"]),
		OrderMin:     parseFloatField(raw["ordermin"]),
		CostMin:      parseFloatField(raw["costmin"]),
	}

	c.pairRulesMu.Lock()
	c.pairRulesCache[pair] = rules
	c.pairRulesMu.Unlock()

	return rules, nil
}

// AddOrder places (or validates) an order.
func (c *Client) AddOrder(ctx context.Context, pair string, side exchange.Side, orderType exchange.OrderType, volume float64, price *float64, validate bool) (exchange.AddOrderResult, error) {
	data := map[string]string{
		"pair":      pair,
		"type":      string(side),
		"ordertype": string(orderType),
		"volume":    strconv.FormatFloat(volume, 'f', -1, 64),
	}
	if price != nil {
		data["price"] = strconv.FormatFloat(*price, 'f', -1, 64)
	}
	if validate {
		data["validate"] = "true"
	}

	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "AddOrder", data, true)
	})
	if err != nil {
		return exchange.AddOrderResult{}, err
	}

	raw, _ := result["txid"].([]interface{})
	txIDs := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok {
			txIDs = append(txIDs, s)
		}
	}
	return exchange.AddOrderResult{TxIDs: txIDs}, nil
}

// GetTradeActualFee polls QueryLedgers for the real fee charged against
// txID, every 500ms up to deadline. Returns 0.0 without error if nothing
// is found in time — matching the known fee-understatement risk this
// carries forward rather than silently fixing (§7).
func (c *Client) GetTradeActualFee(ctx context.Context, txID string, deadline time.Duration) (float64, error) {
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		fee, found, err := c.lookupLedgerFee(ctx, txID)
		if err != nil {
			c.log.Warn().Err(err).Str("txid", txID).Msg("error querying ledger for actual fee")
		} else if found {
			return fee, nil
		}

		select {
		case <-pollCtx.Done():
			c.log.Warn().Str("txid", txID).Dur("deadline", deadline).Msg("could not find actual fee before deadline")
			return 0.0, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) lookupLedgerFee(ctx context.Context, txID string) (fee float64, found bool, err error) {
	result, err := c.enqueue(func() (map[string]interface{}, error) {
		return c.doRequest(ctx, "QueryLedgers", map[string]string{"type": "trade"}, true)
	})
	if err != nil {
		return 0, false, err
	}

	ledger, ok := result["ledger"].(map[string]interface{})
	if !ok {
		return 0, false, nil
	}
	for _, rawEntry := range ledger {
		entry, ok := rawEntry.(map[string]interface{})
		if !ok {
			continue
		}
		if refid, _ := entry["refid"].(string); refid == txID {
			return parseFloatField(entry["fee"]), true, nil
		}
	}
	return 0, false, nil
}

func firstOfArrayField(entry map[string]interface{}, field string) float64 {
	arr, ok := entry[field].([]interface{})
	if !ok || len(arr) == 0 {
		return 0
	}
	return parseFloatField(arr[0])
}

func parseFloatField(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

// selectResponseKey picks the best-matching key from a Kraken response
// keyed by the exchange's internal asset-pair code, which often differs
// from the requested altname (e.g. requesting XBTUSD returns XXBTZUSD).
func selectResponseKey(requestedPair string, result map[string]interface{}) string {
	if _, ok := result[requestedPair]; ok {
		return requestedPair
	}

	for key, raw := range result {
		entry, ok := raw.(map[string]interface{})
		if ok {
			if altname, _ := entry["altname"].(string); altname == requestedPair {
				return key
			}
		}
	}

	variations := []string{
		strings.NewReplacer("XBT", "XXBT", "USD", "ZUSD").Replace(requestedPair),
		strings.NewReplacer("ETH", "XETH", "USD", "ZUSD").Replace(requestedPair),
		strings.NewReplacer("XRP", "XXRP", "USD", "ZUSD").Replace(requestedPair),
		strings.NewReplacer("XMR", "XXMR", "USD", "ZUSD").Replace(requestedPair),
	}
	for _, v := range variations {
		if _, ok := result[v]; ok {
			return v
		}
	}

	for key := range result {
		return key
	}
	return requestedPair
}

// matchRequestedPair maps a Kraken response key (often an internal code
// like XXBTZUSD) back to the caller's originally requested pair string
// (XBTUSD), falling back to the key itself when no requested pair matches.
func matchRequestedPair(responseKey string, requested []string) string {
	for _, pair := range requested {
		if pair == responseKey {
			return pair
		}
		variations := []string{
			strings.NewReplacer("XBT", "XXBT", "USD", "ZUSD").Replace(pair),
			strings.NewReplacer("ETH", "XETH", "USD", "ZUSD").Replace(pair),
			strings.NewReplacer("XRP", "XXRP", "USD", "ZUSD").Replace(pair),
			strings.NewReplacer("XMR", "XXMR", "USD", "ZUSD").Replace(pair),
		}
		for _, v := range variations {
			if v == responseKey {
				return pair
			}
		}
	}
	return responseKey
}
