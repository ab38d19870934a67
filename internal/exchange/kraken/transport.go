package kraken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
)

// doRequest performs one Kraken REST call, retrying transient
// timeout/connection failures up to maxRetries times with exponential
// backoff (2s, 4s, 8s). Non-transient failures (missing credentials, a
// Kraken-reported API error) surface immediately without retry.
func (c *Client) doRequest(ctx context.Context, endpoint string, data map[string]string, private bool) (map[string]interface{}, error) {
	var urlPath string
	if private {
		urlPath = fmt.Sprintf("/%s/private/%s", apiVersion, endpoint)
	} else {
		urlPath = fmt.Sprintf("/%s/public/%s", apiVersion, endpoint)
	}
	fullURL := baseURL + urlPath

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := c.doRequestOnce(ctx, fullURL, urlPath, data, private)
		if err == nil {
			return result, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt < maxRetries {
			wait := time.Duration(1<<uint(attempt+1)) * time.Second
			c.log.Warn().Err(err).Int("attempt", attempt+1).Dur("wait", wait).Str("endpoint", endpoint).Msg("transient kraken request failure, retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	c.log.Error().Err(lastErr).Int("attempts", maxRetries+1).Str("endpoint", endpoint).Msg("kraken request failed after retries")
	return nil, lastErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, domain.ErrTransportAuth) && !errors.Is(err, domain.ErrTransportAPI)
}

func (c *Client) doRequestOnce(ctx context.Context, fullURL, urlPath string, data map[string]string, private bool) (map[string]interface{}, error) {
	req, err := c.buildRequest(ctx, fullURL, urlPath, data, private)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %s", domain.ErrTransportTransient, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransportTransient, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransportAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrTransportAPI, resp.StatusCode, truncate(string(body), 500))
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %s", domain.ErrTransportAPI, err)
	}
	if len(envelope.Error) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportAPI, strings.Join(envelope.Error, ", "))
	}

	var result map[string]interface{}
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			// Some endpoints (e.g. Assets) return an array at top level of
			// `result` in degenerate cases; wrap rather than fail.
			var arr []interface{}
			if jsonErr := json.Unmarshal(envelope.Result, &arr); jsonErr == nil {
				return map[string]interface{}{"result": arr}, nil
			}
			return nil, fmt.Errorf("%w: decoding result: %s", domain.ErrTransportAPI, err)
		}
	}
	return result, nil
}

func (c *Client) buildRequest(ctx context.Context, fullURL, urlPath string, data map[string]string, private bool) (*http.Request, error) {
	if !private {
		u, err := url.Parse(fullURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransportAPI, err)
		}
		q := u.Query()
		for k, v := range data {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransportAPI, err)
		}
		req.Header.Set("User-Agent", "spicetrader-go/1.0")
		return req, nil
	}

	if c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("%w: api key and secret required for private endpoints", domain.ErrTransportAuth)
	}

	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	form.Set("nonce", nonce)
	postdata := form.Encode()

	signature, err := sign(c.apiSecret, urlPath, nonce, postdata)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader([]byte(postdata)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransportAPI, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "spicetrader-go/1.0")
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("API-Sign", signature)
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
