package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Components wrap these with fmt.Errorf("%w", ...) so
// callers classify failures with errors.Is rather than string matching.
var (
	// ErrConfig signals a missing or invalid configuration value; the
	// process should not start.
	ErrConfig = errors.New("config error")

	// ErrTransportTransient signals a retryable exchange-transport failure
	// (timeout, connection reset, 5xx).
	ErrTransportTransient = errors.New("transient transport error")

	// ErrTransportAuth signals a signing/authentication failure. Not
	// retryable without operator intervention.
	ErrTransportAuth = errors.New("transport auth error")

	// ErrTransportAPI signals the exchange rejected the request outright
	// (bad pair, invalid order, rate limited past retry budget).
	ErrTransportAPI = errors.New("transport api error")

	// ErrOrderValidation signals OrderNormalizer rejected an order before
	// it reached the exchange. Wrapped by the three specific rejection
	// kinds below so callers can errors.Is either the family or the exact
	// reason.
	ErrOrderValidation = errors.New("order validation error")

	// ErrOrderVolumeBelowMin: normalized volume is zero or under ordermin.
	ErrOrderVolumeBelowMin = fmt.Errorf("%w: order volume below minimum", ErrOrderValidation)

	// ErrOrderCostBelowMin: normalized volume*price is under costmin.
	ErrOrderCostBelowMin = fmt.Errorf("%w: order cost below minimum", ErrOrderValidation)

	// ErrPriceRoundsToZero: a limit price floored to zero under tick_size
	// or pair_decimals.
	ErrPriceRoundsToZero = fmt.Errorf("%w: price rounds to zero", ErrOrderValidation)

	// ErrInsufficientData signals a component was asked to analyze a
	// series shorter than its required lookback.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrStore signals a TradingStore read/write failure.
	ErrStore = errors.New("store error")
)
