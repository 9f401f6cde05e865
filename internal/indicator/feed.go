// Package indicator computes the RSI(14) and Wilder-smoothed ADX(14)
// values the risk gate acts on. Candle data comes from an external OHLCV
// feed behind the Feed interface; HTTPFeed is the REST binding of that
// interface, and RSI/ADX only transform the candles they are given.
package indicator

import (
	"context"

	"gridmm/pkg/types"
)

// Period is the Wilder smoothing window used by both RSI and ADX, fixed
// at 14.
const Period = 14

// minCandles is the feed contract: a feed must return at least
// 2*period + 20 candles ordered oldest-first.
const minCandles = 2*Period + 20

// Feed is the external OHLCV collaborator, specified only as an interface:
// get_candles(symbol, interval, limit) -> [Candle], finite, not
// restartable.
type Feed interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error)
}

// FeedUnavailableError reports that the feed could not produce enough
// candles to compute a valid indicator value. The supervisor's tick
// pipeline treats this as deny-admit with no cool-down change.
type FeedUnavailableError struct {
	Reason string
	Cause  error
}

func (e *FeedUnavailableError) Error() string {
	if e.Cause != nil {
		return "indicator: feed unavailable: " + e.Reason + ": " + e.Cause.Error()
	}
	return "indicator: feed unavailable: " + e.Reason
}

func (e *FeedUnavailableError) Unwrap() error { return e.Cause }
