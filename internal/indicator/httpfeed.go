package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

// candleDTO is the JSON shape of one OHLCV bar returned by the feed's REST
// endpoint: a flat struct decoded straight off an HTTP GET.
type candleDTO struct {
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPFeed implements Feed against a plain REST candles endpoint: GET
// {baseURL}/candles?symbol=...&interval=...&limit=.... The OHLCV feed is
// treated elsewhere as an external collaborator specified only by its
// interface; this is the one concrete binding a runnable process needs.
type HTTPFeed struct {
	http *resty.Client
}

// NewHTTPFeed builds a feed client bound to baseURL with the given request
// timeout, the same resty configuration shape as the exchange adapter's
// client.
func NewHTTPFeed(baseURL string, timeout time.Duration) *HTTPFeed {
	return &HTTPFeed{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2),
	}
}

// GetCandles fetches up to limit candles, oldest-first, as the Feed
// interface requires.
func (f *HTTPFeed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	var dtos []candleDTO
	resp, err := f.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    fmt.Sprintf("%d", limit),
		}).
		SetResult(&dtos).
		Get("/candles")
	if err != nil {
		return nil, &FeedUnavailableError{Reason: "request failed", Cause: err}
	}
	if resp.IsError() {
		return nil, &FeedUnavailableError{Reason: fmt.Sprintf("status %d", resp.StatusCode())}
	}

	candles := make([]types.Candle, 0, len(dtos))
	for _, d := range dtos {
		c, err := d.toCandle()
		if err != nil {
			return nil, &FeedUnavailableError{Reason: "malformed candle", Cause: err}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (d candleDTO) toCandle() (types.Candle, error) {
	open, err := decimal.NewFromString(d.Open)
	if err != nil {
		return types.Candle{}, err
	}
	high, err := decimal.NewFromString(d.High)
	if err != nil {
		return types.Candle{}, err
	}
	low, err := decimal.NewFromString(d.Low)
	if err != nil {
		return types.Candle{}, err
	}
	closePrice, err := decimal.NewFromString(d.Close)
	if err != nil {
		return types.Candle{}, err
	}
	return types.Candle{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Timestamp: time.UnixMicro(d.Timestamp),
	}, nil
}
