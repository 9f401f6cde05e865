package indicator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"gridmm/pkg/types"
)

type fakeFeed struct {
	candles []types.Candle
	err     error
}

func (f *fakeFeed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]types.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineComputeSuccess(t *testing.T) {
	t.Parallel()

	candles := strongTrendCandles(2*Period + 20)
	eng := NewEngine(&fakeFeed{candles: candles}, "BTC-PERP", "15m", testLogger())

	snap, err := eng.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.RSI < 0 || snap.RSI > 100 {
		t.Errorf("RSI out of bounds: %v", snap.RSI)
	}
	if snap.ADX < 0 || snap.ADX > 100 {
		t.Errorf("ADX out of bounds: %v", snap.ADX)
	}
}

func TestEngineComputeFeedError(t *testing.T) {
	t.Parallel()

	eng := NewEngine(&fakeFeed{err: errors.New("feed down")}, "BTC-PERP", "15m", testLogger())

	_, err := eng.Compute(context.Background())
	var feedErr *FeedUnavailableError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedUnavailableError, got %v", err)
	}
}

func TestEngineComputeTooFewCandles(t *testing.T) {
	t.Parallel()

	eng := NewEngine(&fakeFeed{candles: strongTrendCandles(5)}, "BTC-PERP", "15m", testLogger())

	_, err := eng.Compute(context.Background())
	var feedErr *FeedUnavailableError
	if !errors.As(err, &feedErr) {
		t.Fatalf("expected FeedUnavailableError, got %v", err)
	}
}
