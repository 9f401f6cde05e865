package indicator

import (
	"testing"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

func candlesFromCloses(closes []float64) []types.Candle {
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out[i] = types.Candle{Open: d, High: d, Low: d, Close: d}
	}
	return out
}

func TestRSIAllGainsReturns100(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 0, Period+5)
	price := 100.0
	for i := 0; i < Period+5; i++ {
		closes = append(closes, price)
		price += 1
	}
	candles := candlesFromCloses(closes)

	got, err := RSI(candles, Period)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got != 100 {
		t.Errorf("RSI = %v, want 100 for monotonically rising prices", got)
	}
}

func TestRSIAllLossesReturns0(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 0, Period+5)
	price := 200.0
	for i := 0; i < Period+5; i++ {
		closes = append(closes, price)
		price -= 1
	}
	candles := candlesFromCloses(closes)

	got, err := RSI(candles, Period)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got != 0 {
		t.Errorf("RSI = %v, want 0 for monotonically falling prices", got)
	}
}

func TestRSIFlatPricesReturns100(t *testing.T) {
	t.Parallel()

	// avg_loss = 0 throughout — the explicit flat-price edge case.
	closes := make([]float64, Period+5)
	for i := range closes {
		closes[i] = 50
	}
	candles := candlesFromCloses(closes)

	got, err := RSI(candles, Period)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got != 100 {
		t.Errorf("RSI = %v, want 100 when avg_loss=0", got)
	}
}

func TestRSIInsufficientCandles(t *testing.T) {
	t.Parallel()

	candles := candlesFromCloses([]float64{1, 2, 3})
	if _, err := RSI(candles, Period); err == nil {
		t.Fatal("expected FeedUnavailableError for too few candles")
	}
}

func TestRSIBounded(t *testing.T) {
	t.Parallel()

	closes := []float64{
		44, 44.25, 44.5, 43.75, 44.65, 45.1, 45.4, 45.8, 46.2, 45.9,
		46.0, 46.3, 46.1, 45.6, 46.3, 46.8, 45.7, 46.2, 46.6, 46.9,
	}
	candles := candlesFromCloses(closes)

	got, err := RSI(candles, Period)
	if err != nil {
		t.Fatalf("RSI: %v", err)
	}
	if got < 0 || got > 100 {
		t.Errorf("RSI = %v, out of bounds [0,100]", got)
	}
}
