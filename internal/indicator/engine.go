package indicator

import (
	"context"
	"fmt"
	"log/slog"
)

// Snapshot is the pair of indicator values the risk gate consumes each
// tick.
type Snapshot struct {
	RSI float64
	ADX float64
}

// Engine fetches candles from a Feed and produces RSI/ADX snapshots. It
// carries no state of its own between ticks; every call re-fetches and
// recomputes from scratch, since derived market state is never persisted.
type Engine struct {
	feed     Feed
	symbol   string
	interval string
	log      *slog.Logger
}

// NewEngine builds an indicator Engine bound to one symbol/interval pair.
func NewEngine(feed Feed, symbol, interval string, log *slog.Logger) *Engine {
	return &Engine{
		feed:     feed,
		symbol:   symbol,
		interval: interval,
		log:      log.With("component", "indicator"),
	}
}

// Compute fetches enough candles for both indicators and returns a
// Snapshot. On any feed or computation failure it returns a
// FeedUnavailableError, which the supervisor's tick pipeline treats as
// deny-admit with no cool-down change.
func (e *Engine) Compute(ctx context.Context) (Snapshot, error) {
	candles, err := e.feed.GetCandles(ctx, e.symbol, e.interval, minCandles)
	if err != nil {
		return Snapshot{}, &FeedUnavailableError{Reason: "GetCandles failed", Cause: err}
	}
	if len(candles) < minCandles {
		return Snapshot{}, &FeedUnavailableError{
			Reason: fmt.Sprintf("feed returned %d candles, need at least %d", len(candles), minCandles),
		}
	}

	rsi, err := RSI(candles, Period)
	if err != nil {
		return Snapshot{}, err
	}
	adx, err := ADX(candles, Period)
	if err != nil {
		return Snapshot{}, err
	}

	e.log.Debug("computed indicators", "rsi", rsi, "adx", adx, "candle_count", len(candles))
	return Snapshot{RSI: rsi, ADX: adx}, nil
}
