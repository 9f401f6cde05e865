// Package supervisor implements the tick loop: a single-threaded
// cooperative core that sequences session maintenance, the indicator
// engine, the risk gate, and the grid controller once per cycle, recovers
// from panics with a back-off, and runs a structural shutdown sequence on
// cancellation.
//
// The lifecycle shape — New() wiring collaborators, Run() blocking until
// context cancellation, a terminal sequence on the way out — is collapsed
// into one blocking Run() since there is a single tick loop rather than
// one goroutine per market.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"gridmm/internal/indicator"
	"gridmm/pkg/types"
)

// SessionEnsurer is the subset of the exchange adapter the tick loop needs
// to keep the session alive.
type SessionEnsurer interface {
	EnsureSession(ctx context.Context) error
}

// IndicatorEngine computes the per-tick RSI/ADX snapshot.
type IndicatorEngine interface {
	Compute(ctx context.Context) (indicator.Snapshot, error)
}

// RiskGate evaluates the regime decision.
type RiskGate interface {
	Evaluate(rsi, adx float64, now time.Time) types.GateDecision
}

// GridController reconciles the ladder against live orders and can cancel
// every open order as a safety net.
type GridController interface {
	RunTick(ctx context.Context, position decimal.Decimal) (types.GridPlan, error)
	CancelAll(ctx context.Context) error
}

// PositionSource exposes the adapter's last position heartbeat.
type PositionSource interface {
	Position() (decimal.Decimal, bool)
}

// Flattener is the subset of the adapter needed to close out a position on
// shutdown with a single post-only order at the current top of book.
type Flattener interface {
	GetTopOfBook(ctx context.Context, marketID string) (bid, ask decimal.Decimal, err error)
	PlaceOrder(ctx context.Context, marketID string, side types.Side, price, size decimal.Decimal) (uint32, error)
}

// Config tunes the supervisor's cycle period, failure back-off, and
// shutdown behavior.
type Config struct {
	CycleInterval      time.Duration
	Backoff            time.Duration
	FlattenOnShutdown  bool
	MarketID           string
	CancelAllRetries   int
	CancelAllRetryWait time.Duration
}

// DefaultConfig returns sane defaults: a few seconds between ticks and a
// 60s back-off after any exception.
func DefaultConfig(marketID string) Config {
	return Config{
		CycleInterval:      5 * time.Second,
		Backoff:            60 * time.Second,
		FlattenOnShutdown:  false,
		MarketID:           marketID,
		CancelAllRetries:   3,
		CancelAllRetryWait: 2 * time.Second,
	}
}

// Supervisor runs the tick loop. It never mutates the session, the
// tracker, or the cool-down record itself; it only sequences calls into
// the components that own them.
type Supervisor struct {
	cfg        Config
	session    SessionEnsurer
	engine     IndicatorEngine
	gate       RiskGate
	controller GridController
	positions  PositionSource
	flattener  Flattener
	logger     *slog.Logger
}

// New wires a Supervisor from its collaborators.
func New(cfg Config, session SessionEnsurer, engine IndicatorEngine, gate RiskGate, controller GridController, positions PositionSource, flattener Flattener, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		session:    session,
		engine:     engine,
		gate:       gate,
		controller: controller,
		positions:  positions,
		flattener:  flattener,
		logger:     logger.With("component", "supervisor"),
	}
}

// Run blocks, ticking at cfg.CycleInterval, until ctx is cancelled. No two
// ticks overlap: this loop is a single sequential for-select, so a tick
// that runs long simply delays the next tick's scheduled fire. On
// cancellation it runs the terminal shutdown sequence before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown(context.Background())
			return nil
		case <-ticker.C:
			s.runTickRecovered(ctx)
		}
	}
}

// runTickRecovered is the supervisor's only recover() site. A failing or
// panicking tick sleeps for the configured back-off before the loop
// resumes, interruptible by ctx.
func (s *Supervisor) runTickRecovered(ctx context.Context) {
	err := s.runTickCaught(ctx)
	if err == nil {
		return
	}
	s.logger.Error("tick failed, backing off", "err", err, "backoff", s.cfg.Backoff)
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.Backoff):
	}
}

func (s *Supervisor) runTickCaught(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return s.tick(ctx)
}

// tick sequences ensure_session -> indicator compute -> risk gate ->
// grid controller.
func (s *Supervisor) tick(ctx context.Context) error {
	if err := s.session.EnsureSession(ctx); err != nil {
		return err
	}

	admit := false
	reason := ""

	snap, err := s.engine.Compute(ctx)
	if err != nil {
		var feedErr *indicator.FeedUnavailableError
		if !errors.As(err, &feedErr) {
			return err
		}
		// The gate is never consulted on a feed outage, so its cool-down
		// state is left untouched — deny admission without arming cool-down.
		s.logger.Warn("indicator feed unavailable, denying admission this tick", "err", err)
		reason = "feed_unavailable"
	} else {
		decision := s.gate.Evaluate(snap.RSI, snap.ADX, time.Now())
		admit = decision.Admit
		reason = decision.Reason
	}

	if !admit {
		s.logger.Info("admission denied, cancelling open orders", "reason", reason)
		return s.controller.CancelAll(ctx)
	}

	position, _ := s.positions.Position()
	plan, err := s.controller.RunTick(ctx, position)
	if err != nil {
		return err
	}
	s.logger.Debug("tick complete", "buys", len(plan.Buys), "sells", len(plan.Sells), "mid", plan.Mid)
	return nil
}

// shutdown is the terminal sequence: cancel all open orders with bounded
// best-effort retries, then flatten if configured.
func (s *Supervisor) shutdown(ctx context.Context) {
	s.logger.Info("shutdown signal received, running terminal sequence")

	var lastErr error
	for attempt := 1; attempt <= s.cfg.CancelAllRetries; attempt++ {
		lastErr = s.controller.CancelAll(ctx)
		if lastErr == nil {
			break
		}
		s.logger.Warn("cancel-all attempt failed", "attempt", attempt, "err", lastErr)
		select {
		case <-time.After(s.cfg.CancelAllRetryWait):
		case <-ctx.Done():
		}
	}
	if lastErr != nil {
		s.logger.Error("cancel-all did not succeed after retries", "err", lastErr)
	}

	if s.cfg.FlattenOnShutdown {
		if err := s.flatten(ctx); err != nil {
			s.logger.Error("flatten on shutdown failed", "err", err)
		}
	}

	s.logger.Info("terminal sequence complete")
}

// flatten closes out any remaining position with a single post-only order
// at the current top of book: a sell at ask to close a long, a buy at bid
// to close a short. Best-effort — no retries, no guarantee of a fill,
// consistent with the non-goal of take-profit/stop-loss order management.
func (s *Supervisor) flatten(ctx context.Context) error {
	position, ok := s.positions.Position()
	if !ok || position.IsZero() {
		return nil
	}

	bid, ask, err := s.flattener.GetTopOfBook(ctx, s.cfg.MarketID)
	if err != nil {
		return err
	}

	side := types.Sell
	price := ask
	if position.IsNegative() {
		side = types.Buy
		price = bid
	}
	size := position.Abs()

	s.logger.Info("flattening position", "position", position, "side", side, "price", price, "size", size)
	_, err = s.flattener.PlaceOrder(ctx, s.cfg.MarketID, side, price, size)
	return err
}
