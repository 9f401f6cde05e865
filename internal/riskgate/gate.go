// Package riskgate classifies the instantaneous market regime from RSI and
// ADX and maintains the cool-down state that forces the grid controller
// into cancel-all/flatten mode. The state machine is a boolean-armed
// suspension with a time-bounded exit: this gate admits or denies
// regime-driven trading, it does not bound position exposure.
package riskgate

import (
	"log/slog"
	"sync"
	"time"

	"gridmm/pkg/types"
)

// Config holds the regime thresholds.
type Config struct {
	RSIMin            float64
	RSIMax            float64
	ADXTrendThreshold float64 // typ. 25
	ADXStrongTrend    float64 // typ. 30
	CooldownDuration  time.Duration
}

// DefaultConfig returns the stated defaults.
func DefaultConfig() Config {
	return Config{
		RSIMin:            30,
		RSIMax:            70,
		ADXTrendThreshold: 25,
		ADXStrongTrend:    30,
		CooldownDuration:  15 * time.Minute,
	}
}

// Gate owns the cool-down record exclusively; no mutation of it escapes
// this package's boundary.
type Gate struct {
	mu       sync.Mutex
	cfg      Config
	cooldown types.CooldownRecord
	log      *slog.Logger
}

// New builds a Gate with no active cool-down.
func New(cfg Config, log *slog.Logger) *Gate {
	return &Gate{cfg: cfg, log: log.With("component", "riskgate")}
}

// Evaluate applies the decision table in order and updates cool-down
// state. now is passed in rather than read internally so
// the time-based cool-down exit below is deterministic under test.
func (g *Gate) Evaluate(rsi, adx float64, now time.Time) types.GateDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cooldown.Active {
		if !now.Before(g.cooldown.ExitAt) {
			g.log.Info("cooldown expired, re-evaluating", "reason", g.cooldown.Reason)
			g.cooldown = types.CooldownRecord{}
		} else {
			return types.GateDecision{Admit: false, Reason: g.cooldown.Reason}
		}
	}

	decision := decide(rsi, adx, g.cfg)
	if decision.TriggerCooldown {
		g.cooldown = types.CooldownRecord{
			Active:  true,
			Reason:  decision.Reason,
			EnterAt: now,
			ExitAt:  now.Add(g.cfg.CooldownDuration),
		}
		g.log.Warn("entering cooldown", "reason", decision.Reason, "rsi", rsi, "adx", adx, "exit_at", g.cooldown.ExitAt)
	}
	return decision
}

// decide implements the pure decision table, separated from Evaluate's
// cool-down bookkeeping so boundary cases (ADX exactly 30, ADX exactly 25)
// are directly testable without a Gate instance.
func decide(rsi, adx float64, cfg Config) types.GateDecision {
	switch {
	case adx > cfg.ADXStrongTrend:
		return types.GateDecision{Admit: false, TriggerCooldown: true, Reason: "strong trend"}
	case adx > cfg.ADXTrendThreshold && adx <= cfg.ADXStrongTrend && (rsi < 25 || rsi > 75):
		return types.GateDecision{Admit: false, TriggerCooldown: true, Reason: "extreme RSI under trending market"}
	case adx > cfg.ADXTrendThreshold && adx <= cfg.ADXStrongTrend:
		return types.GateDecision{Admit: true}
	case adx <= cfg.ADXTrendThreshold && (rsi < cfg.RSIMin || rsi > cfg.RSIMax):
		return types.GateDecision{Admit: false, TriggerCooldown: true, Reason: "RSI out of band"}
	default:
		return types.GateDecision{Admit: true}
	}
}

// CooldownRecord returns a copy of the current cool-down state.
func (g *Gate) CooldownRecord() types.CooldownRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldown
}
