// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — orders, candles, grid
// plans, cool-down records, and gate decisions. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order: buy or sell.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderState is the lifecycle state of a locally tracked order.
type OrderState string

const (
	OrderOpen OrderState = "open"
	OrderDone OrderState = "done"
)

// Order is the authoritative local record of a resting order. ClientOrderID
// is a 32-bit positive integer assigned by the adapter (see 4.3.1 of the
// spec); Price and Size are strictly positive decimals, Side carries the
// sign convention used on the wire.
type Order struct {
	ClientOrderID uint32
	MarketID      string
	Side          Side
	Price         decimal.Decimal
	Size          decimal.Decimal
	SubmittedAt   time.Time
	State         OrderState
}

// Candle is one OHLCV bar.
type Candle struct {
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Timestamp time.Time
}

// GridLevel is a single target rung of the ladder: a price annotated with
// the size that should rest there.
type GridLevel struct {
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

// GridPlan is the ordered ladder the controller computes fresh every tick.
// It is never persisted.
type GridPlan struct {
	Buys        []GridLevel
	Sells       []GridLevel
	Mid         decimal.Decimal
	GeneratedAt time.Time
}

// CooldownRecord is the risk gate's suspension state.
type CooldownRecord struct {
	Active  bool
	Reason  string
	EnterAt time.Time
	ExitAt  time.Time
}

// GateDecision is the risk gate's per-tick verdict.
type GateDecision struct {
	Admit           bool
	TriggerCooldown bool
	Reason          string
}
