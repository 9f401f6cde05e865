// Package grid implements the grid controller: it computes a desired order
// ladder from top-of-book and position, then diffs it against the
// tracker to produce place/cancel actions. The two-function split — a pure
// planner and a separate reconciler — lets Plan produce a desired state
// that Diff then reconciles against currently open orders, generalized
// from a single bid/ask pair to an N-level ladder.
package grid

import (
	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

// Config holds the ladder geometry parameters.
type Config struct {
	TotalOrders   int             // N, typ. 18
	WindowPercent float64         // W, typ. 0.12
	SafeGap       decimal.Decimal // δ, typ. 5
	GridSpacing   decimal.Decimal // g, typ. 10
	OrderSize     decimal.Decimal // o, typ. 0.001
	MaxMultiplier float64         // k_max, typ. 15
	TickSize      decimal.Decimal // price discretization unit
}

// Plan computes the desired ladder for one tick: the mid-price window, the
// position-ratio side split, and the per-side price levels. bid and ask
// are the current top of book; position is the signed open position in
// base asset.
func Plan(bid, ask, position decimal.Decimal, cfg Config) types.GridPlan {
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))
	lowerWindow := mid.Mul(decimal.NewFromFloat(1 - cfg.WindowPercent))
	upperWindow := mid.Mul(decimal.NewFromFloat(1 + cfg.WindowPercent))

	buyRatio, sellRatio := sideSplit(position, cfg)
	sellCount := int(decimal.NewFromInt(int64(cfg.TotalOrders)).Mul(decimal.NewFromFloat(sellRatio)).Floor().IntPart())
	buyCount := int(decimal.NewFromInt(int64(cfg.TotalOrders)).Mul(decimal.NewFromFloat(buyRatio)).Floor().IntPart())

	sells := sellLevels(ask, sellCount, upperWindow, cfg)
	buys := buyLevels(bid, buyCount, lowerWindow, cfg)

	return types.GridPlan{
		Buys:  buys,
		Sells: sells,
		Mid:   mid,
	}
}

// sideSplit computes the position-ratio-based side split.
func sideSplit(position decimal.Decimal, cfg Config) (buyRatio, sellRatio float64) {
	if cfg.OrderSize.IsZero() {
		return 0.5, 0.5
	}
	absPos, _ := position.Abs().Div(cfg.OrderSize).Float64()
	k := absPos

	if k >= cfg.MaxMultiplier {
		if position.IsPositive() {
			return 0, 1 // only reducing (selling) allowed
		}
		if position.IsNegative() {
			return 1, 0 // only reducing (buying) allowed
		}
		return 0.5, 0.5
	}

	if position.IsZero() {
		return 0.5, 0.5
	}

	r := k / cfg.MaxMultiplier
	if position.IsPositive() {
		return 0.5 * (1 - r), 0.5 * (1 + r)
	}
	// position < 0: mirror.
	return 0.5 * (1 + r), 0.5 * (1 - r)
}

// sellLevels generates ask+δ, ask+δ+g, ... up to sellCount levels, dropping
// any that discretize beyond upperWindow.
func sellLevels(ask decimal.Decimal, count int, upperWindow decimal.Decimal, cfg Config) []types.GridLevel {
	var out []types.GridLevel
	for i := 0; i < count; i++ {
		offset := cfg.SafeGap.Add(cfg.GridSpacing.Mul(decimal.NewFromInt(int64(i))))
		price := discretize(ask.Add(offset), cfg.TickSize)
		if price.GreaterThan(upperWindow) {
			continue
		}
		out = append(out, types.GridLevel{Side: types.Sell, Price: price, Size: cfg.OrderSize})
	}
	return out
}

// buyLevels generates bid-δ, bid-δ-g, ... down to buyCount levels, dropping
// any that discretize below lowerWindow.
func buyLevels(bid decimal.Decimal, count int, lowerWindow decimal.Decimal, cfg Config) []types.GridLevel {
	var out []types.GridLevel
	for i := 0; i < count; i++ {
		offset := cfg.SafeGap.Add(cfg.GridSpacing.Mul(decimal.NewFromInt(int64(i))))
		price := discretize(bid.Sub(offset), cfg.TickSize)
		if price.LessThan(lowerWindow) {
			continue
		}
		out = append(out, types.GridLevel{Side: types.Buy, Price: price, Size: cfg.OrderSize})
	}
	return out
}

// discretize rounds price down to the nearest multiple of tick, the
// exchange's tick-size discretization.
func discretize(price, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return price
	}
	units := price.Div(tick).Floor()
	return units.Mul(tick)
}
