package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

// Adapter is the subset of the exchange adapter the controller drives,
// narrow to the controller's needs rather than the full concrete client.
type Adapter interface {
	GetTopOfBook(ctx context.Context, marketID string) (bid, ask decimal.Decimal, err error)
	PlaceOrder(ctx context.Context, marketID string, side types.Side, price, size decimal.Decimal) (uint32, error)
	CancelOrder(ctx context.Context, orderID uint32) error
}

// OrderSource is the read-only view of open orders the controller diffs
// against; the tracker itself is owned by the adapter.
type OrderSource interface {
	ListOpenSide(side types.Side) []types.Order
}

// postOnlyWouldMatcher is asserted via errors.As against adapter-returned
// errors so the controller can distinguish the drop-and-requote case from
// a propagating failure, without the grid package depending on the
// concrete exchange package.
type postOnlyWouldMatcher interface {
	error
	PostOnlyWouldMatch() bool
}

// Controller computes a ladder every tick, diffs it against open orders,
// and drives the adapter's place/cancel calls.
type Controller struct {
	adapter  Adapter
	orders   OrderSource
	marketID string
	cfg      Config
	log      *slog.Logger
}

// NewController builds a Controller bound to one market.
func NewController(adapter Adapter, orders OrderSource, marketID string, cfg Config, log *slog.Logger) *Controller {
	return &Controller{
		adapter:  adapter,
		orders:   orders,
		marketID: marketID,
		cfg:      cfg,
		log:      log.With("component", "grid"),
	}
}

// RunTick executes one full grid cycle: read top of book, compute the
// desired ladder, diff against the tracker, issue cancels then places.
// position is the signed open position, handed in as an input — the
// controller never fetches it itself.
func (c *Controller) RunTick(ctx context.Context, position decimal.Decimal) (types.GridPlan, error) {
	bid, ask, err := c.adapter.GetTopOfBook(ctx, c.marketID)
	if err != nil {
		return types.GridPlan{}, fmt.Errorf("grid: get top of book: %w", err)
	}

	plan := Plan(bid, ask, position, c.cfg)

	openBuys := c.orders.ListOpenSide(types.Buy)
	openSells := c.orders.ListOpenSide(types.Sell)
	toPlace, toCancel := Diff(plan, openBuys, openSells)

	// Cancels before places, farthest-from-mid first, to free room for
	// post-only acceptance.
	for _, o := range toCancel {
		if err := c.adapter.CancelOrder(ctx, o.ClientOrderID); err != nil {
			c.log.Warn("cancel failed", "client_order_id", o.ClientOrderID, "err", err)
		}
	}

	// Places, nearest-to-mid first, so the book is visibly quoted as fast
	// as possible.
	for _, lvl := range toPlace {
		_, err := c.adapter.PlaceOrder(ctx, c.marketID, lvl.Side, lvl.Price, lvl.Size)
		if err != nil {
			var wouldMatch postOnlyWouldMatcher
			if errors.As(err, &wouldMatch) {
				// Dropped silently; next tick re-quotes from the
				// then-current book.
				c.log.Debug("post-only would have crossed, dropping", "price", lvl.Price, "side", lvl.Side)
				continue
			}
			return plan, fmt.Errorf("grid: place order: %w", err)
		}
	}

	return plan, nil
}

// CancelAll is the cool-down/terminal fallback: cancel every open order on
// both sides. Flattening position
// itself is a venue-specific operation the supervisor performs through the
// adapter's order-placement path (a single post-only order at the current
// top of book, outside this package's ladder-geometry concern); this method handles the
// "cancel the current ladder" half of that fallback.
func (c *Controller) CancelAll(ctx context.Context) error {
	var firstErr error
	for _, side := range []types.Side{types.Buy, types.Sell} {
		for _, o := range c.orders.ListOpenSide(side) {
			if err := c.adapter.CancelOrder(ctx, o.ClientOrderID); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
