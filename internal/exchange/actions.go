package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

// actionKind tags the action union serialized as the payload P in the wire
// frame varint(len(P)) ‖ P ‖ sig. The wire schema for P itself is venue-
// specific and undocumented beyond "serialized action"; JSON is used here
// as the serialization for P — the length-prefixed framing constrains the
// outer envelope, not the inner payload encoding.
type actionKind string

const (
	actionCreateSession actionKind = "create_session"
	actionPlaceOrder    actionKind = "place_order"
	actionCancelOrder   actionKind = "cancel_order"
	actionGetTopOfBook  actionKind = "get_top_of_book"
)

// createSessionAction requests a new session, signed with the identity key
// (user-sign form) per §4.3.
type createSessionAction struct {
	Kind           actionKind `json:"kind"`
	SessionPubKey  string     `json:"session_pub_key"`
	RequestedAt    int64      `json:"requested_at_micros"`
}

// placeOrderAction requests a post-only limit order. Price and Size are
// integers in 10⁻⁸ units per §6; Size carries the sign convention (buy
// positive, sell negative).
type placeOrderAction struct {
	Kind          actionKind `json:"kind"`
	SessionID     string     `json:"session_id"`
	MarketID      string     `json:"market_id"`
	ClientOrderID uint32     `json:"client_order_id"`
	Price         int64      `json:"price"`
	Size          int64      `json:"size"`
	PostOnly      bool       `json:"post_only"`
}

// cancelOrderAction requests cancellation of a previously placed order.
type cancelOrderAction struct {
	Kind          actionKind `json:"kind"`
	SessionID     string     `json:"session_id"`
	ClientOrderID uint32     `json:"client_order_id"`
}

// getTopOfBookAction requests the current best bid/ask for a market. Top of
// book is read without a session: no signature shape is documented for it,
// so it is treated as unsigned (see DESIGN.md Open Question #1).
type getTopOfBookAction struct {
	Kind     actionKind `json:"kind"`
	MarketID string     `json:"market_id"`
}

const priceScale = "100000000" // 10^-8 unit scale for prices and sizes on the wire.

func toWireUnits(d decimal.Decimal) int64 {
	scale, _ := decimal.NewFromString(priceScale)
	return d.Mul(scale).IntPart()
}

func fromWireUnits(v int64) decimal.Decimal {
	scale, _ := decimal.NewFromString(priceScale)
	return decimal.NewFromInt(v).Div(scale)
}

// signedSize encodes size with the side's sign convention: buy positive,
// sell negative.
func signedSize(side types.Side, size decimal.Decimal) int64 {
	v := toWireUnits(size)
	if side == types.Sell {
		return -v
	}
	return v
}

func marshalAction(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("exchange: marshal action: %w", err)
	}
	return b, nil
}
