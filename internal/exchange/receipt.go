package exchange

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// receiptKind tags the discriminated union the venue returns: the decoded
// receipt is a tagged variant with one case per outcome kind. receipt and
// outcomeError below are that tagged variant and its exhaustive
// dispatcher; decodeReceiptBody only parses the JSON.
type receiptKind string

const (
	receiptSessionCreated   receiptKind = "session_created"
	receiptOrderPlaced      receiptKind = "order_placed"
	receiptOrderCancelled   receiptKind = "order_cancelled"
	receiptTopOfBook        receiptKind = "top_of_book"
	receiptErrAuthFailure   receiptKind = "error_auth_failure"
	receiptErrSessionExpire receiptKind = "error_session_expired"
	receiptErrOrderNotFound receiptKind = "error_order_not_found"
	receiptErrWouldMatch    receiptKind = "error_post_only_would_match"
)

// receipt is the raw JSON shape of R, the payload decoded from
// varint(len(R)) ‖ R. Optional fields are populated depending on Kind.
type receipt struct {
	Kind receiptKind `json:"kind"`

	SessionID    string `json:"session_id,omitempty"`
	ExpiresMicro int64  `json:"expires_at_micros,omitempty"`

	ClientOrderID uint32 `json:"client_order_id,omitempty"`

	BestBid int64 `json:"best_bid,omitempty"`
	BestAsk int64 `json:"best_ask,omitempty"`

	// Position is present opportunistically on any receipt kind as a
	// heartbeat field, per DESIGN.md's Open Question #2 decision: the
	// adapter surfaces it when present, never fetches it separately.
	Position *string `json:"position,omitempty"`
}

func decodeReceiptBody(body []byte) (*receipt, error) {
	var r receipt
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &MalformedFrameErrorAlias{Cause: err}
	}
	return &r, nil
}

// MalformedFrameErrorAlias reports a receipt-body JSON decode failure. It is
// distinct from the wire-level varint MalformedFrameError: Unwrap returns
// the raw json.Unmarshal error, not a wire.MalformedFrameError, so
// errors.As against the wire-level type will not match through this type.
type MalformedFrameErrorAlias struct {
	Cause error
}

func (e *MalformedFrameErrorAlias) Error() string {
	return fmt.Sprintf("malformed receipt body: %v", e.Cause)
}

func (e *MalformedFrameErrorAlias) Unwrap() error { return e.Cause }

// positionFromReceipt extracts the heartbeat position field, if present.
func positionFromReceipt(r *receipt) (decimal.Decimal, bool) {
	if r.Position == nil {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(*r.Position)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// outcomeError maps an error-kind receipt to the corresponding exported
// error type, giving callers an exhaustive dispatch over every failure
// mode the venue can report.
func outcomeError(r *receipt) error {
	switch r.Kind {
	case receiptErrAuthFailure:
		return &AuthFailureError{Detail: "venue rejected signature"}
	case receiptErrSessionExpire:
		return &SessionExpiredError{SessionID: r.SessionID}
	case receiptErrOrderNotFound:
		return &OrderNotFoundError{ClientOrderID: r.ClientOrderID}
	case receiptErrWouldMatch:
		return &PostOnlyWouldMatchError{ClientOrderID: r.ClientOrderID}
	default:
		return nil
	}
}
