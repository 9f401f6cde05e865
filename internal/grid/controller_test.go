package grid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

type fakeWouldMatchErr struct{}

func (fakeWouldMatchErr) Error() string            { return "post-only would match" }
func (fakeWouldMatchErr) PostOnlyWouldMatch() bool { return true }

type fakeAdapter struct {
	bid, ask     decimal.Decimal
	placed       []types.GridLevel
	cancelled    []uint32
	placeErr     error
	topOfBookErr error
	nextID       uint32
}

func (f *fakeAdapter) GetTopOfBook(ctx context.Context, marketID string) (decimal.Decimal, decimal.Decimal, error) {
	if f.topOfBookErr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, f.topOfBookErr
	}
	return f.bid, f.ask, nil
}

func (f *fakeAdapter) PlaceOrder(ctx context.Context, marketID string, side types.Side, price, size decimal.Decimal) (uint32, error) {
	if f.placeErr != nil {
		return 0, f.placeErr
	}
	f.nextID++
	f.placed = append(f.placed, types.GridLevel{Side: side, Price: price, Size: size})
	return f.nextID, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, orderID uint32) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

type fakeOrderSource struct {
	buys, sells []types.Order
}

func (f *fakeOrderSource) ListOpenSide(side types.Side) []types.Order {
	if side == types.Buy {
		return f.buys
	}
	return f.sells
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunTickPlacesFullLadderFromCleanState(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{bid: decimal.NewFromInt(70000), ask: decimal.NewFromInt(70010)}
	orders := &fakeOrderSource{}
	ctl := NewController(adapter, orders, "BTC-PERP", testConfig(), testLog())

	plan, err := ctl.RunTick(context.Background(), decimal.Zero)
	if err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	if len(plan.Buys) != 9 || len(plan.Sells) != 9 {
		t.Fatalf("unexpected plan shape: buys=%d sells=%d", len(plan.Buys), len(plan.Sells))
	}
	if len(adapter.placed) != 18 {
		t.Errorf("placed %d orders, want 18", len(adapter.placed))
	}
	if len(adapter.cancelled) != 0 {
		t.Errorf("cancelled %d orders, want 0 from a clean state", len(adapter.cancelled))
	}
}

func TestRunTickSwallowsPostOnlyWouldMatch(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		bid:      decimal.NewFromInt(70000),
		ask:      decimal.NewFromInt(70010),
		placeErr: fakeWouldMatchErr{},
	}
	orders := &fakeOrderSource{}
	ctl := NewController(adapter, orders, "BTC-PERP", testConfig(), testLog())

	_, err := ctl.RunTick(context.Background(), decimal.Zero)
	if err != nil {
		t.Fatalf("RunTick should swallow PostOnlyWouldMatch, got error: %v", err)
	}
}

func TestRunTickPropagatesOtherPlaceFailures(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{
		bid:      decimal.NewFromInt(70000),
		ask:      decimal.NewFromInt(70010),
		placeErr: errors.New("transport failure"),
	}
	orders := &fakeOrderSource{}
	ctl := NewController(adapter, orders, "BTC-PERP", testConfig(), testLog())

	_, err := ctl.RunTick(context.Background(), decimal.Zero)
	if err == nil {
		t.Fatal("expected propagated error")
	}
}

func TestRunTickPropagatesTopOfBookFailure(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{topOfBookErr: errors.New("timeout")}
	orders := &fakeOrderSource{}
	ctl := NewController(adapter, orders, "BTC-PERP", testConfig(), testLog())

	_, err := ctl.RunTick(context.Background(), decimal.Zero)
	if err == nil {
		t.Fatal("expected propagated error from GetTopOfBook failure")
	}
}

func TestCancelAllCancelsEverySide(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{}
	orders := &fakeOrderSource{
		buys:  []types.Order{{ClientOrderID: 1}, {ClientOrderID: 2}},
		sells: []types.Order{{ClientOrderID: 3}},
	}
	ctl := NewController(adapter, orders, "BTC-PERP", testConfig(), testLog())

	if err := ctl.CancelAll(context.Background()); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if len(adapter.cancelled) != 3 {
		t.Errorf("cancelled %d orders, want 3", len(adapter.cancelled))
	}
}
