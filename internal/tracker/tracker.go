// Package tracker implements the authoritative local order book: the venue
// exposes no order-query endpoint, so every outstanding order the adapter
// believes is live must be reconstructed and held here.
package tracker

import (
	"sync"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

// priceBucketScale buckets prices to the cent for the secondary index,
// keyed on (side, price-bucketed-to-1-cent).
const priceBucketScale = 100

// priceKey is the secondary index key: side plus a price rounded to the
// nearest cent.
type priceKey struct {
	side   types.Side
	bucket int64
}

func bucket(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(priceBucketScale)).Round(0).IntPart()
}

// Tracker is the authoritative local view of outstanding orders. It is
// owned exclusively by the adapter; no other component mutates it
// directly. All operations are serialized by an internal mutex and none
// suspend.
type Tracker struct {
	mu sync.Mutex

	byID    map[uint32]types.Order
	byPrice map[priceKey]uint32
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		byID:    make(map[uint32]types.Order),
		byPrice: make(map[priceKey]uint32),
	}
}

// Add records a newly placed order in both indexes.
func (t *Tracker) Add(o types.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byID[o.ClientOrderID] = o
	t.byPrice[priceKey{side: o.Side, bucket: bucket(o.Price)}] = o.ClientOrderID
}

// Remove deletes id from both indexes. It is a no-op if id is not tracked:
// the caller decides whether absence is an error, the tracker just
// reflects current state.
func (t *Tracker) Remove(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	key := priceKey{side: o.Side, bucket: bucket(o.Price)}
	if t.byPrice[key] == id {
		delete(t.byPrice, key)
	}
}

// Contains reports whether id is currently tracked, used by client-order-id
// allocation to detect collisions.
func (t *Tracker) Contains(id uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.byID[id]
	return ok
}

// FindByPrice returns the order on side whose price rounds to the same cent
// as price. tol is accepted for interface parity with a find_by_price
// (side, price, tol=0.01) call shape but is not used: the match is always
// the one-cent bucket, whatever tol is.
func (t *Tracker) FindByPrice(side types.Side, price decimal.Decimal, tol decimal.Decimal) (types.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.byPrice[priceKey{side: side, bucket: bucket(price)}]
	if !ok {
		return types.Order{}, false
	}
	o, ok := t.byID[id]
	return o, ok
}

// ListOpen returns a snapshot slice of all currently tracked orders. The
// copy-out pattern means callers never hold a reference into the
// tracker's internal maps.
func (t *Tracker) ListOpen() []types.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.Order, 0, len(t.byID))
	for _, o := range t.byID {
		out = append(out, o)
	}
	return out
}

// ListOpenSide returns a snapshot of currently tracked orders on one side.
func (t *Tracker) ListOpenSide(side types.Side) []types.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.Order, 0)
	for _, o := range t.byID {
		if o.Side == side {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of tracked (open) orders.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
