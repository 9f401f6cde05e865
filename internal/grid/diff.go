package grid

import (
	"sort"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

const priceBucketScale = 100

func bucket(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(priceBucketScale)).Round(0).IntPart()
}

// Diff computes the symmetric difference between a GridPlan's target prices
// (bucketed to 1 cent) and the currently open orders on each side. toPlace
// is ordered nearest-to-mid first; toCancel is
// ordered farthest-from-mid first — cancels are meant to be issued before
// places so post-only orders have room to rest, but Diff only orders each
// list; sequencing the two lists together is the caller's job (see
// Controller.RunTick).
func Diff(plan types.GridPlan, openBuys, openSells []types.Order) (toPlace []types.GridLevel, toCancel []types.Order) {
	placeBuy, cancelBuy := diffSide(plan.Buys, openBuys, plan.Mid)
	placeSell, cancelSell := diffSide(plan.Sells, openSells, plan.Mid)

	toPlace = append(toPlace, placeBuy...)
	toPlace = append(toPlace, placeSell...)
	toCancel = append(toCancel, cancelBuy...)
	toCancel = append(toCancel, cancelSell...)

	// Each side arrives sorted; re-sort the combined lists so the ordering
	// holds across both sides, not just within each.
	sort.SliceStable(toPlace, func(i, j int) bool {
		return distance(toPlace[i].Price, plan.Mid).LessThan(distance(toPlace[j].Price, plan.Mid))
	})
	sort.SliceStable(toCancel, func(i, j int) bool {
		return distance(toCancel[i].Price, plan.Mid).GreaterThan(distance(toCancel[j].Price, plan.Mid))
	})
	return toPlace, toCancel
}

func diffSide(target []types.GridLevel, open []types.Order, mid decimal.Decimal) (toPlace []types.GridLevel, toCancel []types.Order) {
	targetBuckets := make(map[int64]types.GridLevel, len(target))
	for _, lvl := range target {
		targetBuckets[bucket(lvl.Price)] = lvl
	}

	openBuckets := make(map[int64]types.Order, len(open))
	for _, o := range open {
		openBuckets[bucket(o.Price)] = o
	}

	for b, lvl := range targetBuckets {
		if _, ok := openBuckets[b]; !ok {
			toPlace = append(toPlace, lvl)
		}
	}
	for b, o := range openBuckets {
		if _, ok := targetBuckets[b]; !ok {
			toCancel = append(toCancel, o)
		}
	}

	// Nearest-to-mid first for places, so the book is visibly quoted as
	// fast as possible.
	sort.Slice(toPlace, func(i, j int) bool {
		return distance(toPlace[i].Price, mid).LessThan(distance(toPlace[j].Price, mid))
	})
	// Farthest-from-mid first for cancels, to free room for post-only
	// acceptance before the closer rungs are touched.
	sort.Slice(toCancel, func(i, j int) bool {
		return distance(toCancel[i].Price, mid).GreaterThan(distance(toCancel[j].Price, mid))
	})

	return toPlace, toCancel
}

func distance(price, mid decimal.Decimal) decimal.Decimal {
	return price.Sub(mid).Abs()
}
