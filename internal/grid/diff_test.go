package grid

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gridmm/pkg/types"
)

func level(side types.Side, price float64) types.GridLevel {
	return types.GridLevel{Side: side, Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(0.001)}
}

func order(id uint32, side types.Side, price float64) types.Order {
	return types.Order{ClientOrderID: id, Side: side, Price: decimal.NewFromFloat(price), Size: decimal.NewFromFloat(0.001), SubmittedAt: time.Now(), State: types.OrderOpen}
}

func TestDiffPlacesMissingAndCancelsStale(t *testing.T) {
	t.Parallel()

	plan := types.GridPlan{
		Buys:  []types.GridLevel{level(types.Buy, 69995), level(types.Buy, 69985)},
		Sells: []types.GridLevel{level(types.Sell, 70015), level(types.Sell, 70025)},
		Mid:   decimal.NewFromInt(70005),
	}

	openBuys := []types.Order{order(1, types.Buy, 69995), order(2, types.Buy, 69975)} // 69975 stale
	openSells := []types.Order{order(3, types.Sell, 70015)}                          // 70025 missing

	toPlace, toCancel := Diff(plan, openBuys, openSells)

	if len(toPlace) != 1 || !toPlace[0].Price.Equal(decimal.NewFromInt(70025)) {
		t.Errorf("toPlace = %+v, want single level at 70025", toPlace)
	}
	if len(toCancel) != 1 || toCancel[0].ClientOrderID != 2 {
		t.Errorf("toCancel = %+v, want single order id=2", toCancel)
	}
}

func TestDiffOrdersCancelsFarthestFirst(t *testing.T) {
	t.Parallel()

	plan := types.GridPlan{Mid: decimal.NewFromInt(70000)}

	openBuys := []types.Order{
		order(1, types.Buy, 69990), // distance 10
		order(2, types.Buy, 69950), // distance 50
		order(3, types.Buy, 69970), // distance 30
	}

	_, toCancel := Diff(plan, openBuys, nil)

	if len(toCancel) != 3 {
		t.Fatalf("len(toCancel) = %d, want 3", len(toCancel))
	}
	if toCancel[0].ClientOrderID != 2 || toCancel[1].ClientOrderID != 3 || toCancel[2].ClientOrderID != 1 {
		t.Errorf("cancel order = %v, want farthest-first [2,3,1]", []uint32{toCancel[0].ClientOrderID, toCancel[1].ClientOrderID, toCancel[2].ClientOrderID})
	}
}

func TestDiffOrdersPlacesNearestFirst(t *testing.T) {
	t.Parallel()

	plan := types.GridPlan{
		Sells: []types.GridLevel{
			level(types.Sell, 70050), // distance 50
			level(types.Sell, 70010), // distance 10
			level(types.Sell, 70030), // distance 30
		},
		Mid: decimal.NewFromInt(70000),
	}

	toPlace, _ := Diff(plan, nil, nil)

	if len(toPlace) != 3 {
		t.Fatalf("len(toPlace) = %d, want 3", len(toPlace))
	}
	want := []string{"70010", "70030", "70050"}
	for i, w := range want {
		if toPlace[i].Price.String() != w {
			t.Errorf("toPlace[%d] = %s, want %s", i, toPlace[i].Price, w)
		}
	}
}

func TestDiffOrdersInBothAreUntouched(t *testing.T) {
	t.Parallel()

	plan := types.GridPlan{
		Buys: []types.GridLevel{level(types.Buy, 69995)},
		Mid:  decimal.NewFromInt(70005),
	}
	openBuys := []types.Order{order(1, types.Buy, 69995)}

	toPlace, toCancel := Diff(plan, openBuys, nil)
	if len(toPlace) != 0 {
		t.Errorf("toPlace = %+v, want empty", toPlace)
	}
	if len(toCancel) != 0 {
		t.Errorf("toCancel = %+v, want empty", toCancel)
	}
}

func TestDiffBucketsToOneCent(t *testing.T) {
	t.Parallel()

	plan := types.GridPlan{
		Buys: []types.GridLevel{level(types.Buy, 69995.004)},
		Mid:  decimal.NewFromInt(70005),
	}
	// Open order at 69995.001 buckets to the same cent as the target.
	openBuys := []types.Order{order(1, types.Buy, 69995.001)}

	toPlace, toCancel := Diff(plan, openBuys, nil)
	if len(toPlace) != 0 || len(toCancel) != 0 {
		t.Errorf("expected no diff for prices within the same cent bucket, got toPlace=%+v toCancel=%+v", toPlace, toCancel)
	}
}
