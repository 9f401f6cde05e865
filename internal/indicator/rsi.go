package indicator

import "gridmm/pkg/types"

// RSI computes the standard Wilder relative strength index over the given
// period using closes. It requires len(candles) >= period+1.
//
// Initial average gain/loss is the simple mean of the first `period` diffs;
// every subsequent value uses Wilder's recursion avg_t = (avg_{t-1}*(period-1)
// + x_t) / period. This recursion — not a plain moving average — is
// load-bearing: see ADX's doc comment for the magnitude error a naive SMA
// substitution produces.
func RSI(candles []types.Candle, period int) (float64, error) {
	if len(candles) < period+1 {
		return 0, &FeedUnavailableError{Reason: "not enough candles for RSI"}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		f, _ := c.Close.Float64()
		closes[i] = f
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += -diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		var gain, loss float64
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}
