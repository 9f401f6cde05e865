package indicator

import "gridmm/pkg/types"

// wilderSmooth applies Wilder's recursive smoothing (equivalent to an EMA
// with alpha = 1/period) to a series, seeding with the simple average of the
// first `period` values and recursing y_t = y_{t-1} + (x_t - y_{t-1})/period
// over the rest. It returns the smoothed series aligned to the input,
// starting at index period-1.
func wilderSmooth(series []float64, period int) []float64 {
	if len(series) < period {
		return nil
	}
	out := make([]float64, 0, len(series)-period+1)

	var seed float64
	for i := 0; i < period; i++ {
		seed += series[i]
	}
	seed /= float64(period)
	out = append(out, seed)

	prev := seed
	for i := period; i < len(series); i++ {
		prev = prev + (series[i]-prev)/float64(period)
		out = append(out, prev)
	}
	return out
}

// ADX computes the Wilder-smoothed average directional index over the
// given period. A prior implementation that smoothed +DM/-DM/TR
// with a simple moving average instead of Wilder's recursion produced
// values roughly 2x the correct magnitude; wilderSmooth above is the
// contract that avoids that error, not an optimization.
func ADX(candles []types.Candle, period int) (float64, error) {
	// period+1 bars give the first TR/DM seed and period-1 more give the
	// DX seed, so 2*period bars yield the seeded ADX value; one more bar is
	// required so at least one Wilder recursion step is applied to DX.
	if len(candles) < 2*period+1 {
		return 0, &FeedUnavailableError{Reason: "not enough candles for ADX"}
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], _ = c.High.Float64()
		lows[i], _ = c.Low.Float64()
		closes[i], _ = c.Close.Float64()
	}

	n := len(candles)
	tr := make([]float64, 0, n-1)
	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)

	for i := 1; i < n; i++ {
		high, low, prevClose := highs[i], lows[i], closes[i-1]
		trueRange := maxFloat(high-low, absFloat(high-prevClose), absFloat(low-prevClose))
		tr = append(tr, trueRange)

		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]

		var plus, minus float64
		if upMove > downMove && upMove > 0 {
			plus = upMove
		}
		if downMove > upMove && downMove > 0 {
			minus = downMove
		}
		plusDM = append(plusDM, plus)
		minusDM = append(minusDM, minus)
	}

	trSmooth := wilderSmooth(tr, period)
	plusDMSmooth := wilderSmooth(plusDM, period)
	minusDMSmooth := wilderSmooth(minusDM, period)

	if len(trSmooth) == 0 || len(plusDMSmooth) == 0 || len(minusDMSmooth) == 0 {
		return 0, &FeedUnavailableError{Reason: "not enough candles to smooth directional movement"}
	}

	dx := make([]float64, 0, len(trSmooth))
	for i := range trSmooth {
		if trSmooth[i] == 0 {
			dx = append(dx, 0)
			continue
		}
		plusDI := 100 * (plusDMSmooth[i] / trSmooth[i])
		minusDI := 100 * (minusDMSmooth[i] / trSmooth[i])
		sum := plusDI + minusDI
		if sum == 0 {
			dx = append(dx, 0)
			continue
		}
		dx = append(dx, 100*absFloat(plusDI-minusDI)/sum)
	}

	adxSeries := wilderSmooth(dx, period)
	if len(adxSeries) == 0 {
		return 0, &FeedUnavailableError{Reason: "not enough candles to smooth ADX"}
	}
	return adxSeries[len(adxSeries)-1], nil
}

func maxFloat(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
