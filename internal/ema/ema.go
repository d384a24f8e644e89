package ema

import (
	"time"

	"candlebt/types"
)

// Calculate computes the exponential moving average sequence over
// prices with alpha = 2/(period+1). The first value seeds with the
// first price.
func Calculate(prices []float64, period int) []float64 {
	if len(prices) == 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out
}

// At returns the short/long EMA pair over the reference series as of
// target. Only candles whose close time is strictly before target
// contribute, so a value can never see the candle the caller is
// standing on. ok is false when fewer completed candles exist than the
// longest period needs.
//
// The pair is recomputed from scratch on every query; it is a pure
// function of its inputs and safe to call from concurrent runs.
func At(refCandles []types.Candle, target time.Time, shortPeriod, longPeriod int) (float64, float64, bool) {
	prices := make([]float64, 0, len(refCandles))
	for _, c := range refCandles {
		if c.CloseTime.Before(target) {
			prices = append(prices, c.Close.InexactFloat64())
		}
	}

	need := shortPeriod
	if longPeriod > need {
		need = longPeriod
	}
	if need < 1 || len(prices) < need {
		return 0, 0, false
	}

	short := Calculate(prices, shortPeriod)
	long := Calculate(prices, longPeriod)
	return short[len(short)-1], long[len(long)-1], true
}

// IsBullish reports whether the short EMA is above the long EMA at
// target. Absent values count as not bullish.
func IsBullish(refCandles []types.Candle, target time.Time, shortPeriod, longPeriod int) bool {
	short, long, ok := At(refCandles, target, shortPeriod, longPeriod)
	return ok && short > long
}
