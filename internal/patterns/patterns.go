package patterns

import (
	"github.com/shopspring/decimal"

	"candlebt/types"
)

// Shape thresholds shared by the detectors. A "small" body is at most
// 30% of the candle range, a doji body at most 10%, and the shadow on
// the wrong side of a hammer/shooting star at most 10% of the range.
var (
	smallBodyFrac   = decimal.NewFromFloat(0.3)
	dojiBodyFrac    = decimal.NewFromFloat(0.1)
	minorShadowFrac = decimal.NewFromFloat(0.1)
	two             = decimal.NewFromInt(2)
	half            = decimal.NewFromFloat(0.5)
)

// Detect classifies the candle at index i, looking back up to two
// candles for the multi-candle shapes. Detectors run in fixed priority
// order and the first match wins.
func Detect(candles []types.Candle, i int) (types.Pattern, bool) {
	if i < 0 || i >= len(candles) {
		return "", false
	}
	curr := candles[i]

	if isHammer(curr) {
		return types.Hammer, true
	}
	if isShootingStar(curr) {
		return types.ShootingStar, true
	}
	if isDoji(curr) {
		return types.Doji, true
	}

	if i >= 1 {
		prev := candles[i-1]
		if isBullishEngulfing(prev, curr) {
			return types.BullishEngulfing, true
		}
		if isBearishEngulfing(prev, curr) {
			return types.BearishEngulfing, true
		}
	}

	if i >= 2 {
		first := candles[i-2]
		middle := candles[i-1]
		if isMorningStar(first, middle, curr) {
			return types.MorningStar, true
		}
		if isEveningStar(first, middle, curr) {
			return types.EveningStar, true
		}
	}

	return "", false
}

func body(c types.Candle) decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

func bearish(c types.Candle) bool {
	return c.Close.LessThan(c.Open)
}

func bullish(c types.Candle) bool {
	return c.Close.GreaterThan(c.Open)
}

// isHammer: small body at the upper part of the range, lower shadow at
// least twice the body, little to no upper shadow.
func isHammer(c types.Candle) bool {
	rng := c.High.Sub(c.Low)
	if rng.IsZero() {
		return false
	}

	b := body(c)
	if b.GreaterThan(smallBodyFrac.Mul(rng)) {
		return false
	}
	lowerShadow := decimal.Min(c.Open, c.Close).Sub(c.Low)
	if lowerShadow.LessThan(two.Mul(b)) {
		return false
	}
	upperShadow := c.High.Sub(decimal.Max(c.Open, c.Close))
	return !upperShadow.GreaterThan(minorShadowFrac.Mul(rng))
}

// isShootingStar is the mirror of isHammer.
func isShootingStar(c types.Candle) bool {
	rng := c.High.Sub(c.Low)
	if rng.IsZero() {
		return false
	}

	b := body(c)
	if b.GreaterThan(smallBodyFrac.Mul(rng)) {
		return false
	}
	upperShadow := c.High.Sub(decimal.Max(c.Open, c.Close))
	if upperShadow.LessThan(two.Mul(b)) {
		return false
	}
	lowerShadow := decimal.Min(c.Open, c.Close).Sub(c.Low)
	return !lowerShadow.GreaterThan(minorShadowFrac.Mul(rng))
}

func isDoji(c types.Candle) bool {
	rng := c.High.Sub(c.Low)
	if rng.IsZero() {
		return false
	}
	return !body(c).GreaterThan(dojiBodyFrac.Mul(rng))
}

// isBullishEngulfing: a bearish candle followed by a bullish one whose
// body completely engulfs it.
func isBullishEngulfing(prev, curr types.Candle) bool {
	if !bearish(prev) || !bullish(curr) {
		return false
	}
	return curr.Open.LessThan(prev.Close) && curr.Close.GreaterThan(prev.Open)
}

func isBearishEngulfing(prev, curr types.Candle) bool {
	if !bullish(prev) || !bearish(curr) {
		return false
	}
	return curr.Open.GreaterThan(prev.Close) && curr.Close.LessThan(prev.Open)
}

// isMorningStar: a bearish candle, a small-bodied middle candle, then a
// bullish candle closing above the midpoint of the first body.
func isMorningStar(first, middle, third types.Candle) bool {
	if !bearish(first) || !bullish(third) {
		return false
	}
	if !body(middle).LessThan(half.Mul(body(first))) {
		return false
	}
	midpoint := first.Open.Add(first.Close).Div(two)
	return third.Close.GreaterThan(midpoint)
}

func isEveningStar(first, middle, third types.Candle) bool {
	if !bullish(first) || !bearish(third) {
		return false
	}
	if !body(middle).LessThan(half.Mul(body(first))) {
		return false
	}
	midpoint := first.Open.Add(first.Close).Div(two)
	return third.Close.LessThan(midpoint)
}
