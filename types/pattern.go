package types

// Pattern identifies a candlestick pattern.
type Pattern string

const (
	Hammer           Pattern = "Hammer"
	ShootingStar     Pattern = "Shooting Star"
	Doji             Pattern = "Doji"
	BullishEngulfing Pattern = "Bullish Engulfing"
	BearishEngulfing Pattern = "Bearish Engulfing"
	MorningStar      Pattern = "Morning Star"
	EveningStar      Pattern = "Evening Star"
)

// Bullish reports whether the pattern is entry-eligible.
func (p Pattern) Bullish() bool {
	switch p {
	case Hammer, BullishEngulfing, MorningStar:
		return true
	case ShootingStar, Doji, BearishEngulfing, EveningStar:
		return false
	}
	return false
}
