package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one closed OHLCV observation. Timestamp is the open time of
// the bucket, CloseTime the end of it; within a series open times are
// strictly increasing and unique.
type Candle struct {
	Symbol              string          `json:"symbol"`
	Interval            Interval        `json:"interval"`
	Timestamp           time.Time       `json:"timestamp"`
	Open                decimal.Decimal `json:"open"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	Close               decimal.Decimal `json:"close"`
	Volume              decimal.Decimal `json:"volume"`
	CloseTime           time.Time       `json:"close_time"`
	QuoteVolume         decimal.Decimal `json:"quote_volume"`
	Trades              int64           `json:"trades"`
	TakerBuyBaseVolume  decimal.Decimal `json:"taker_buy_base_volume"`
	TakerBuyQuoteVolume decimal.Decimal `json:"taker_buy_quote_volume"`
}
