package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestResult holds everything one symbol/timeframe run produced.
// The engine fills it during the walk and never touches it afterwards.
type BacktestResult struct {
	Symbol    string
	Timeframe Interval

	Positions []*Position

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal

	TotalPnl  decimal.Decimal
	TotalFees decimal.Decimal
	NetPnl    decimal.Decimal
	AvgWin    decimal.Decimal
	AvgLoss   decimal.Decimal

	HodlReturn decimal.Decimal
	HodlPnl    decimal.Decimal
	FirstPrice decimal.Decimal
	LastPrice  decimal.Decimal

	StartDate time.Time
	EndDate   time.Time

	PatternsDetected int
	EmaFilterBlocked int
}
