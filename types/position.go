package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a single long trade. Exit fields stay at their zero
// values until the position is closed; after CalculatePnl it is never
// mutated again.
type Position struct {
	Symbol        string
	Timeframe     Interval
	EntryTime     time.Time
	EntryPrice    decimal.Decimal
	Quantity      decimal.Decimal
	Pattern       Pattern
	EntryEmaShort float64
	EntryEmaLong  float64

	ExitTime     time.Time
	ExitPrice    decimal.Decimal
	ExitReason   ExitReason
	ExitEmaShort float64
	ExitEmaLong  float64

	Pnl        decimal.Decimal
	PnlPercent decimal.Decimal
	Fees       decimal.Decimal
	NetPnl     decimal.Decimal
}

func NewPosition(
	symbol string,
	timeframe Interval,
	entryTime time.Time,
	entryPrice decimal.Decimal,
	quantity decimal.Decimal,
	pattern Pattern,
	emaShort float64,
	emaLong float64,
) *Position {
	return &Position{
		Symbol:        symbol,
		Timeframe:     timeframe,
		EntryTime:     entryTime,
		EntryPrice:    entryPrice,
		Quantity:      quantity,
		Pattern:       pattern,
		EntryEmaShort: emaShort,
		EntryEmaLong:  emaLong,
	}
}

// CalculatePnl fills in the derived P&L fields. Fees are charged on
// both legs at feePercent of the leg's notional value.
func (p *Position) CalculatePnl(exitPrice decimal.Decimal, feePercent decimal.Decimal) {
	if p.ExitPrice.IsZero() {
		p.ExitPrice = exitPrice
	}

	gross := p.ExitPrice.Sub(p.EntryPrice).Mul(p.Quantity)
	entryFee := p.EntryPrice.Mul(p.Quantity).Mul(feePercent)
	exitFee := p.ExitPrice.Mul(p.Quantity).Mul(feePercent)

	p.Fees = entryFee.Add(exitFee)
	p.Pnl = gross
	p.NetPnl = gross.Sub(p.Fees)
	p.PnlPercent = p.ExitPrice.Sub(p.EntryPrice).Div(p.EntryPrice)
}

// Closed reports whether an exit has been recorded.
func (p *Position) Closed() bool {
	return !p.ExitTime.IsZero()
}

// Win reports whether the trade made money after fees.
func (p *Position) Win() bool {
	return p.NetPnl.GreaterThan(decimal.Zero)
}
