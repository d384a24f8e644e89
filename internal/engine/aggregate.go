package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"candlebt/types"
)

// TimeframeSummary aggregates every symbol's result for one timeframe.
type TimeframeSummary struct {
	Timeframe     types.Interval
	TotalTrades   int
	TotalPnl      decimal.Decimal
	NetPnl        decimal.Decimal
	AvgWinRate    decimal.Decimal
	SymbolsTraded int
}

// Summary reduces a whole run to overall totals plus a per-timeframe
// ranking, best first.
type Summary struct {
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          decimal.Decimal
	TotalPnl         decimal.Decimal
	TotalFees        decimal.Decimal
	NetPnl           decimal.Decimal
	PatternsDetected int
	EmaFilterBlocked int
	BestTimeframe    types.Interval
	Timeframes       []TimeframeSummary
}

// Aggregate groups results by timeframe and reduces them. The average
// win rate only counts combinations that actually traded, as does the
// distinct-symbol count. Timeframes are ranked by net P&L descending,
// with the timeframe name as tie-break so the order is deterministic.
func Aggregate(results []*types.BacktestResult) Summary {
	type tfAccum struct {
		trades   int
		totalPnl decimal.Decimal
		netPnl   decimal.Decimal
		winRates []decimal.Decimal
		symbols  map[string]struct{}
	}

	accums := make(map[types.Interval]*tfAccum)
	var summary Summary

	for _, result := range results {
		if result == nil {
			continue
		}

		acc := accums[result.Timeframe]
		if acc == nil {
			acc = &tfAccum{symbols: make(map[string]struct{})}
			accums[result.Timeframe] = acc
		}

		acc.trades += result.TotalTrades
		acc.totalPnl = acc.totalPnl.Add(result.TotalPnl)
		acc.netPnl = acc.netPnl.Add(result.NetPnl)
		if result.TotalTrades > 0 {
			acc.winRates = append(acc.winRates, result.WinRate)
			acc.symbols[result.Symbol] = struct{}{}
		}

		summary.TotalTrades += result.TotalTrades
		summary.WinningTrades += result.WinningTrades
		summary.LosingTrades += result.LosingTrades
		summary.TotalPnl = summary.TotalPnl.Add(result.TotalPnl)
		summary.TotalFees = summary.TotalFees.Add(result.TotalFees)
		summary.NetPnl = summary.NetPnl.Add(result.NetPnl)
		summary.PatternsDetected += result.PatternsDetected
		summary.EmaFilterBlocked += result.EmaFilterBlocked
	}

	for interval, acc := range accums {
		avgWinRate := decimal.Zero
		if len(acc.winRates) > 0 {
			for _, r := range acc.winRates {
				avgWinRate = avgWinRate.Add(r)
			}
			avgWinRate = avgWinRate.Div(decimal.NewFromInt(int64(len(acc.winRates))))
		}
		summary.Timeframes = append(summary.Timeframes, TimeframeSummary{
			Timeframe:     interval,
			TotalTrades:   acc.trades,
			TotalPnl:      acc.totalPnl,
			NetPnl:        acc.netPnl,
			AvgWinRate:    avgWinRate,
			SymbolsTraded: len(acc.symbols),
		})
	}

	sort.Slice(summary.Timeframes, func(i, j int) bool {
		a, b := summary.Timeframes[i], summary.Timeframes[j]
		if !a.NetPnl.Equal(b.NetPnl) {
			return a.NetPnl.GreaterThan(b.NetPnl)
		}
		return a.Timeframe < b.Timeframe
	})

	if len(summary.Timeframes) > 0 {
		summary.BestTimeframe = summary.Timeframes[0].Timeframe
	}
	if summary.TotalTrades > 0 {
		summary.WinRate = decimal.NewFromInt(int64(summary.WinningTrades)).
			Div(decimal.NewFromInt(int64(summary.TotalTrades)))
	}
	return summary
}
