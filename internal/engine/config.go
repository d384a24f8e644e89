package engine

import (
	"github.com/shopspring/decimal"

	"candlebt/types"
)

// StrategyConfig carries the trading parameters for a run. It is built
// once and passed by value; nothing mutates it afterwards.
type StrategyConfig struct {
	tradeAmount       decimal.Decimal
	feePercent        decimal.Decimal
	takeProfitPct     decimal.Decimal
	stopLossPct       decimal.Decimal // negative fraction
	emaShortPeriod    int
	emaLongPeriod     int
	referenceInterval types.Interval
}

func NewStrategyConfig(
	tradeAmount decimal.Decimal,
	feePercent decimal.Decimal,
	takeProfitPct decimal.Decimal,
	stopLossPct decimal.Decimal,
	emaShortPeriod int,
	emaLongPeriod int,
	referenceInterval types.Interval,
) StrategyConfig {
	return StrategyConfig{
		tradeAmount:       tradeAmount,
		feePercent:        feePercent,
		takeProfitPct:     takeProfitPct,
		stopLossPct:       stopLossPct,
		emaShortPeriod:    emaShortPeriod,
		emaLongPeriod:     emaLongPeriod,
		referenceInterval: referenceInterval,
	}
}

// ReferenceInterval is the timeframe the trend filter runs on.
func (c StrategyConfig) ReferenceInterval() types.Interval {
	return c.referenceInterval
}

// RunConfig lists the symbol/timeframe combinations to simulate and
// how many of them may run at once.
type RunConfig struct {
	symbols    []string
	timeframes []types.Interval
	workers    int
}

func NewRunConfig(symbols []string, timeframes []types.Interval, workers int) RunConfig {
	if workers < 1 {
		workers = 1
	}
	return RunConfig{
		symbols:    symbols,
		timeframes: timeframes,
		workers:    workers,
	}
}
