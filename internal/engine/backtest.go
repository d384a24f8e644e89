package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"candlebt/internal/ema"
	"candlebt/internal/patterns"
	"candlebt/internal/series"
	"candlebt/types"
)

var one = decimal.NewFromInt(1)

// Backtester walks one symbol/timeframe series and produces a
// BacktestResult. It carries no per-run state, so a single instance
// can serve concurrent runs.
type Backtester struct {
	config StrategyConfig
}

func NewBacktester(config StrategyConfig) *Backtester {
	return &Backtester{config: config}
}

// Backtest simulates the strategy over candles, consulting refCandles
// for the trend filter. Both series must be sorted and deduplicated
// (series.Merge output satisfies this); a violated invariant is
// reported as an error before any candle is processed.
//
// At most one position is open at a time. The walk starts at the third
// candle so the three-candle patterns have their lookback, exits are
// evaluated before entries, and an exit on candle i leaves the machine
// free to re-enter on that same candle.
func (b *Backtester) Backtest(symbol string, timeframe types.Interval, candles, refCandles []types.Candle) (*types.BacktestResult, error) {
	if err := series.Validate(candles); err != nil {
		return nil, fmt.Errorf("trading series %s/%s: %w", symbol, timeframe, err)
	}
	if err := series.Validate(refCandles); err != nil {
		return nil, fmt.Errorf("reference series %s: %w", symbol, err)
	}

	result := &types.BacktestResult{Symbol: symbol, Timeframe: timeframe}
	if len(candles) > 0 {
		result.StartDate = candles[0].Timestamp
		result.EndDate = candles[len(candles)-1].Timestamp
	}
	if len(candles) < 3 {
		// Too short for any pattern; an empty result, not an error.
		return result, nil
	}

	result.FirstPrice = candles[0].Close
	result.LastPrice = candles[len(candles)-1].Close
	result.HodlReturn = result.LastPrice.Sub(result.FirstPrice).Div(result.FirstPrice)
	result.HodlPnl = b.config.tradeAmount.Mul(result.HodlReturn)

	var open *types.Position

	for i := 2; i < len(candles); i++ {
		candle := candles[i]
		ts := candle.Timestamp

		pattern, found := patterns.Detect(candles, i)
		if found {
			result.PatternsDetected++
		}

		if open != nil {
			if reason, fill, exit := b.checkExit(open, candle, refCandles); exit {
				b.closePosition(open, ts, fill, reason, refCandles, result)
				open = nil
			}
		}

		if open == nil && found && pattern.Bullish() {
			emaShort, emaLong, ok := ema.At(refCandles, ts, b.config.emaShortPeriod, b.config.emaLongPeriod)
			switch {
			case !ok:
				// Not enough reference history yet: no entry, and the
				// filter did not actively block anything.
			case emaShort > emaLong:
				entryPrice := candle.Close
				open = types.NewPosition(
					symbol,
					timeframe,
					ts,
					entryPrice,
					b.config.tradeAmount.Div(entryPrice),
					pattern,
					emaShort,
					emaLong,
				)
			default:
				result.EmaFilterBlocked++
			}
		}
	}

	if open != nil {
		last := candles[len(candles)-1]
		b.closePosition(open, last.Timestamp, last.Close, types.ExitForcedClose, refCandles, result)
	}

	b.finalize(result)
	return result, nil
}

// checkExit evaluates the exit rules in fixed precedence: take profit,
// stop loss, then the EMA bearish exit, which only fires while the
// position is under water. Take profit and stop loss fill at their
// exact thresholds; the EMA exit fills at the candle close.
func (b *Backtester) checkExit(pos *types.Position, candle types.Candle, refCandles []types.Candle) (types.ExitReason, decimal.Decimal, bool) {
	price := candle.Close
	unrealized := price.Sub(pos.EntryPrice).Div(pos.EntryPrice)

	if unrealized.GreaterThanOrEqual(b.config.takeProfitPct) {
		fill := pos.EntryPrice.Mul(one.Add(b.config.takeProfitPct))
		return types.ExitTakeProfit, fill, true
	}
	if unrealized.LessThanOrEqual(b.config.stopLossPct) {
		fill := pos.EntryPrice.Mul(one.Add(b.config.stopLossPct))
		return types.ExitStopLoss, fill, true
	}
	if unrealized.IsNegative() {
		emaShort, emaLong, ok := ema.At(refCandles, candle.Timestamp, b.config.emaShortPeriod, b.config.emaLongPeriod)
		if ok && emaShort < emaLong {
			return types.ExitEmaBearish, price, true
		}
	}
	return "", decimal.Decimal{}, false
}

// closePosition records the exit, computes P&L and appends the position
// to the result. The exit EMAs are recomputed for reporting no matter
// which rule fired.
func (b *Backtester) closePosition(pos *types.Position, ts time.Time, fill decimal.Decimal, reason types.ExitReason, refCandles []types.Candle, result *types.BacktestResult) {
	pos.ExitTime = ts
	pos.ExitPrice = fill
	pos.ExitReason = reason

	if emaShort, emaLong, ok := ema.At(refCandles, ts, b.config.emaShortPeriod, b.config.emaLongPeriod); ok {
		pos.ExitEmaShort = emaShort
		pos.ExitEmaLong = emaLong
	}

	pos.CalculatePnl(fill, b.config.feePercent)

	result.Positions = append(result.Positions, pos)
	result.TotalTrades++
	if pos.Win() {
		result.WinningTrades++
	} else {
		result.LosingTrades++
	}
}

func (b *Backtester) finalize(result *types.BacktestResult) {
	if result.TotalTrades == 0 {
		return
	}

	result.WinRate = decimal.NewFromInt(int64(result.WinningTrades)).
		Div(decimal.NewFromInt(int64(result.TotalTrades)))

	sumWins := decimal.Zero
	sumLosses := decimal.Zero
	winCount := 0
	lossCount := 0

	for _, pos := range result.Positions {
		result.TotalPnl = result.TotalPnl.Add(pos.Pnl)
		result.TotalFees = result.TotalFees.Add(pos.Fees)
		result.NetPnl = result.NetPnl.Add(pos.NetPnl)

		if pos.Win() {
			sumWins = sumWins.Add(pos.NetPnl)
			winCount++
		} else {
			sumLosses = sumLosses.Add(pos.NetPnl)
			lossCount++
		}
	}

	if winCount > 0 {
		result.AvgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		result.AvgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
	}
}
