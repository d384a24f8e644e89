package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"candlebt/types"
)

var hundred = decimal.NewFromInt(100)

// Report is the JSON document written after a run.
type Report struct {
	GeneratedAt        string                   `json:"generated_at"`
	Configuration      ReportConfiguration      `json:"configuration"`
	OverallStats       OverallStats             `json:"overall_stats"`
	BestTimeframe      string                   `json:"best_timeframe"`
	TimeframeSummaries []TimeframeSummaryReport `json:"timeframe_summaries"`
	Results            []ComboReport            `json:"results"`
}

type ReportConfiguration struct {
	TradeAmount        string `json:"trade_amount"`
	FeePercent         string `json:"fee_percent"`
	TakeProfitPct      string `json:"take_profit_pct"`
	StopLossPct        string `json:"stop_loss_pct"`
	EmaShortPeriod     int    `json:"ema_short_period"`
	EmaLongPeriod      int    `json:"ema_long_period"`
	ReferenceTimeframe string `json:"reference_timeframe"`
}

type OverallStats struct {
	TotalTrades      int    `json:"total_trades"`
	WinningTrades    int    `json:"winning_trades"`
	LosingTrades     int    `json:"losing_trades"`
	WinRate          string `json:"win_rate"`
	TotalPnl         string `json:"total_pnl"`
	TotalFees        string `json:"total_fees"`
	NetPnl           string `json:"net_pnl"`
	PatternsDetected int    `json:"patterns_detected"`
	EmaFilterBlocked int    `json:"ema_filter_blocked"`
}

type TimeframeSummaryReport struct {
	Timeframe     string `json:"timeframe"`
	TotalTrades   int    `json:"total_trades"`
	TotalPnl      string `json:"total_pnl"`
	NetPnl        string `json:"net_pnl"`
	AvgWinRate    string `json:"avg_win_rate"`
	SymbolsTraded int    `json:"symbols_traded"`
}

type ComboReport struct {
	Symbol           string           `json:"symbol"`
	Timeframe        string           `json:"timeframe"`
	TotalTrades      int              `json:"total_trades"`
	WinningTrades    int              `json:"winning_trades"`
	LosingTrades     int              `json:"losing_trades"`
	WinRate          string           `json:"win_rate"`
	TotalPnl         string           `json:"total_pnl"`
	TotalFees        string           `json:"total_fees"`
	NetPnl           string           `json:"net_pnl"`
	AvgWin           string           `json:"avg_win"`
	AvgLoss          string           `json:"avg_loss"`
	HodlReturn       string           `json:"hodl_return"`
	HodlPnl          string           `json:"hodl_pnl"`
	FirstPrice       string           `json:"first_price"`
	LastPrice        string           `json:"last_price"`
	StartDate        string           `json:"start_date"`
	EndDate          string           `json:"end_date"`
	PatternsDetected int              `json:"patterns_detected"`
	EmaFilterBlocked int              `json:"ema_filter_blocked"`
	Positions        []PositionReport `json:"positions"`
}

type PositionReport struct {
	EntryTime     string  `json:"entry_time"`
	EntryPrice    string  `json:"entry_price"`
	ExitTime      string  `json:"exit_time"`
	ExitPrice     string  `json:"exit_price"`
	Quantity      string  `json:"quantity"`
	Pattern       string  `json:"pattern"`
	ExitReason    string  `json:"exit_reason"`
	EntryEmaShort float64 `json:"entry_ema_short"`
	EntryEmaLong  float64 `json:"entry_ema_long"`
	ExitEmaShort  float64 `json:"exit_ema_short"`
	ExitEmaLong   float64 `json:"exit_ema_long"`
	Pnl           string  `json:"pnl"`
	PnlPercent    string  `json:"pnl_percent"`
	Fees          string  `json:"fees"`
	NetPnl        string  `json:"net_pnl"`
}

// BuildReport assembles the JSON report from the run output.
func BuildReport(config StrategyConfig, results []*types.BacktestResult, summary Summary, now time.Time) *Report {
	report := &Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Configuration: ReportConfiguration{
			TradeAmount:        config.tradeAmount.String(),
			FeePercent:         config.feePercent.String(),
			TakeProfitPct:      config.takeProfitPct.String(),
			StopLossPct:        config.stopLossPct.String(),
			EmaShortPeriod:     config.emaShortPeriod,
			EmaLongPeriod:      config.emaLongPeriod,
			ReferenceTimeframe: string(config.referenceInterval),
		},
		OverallStats: OverallStats{
			TotalTrades:      summary.TotalTrades,
			WinningTrades:    summary.WinningTrades,
			LosingTrades:     summary.LosingTrades,
			WinRate:          summary.WinRate.String(),
			TotalPnl:         summary.TotalPnl.String(),
			TotalFees:        summary.TotalFees.String(),
			NetPnl:           summary.NetPnl.String(),
			PatternsDetected: summary.PatternsDetected,
			EmaFilterBlocked: summary.EmaFilterBlocked,
		},
		BestTimeframe: string(summary.BestTimeframe),
	}

	for _, tf := range summary.Timeframes {
		report.TimeframeSummaries = append(report.TimeframeSummaries, TimeframeSummaryReport{
			Timeframe:     string(tf.Timeframe),
			TotalTrades:   tf.TotalTrades,
			TotalPnl:      tf.TotalPnl.String(),
			NetPnl:        tf.NetPnl.String(),
			AvgWinRate:    tf.AvgWinRate.String(),
			SymbolsTraded: tf.SymbolsTraded,
		})
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		report.Results = append(report.Results, buildComboReport(result))
	}
	return report
}

func buildComboReport(result *types.BacktestResult) ComboReport {
	combo := ComboReport{
		Symbol:           result.Symbol,
		Timeframe:        string(result.Timeframe),
		TotalTrades:      result.TotalTrades,
		WinningTrades:    result.WinningTrades,
		LosingTrades:     result.LosingTrades,
		WinRate:          result.WinRate.String(),
		TotalPnl:         result.TotalPnl.String(),
		TotalFees:        result.TotalFees.String(),
		NetPnl:           result.NetPnl.String(),
		AvgWin:           result.AvgWin.String(),
		AvgLoss:          result.AvgLoss.String(),
		HodlReturn:       result.HodlReturn.String(),
		HodlPnl:          result.HodlPnl.String(),
		FirstPrice:       result.FirstPrice.String(),
		LastPrice:        result.LastPrice.String(),
		PatternsDetected: result.PatternsDetected,
		EmaFilterBlocked: result.EmaFilterBlocked,
	}
	if !result.StartDate.IsZero() {
		combo.StartDate = result.StartDate.UTC().Format(time.RFC3339)
	}
	if !result.EndDate.IsZero() {
		combo.EndDate = result.EndDate.UTC().Format(time.RFC3339)
	}
	for _, pos := range result.Positions {
		combo.Positions = append(combo.Positions, PositionReport{
			EntryTime:     pos.EntryTime.UTC().Format(time.RFC3339),
			EntryPrice:    pos.EntryPrice.String(),
			ExitTime:      pos.ExitTime.UTC().Format(time.RFC3339),
			ExitPrice:     pos.ExitPrice.String(),
			Quantity:      pos.Quantity.String(),
			Pattern:       string(pos.Pattern),
			ExitReason:    string(pos.ExitReason),
			EntryEmaShort: pos.EntryEmaShort,
			EntryEmaLong:  pos.EntryEmaLong,
			ExitEmaShort:  pos.ExitEmaShort,
			ExitEmaLong:   pos.ExitEmaLong,
			Pnl:           pos.Pnl.String(),
			PnlPercent:    pos.PnlPercent.String(),
			Fees:          pos.Fees.String(),
			NetPnl:        pos.NetPnl.String(),
		})
	}
	return combo
}

// WriteFile persists the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// PrintSummary renders the run to the console.
func PrintSummary(results []*types.BacktestResult, summary Summary) {
	fmt.Println("===== Backtest Report =====")
	fmt.Printf("Total Trades:          %d\n", summary.TotalTrades)
	fmt.Printf("Winning / Losing:      %d / %d\n", summary.WinningTrades, summary.LosingTrades)
	fmt.Printf("Win Rate:              %s\n", summary.WinRate.Mul(hundred).StringFixed(2)+"%")
	fmt.Printf("Total P&L:             %s\n", summary.TotalPnl.StringFixed(2))
	fmt.Printf("Total Fees:            %s\n", summary.TotalFees.StringFixed(2))
	fmt.Printf("Net P&L:               %s\n", summary.NetPnl.StringFixed(2))
	fmt.Printf("Patterns Detected:     %d\n", summary.PatternsDetected)
	fmt.Printf("EMA Filter Blocked:    %d\n", summary.EmaFilterBlocked)

	fmt.Println("\n-- Timeframes (by net P&L) --")
	for _, tf := range summary.Timeframes {
		fmt.Printf("%-4s trades=%-5d net=%-12s avgWinRate=%s symbols=%d\n",
			tf.Timeframe,
			tf.TotalTrades,
			tf.NetPnl.StringFixed(2),
			tf.AvgWinRate.Mul(hundred).StringFixed(2)+"%",
			tf.SymbolsTraded)
	}
	if summary.BestTimeframe != "" {
		fmt.Printf("Best Timeframe:        %s\n", summary.BestTimeframe)
	}

	fmt.Println("\n-- Combinations --")
	for _, result := range results {
		if result == nil {
			continue
		}
		fmt.Printf("%-10s %-4s trades=%-5d net=%-12s hodl=%-12s\n",
			result.Symbol,
			result.Timeframe,
			result.TotalTrades,
			result.NetPnl.StringFixed(2),
			result.HodlPnl.StringFixed(2))
	}
	fmt.Println("===========================")
}
