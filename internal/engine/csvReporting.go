package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"candlebt/types"
)

// WritePositionsCSVFile writes every closed position to a CSV file at
// the given path.
func WritePositionsCSVFile(path string, results []*types.BacktestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create positions file: %w", err)
	}
	defer f.Close()

	return writePositionsCSV(f, results)
}

// writePositionsCSV writes positions to any io.Writer as CSV. Pass
// os.Stdout for debugging, or a file.
func writePositionsCSV(w io.Writer, results []*types.BacktestResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"symbol",
		"timeframe",
		"pattern",
		"entry_time", // RFC3339
		"entry_price",
		"quantity",
		"exit_time",
		"exit_price",
		"exit_reason",
		"entry_ema_short",
		"entry_ema_long",
		"exit_ema_short",
		"exit_ema_long",
		"pnl",
		"pnl_percent",
		"fees",
		"net_pnl",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		for _, pos := range result.Positions {
			if err := writePositionRow(cw, pos); err != nil {
				return err
			}
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Helper to convert a single Position into one CSV row.
func writePositionRow(cw *csv.Writer, pos *types.Position) error {
	record := []string{
		pos.Symbol,
		string(pos.Timeframe),
		string(pos.Pattern),
		pos.EntryTime.UTC().Format(time.RFC3339),
		pos.EntryPrice.String(),
		pos.Quantity.String(),
		pos.ExitTime.UTC().Format(time.RFC3339),
		pos.ExitPrice.String(),
		string(pos.ExitReason),
		fmt.Sprintf("%g", pos.EntryEmaShort),
		fmt.Sprintf("%g", pos.EntryEmaLong),
		fmt.Sprintf("%g", pos.ExitEmaShort),
		fmt.Sprintf("%g", pos.ExitEmaLong),
		pos.Pnl.String(),
		pos.PnlPercent.String(),
		pos.Fees.String(),
		pos.NetPnl.String(),
	}

	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
