package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"candlebt/types"
)

type mockCandles struct {
	rows []candleRow
	err  error

	gotSymbol   string
	gotInterval string
	gotStart    time.Time
	gotEnd      time.Time
}

func (m *mockCandles) GetCandleRows(_ context.Context, symbol string, interval string, start, end time.Time) ([]candleRow, error) {
	m.gotSymbol = symbol
	m.gotInterval = interval
	m.gotStart = start
	m.gotEnd = end
	return m.rows, m.err
}

func testRow(openTime time.Time, close string) candleRow {
	c := decimal.RequireFromString(close)
	return candleRow{
		OpenTime:  openTime,
		Open:      c,
		High:      c,
		Low:       c,
		Close:     c,
		Volume:    decimal.NewFromInt(1),
		CloseTime: openTime.Add(time.Hour),
		Trades:    10,
	}
}

func TestGetCandles(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tests := []struct {
		name     string
		interval types.Interval
		rows     []candleRow
		queryErr error
		wantLen  int
		wantErr  error
	}{
		{
			name:     "success",
			interval: types.Hour,
			rows:     []candleRow{testRow(start, "100"), testRow(start.Add(time.Hour), "101")},
			wantLen:  2,
		},
		{
			name:     "unsupported interval",
			interval: types.Interval("2h"),
			wantErr:  ErrIntervalNotSupported,
		},
		{
			name:     "no rows",
			interval: types.Hour,
			rows:     nil,
			wantErr:  ErrNoCandles,
		},
		{
			name:     "pgx no rows maps to sentinel",
			interval: types.Hour,
			queryErr: pgx.ErrNoRows,
			wantErr:  ErrNoCandles,
		},
		{
			name:     "query failure passes through",
			interval: types.Hour,
			queryErr: errors.New("connection refused"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCandles{rows: tt.rows, err: tt.queryErr}
			db := Database{candles: mock}

			candles, err := db.GetCandles("BTCUSDC", tt.interval, start, end, context.Background())

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetCandles() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.queryErr != nil {
				if !errors.Is(err, tt.queryErr) {
					t.Fatalf("GetCandles() error = %v, want %v", err, tt.queryErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetCandles() error = %v", err)
			}
			if len(candles) != tt.wantLen {
				t.Fatalf("GetCandles() len = %d, want %d", len(candles), tt.wantLen)
			}
			if mock.gotSymbol != "BTCUSDC" || mock.gotInterval != string(tt.interval) {
				t.Errorf("query args = %s/%s, want BTCUSDC/%s", mock.gotSymbol, mock.gotInterval, tt.interval)
			}
			if !mock.gotStart.Equal(start) || !mock.gotEnd.Equal(end) {
				t.Errorf("query window = %v..%v, want %v..%v", mock.gotStart, mock.gotEnd, start, end)
			}
		})
	}
}

func TestGetCandles_Conversion(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := testRow(start, "100.25")
	mock := &mockCandles{rows: []candleRow{row}}
	db := Database{candles: mock}

	candles, err := db.GetCandles("ETHUSDC", types.FourHours, start, start.Add(time.Hour), context.Background())
	if err != nil {
		t.Fatalf("GetCandles() error = %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("GetCandles() len = %d, want 1", len(candles))
	}

	c := candles[0]
	if c.Symbol != "ETHUSDC" {
		t.Errorf("Symbol = %q, want ETHUSDC", c.Symbol)
	}
	if c.Interval != types.FourHours {
		t.Errorf("Interval = %q, want %q", c.Interval, types.FourHours)
	}
	if !c.Timestamp.Equal(row.OpenTime) {
		t.Errorf("Timestamp = %v, want %v", c.Timestamp, row.OpenTime)
	}
	if !c.CloseTime.Equal(row.CloseTime) {
		t.Errorf("CloseTime = %v, want %v", c.CloseTime, row.CloseTime)
	}
	if !c.Close.Equal(row.Close) {
		t.Errorf("Close = %s, want %s", c.Close, row.Close)
	}
	if c.Trades != row.Trades {
		t.Errorf("Trades = %d, want %d", c.Trades, row.Trades)
	}
}
