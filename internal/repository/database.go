package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"candlebt/types"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("timeframe not supported")
	ErrNoCandles            = errors.New("no candles found in datasource")
)

type candlesRepository interface {
	GetCandleRows(ctx context.Context, symbol string, interval string, start, end time.Time) ([]candleRow, error)
}

// Database holds the database connection behind the candle queries.
type Database struct {
	candles candlesRepository
	conn    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(context.Background()); err != nil {
		return Database{}, err
	}

	return Database{
		candles: pgxCandles{pool: conn},
		conn:    conn,
	}, nil
}

// Close releases the connection pool.
func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

// GetCandles retrieves the candle series for a symbol/interval within
// [start, end], ordered by open time.
func (db *Database) GetCandles(symbol string, interval types.Interval, start, end time.Time, ctx context.Context) ([]types.Candle, error) {
	if _, ok := types.IntervalToTime[interval]; !ok {
		return nil, ErrIntervalNotSupported
	}

	rows, err := db.candles.GetCandleRows(ctx, symbol, string(interval), start, end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(rows, symbol, interval), nil
}

func convertCandles(rows []candleRow, symbol string, interval types.Interval) []types.Candle {
	var candles []types.Candle
	for _, row := range rows {
		candles = append(candles, types.Candle{
			Symbol:              symbol,
			Interval:            interval,
			Timestamp:           row.OpenTime,
			Open:                row.Open,
			High:                row.High,
			Low:                 row.Low,
			Close:               row.Close,
			Volume:              row.Volume,
			CloseTime:           row.CloseTime,
			QuoteVolume:         row.QuoteVolume,
			Trades:              row.Trades,
			TakerBuyBaseVolume:  row.TakerBuyBaseVolume,
			TakerBuyQuoteVolume: row.TakerBuyQuoteVolume,
		})
	}
	return candles
}
