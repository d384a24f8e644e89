package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type candleRow struct {
	OpenTime            time.Time
	Open                decimal.Decimal
	High                decimal.Decimal
	Low                 decimal.Decimal
	Close               decimal.Decimal
	Volume              decimal.Decimal
	CloseTime           time.Time
	QuoteVolume         decimal.Decimal
	Trades              int64
	TakerBuyBaseVolume  decimal.Decimal
	TakerBuyQuoteVolume decimal.Decimal
}

type pgxCandles struct {
	pool *pgxpool.Pool
}

const getCandlesQuery = `
SELECT open_time, open, high, low, close, volume, close_time,
       quote_volume, trades, taker_buy_base_volume, taker_buy_quote_volume
FROM candles
WHERE symbol = $1 AND interval = $2 AND open_time >= $3 AND open_time <= $4
ORDER BY open_time
`

func (q pgxCandles) GetCandleRows(ctx context.Context, symbol string, interval string, start, end time.Time) ([]candleRow, error) {
	rows, err := q.pool.Query(ctx, getCandlesQuery, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (candleRow, error) {
		var c candleRow
		err := row.Scan(
			&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.CloseTime, &c.QuoteVolume, &c.Trades,
			&c.TakerBuyBaseVolume, &c.TakerBuyQuoteVolume,
		)
		return c, err
	})
}
