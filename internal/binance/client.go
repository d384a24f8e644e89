package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"candlebt/types"
)

const (
	DefaultBaseURL = "https://api.binance.com"

	klinesLimit = 1000
	maxRetries  = 3
	retryDelay  = 2 * time.Second
)

// Client fetches historical klines from the public REST API. It needs
// no credentials for market data.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
}

// Klines fetches one page of candles for [start, end).
func (c *Client) Klines(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	u, err := url.Parse(c.baseURL + "/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(klinesLimit))
	u.RawQuery = q.Encode()

	var raw [][]any
	if err := c.fetchJSON(ctx, u.String(), &raw); err != nil {
		return nil, err
	}

	candles := make([]types.Candle, 0, len(raw))
	for _, row := range raw {
		candle, err := parseKline(row, symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("parse kline for %s/%s: %w", symbol, interval, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// KlinesRange pages through the full daysBack window, oldest first.
func (c *Client) KlinesRange(ctx context.Context, symbol string, interval types.Interval, daysBack int) ([]types.Candle, error) {
	end := time.Now().UTC()
	cursor := end.AddDate(0, 0, -daysBack)

	var all []types.Candle
	for cursor.Before(end) {
		page, err := c.Klines(ctx, symbol, interval, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		// Continue just past the last candle of this page.
		cursor = page[len(page)-1].CloseTime.Add(time.Millisecond)
		if len(page) < klinesLimit {
			break
		}
	}
	return all, nil
}

// fetchJSON GETs the URL with bounded retries. Retry lives here at the
// transport edge only; nothing downstream retries.
func (c *Client) fetchJSON(ctx context.Context, fullURL string, target any) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http GET failed: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
			continue
		}

		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		err = dec.Decode(target)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decode response: %w", err)
			continue
		}
		return nil
	}
	return lastErr
}

// parseKline converts one API row:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume,
// trades, takerBuyBase, takerBuyQuote, ignore]
func parseKline(row []any, symbol string, interval types.Interval) (types.Candle, error) {
	if len(row) < 11 {
		return types.Candle{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	openTime, err := fieldTime(row[0])
	if err != nil {
		return types.Candle{}, err
	}
	closeTime, err := fieldTime(row[6])
	if err != nil {
		return types.Candle{}, err
	}
	trades, err := fieldInt(row[8])
	if err != nil {
		return types.Candle{}, err
	}

	candle := types.Candle{
		Symbol:    symbol,
		Interval:  interval,
		Timestamp: openTime,
		CloseTime: closeTime,
		Trades:    trades,
	}

	prices := []struct {
		dst *decimal.Decimal
		src any
	}{
		{&candle.Open, row[1]},
		{&candle.High, row[2]},
		{&candle.Low, row[3]},
		{&candle.Close, row[4]},
		{&candle.Volume, row[5]},
		{&candle.QuoteVolume, row[7]},
		{&candle.TakerBuyBaseVolume, row[9]},
		{&candle.TakerBuyQuoteVolume, row[10]},
	}
	for _, p := range prices {
		d, err := fieldDecimal(p.src)
		if err != nil {
			return types.Candle{}, err
		}
		*p.dst = d
	}
	return candle, nil
}

func fieldDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case json.Number:
		return decimal.NewFromString(x.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected field type %T", v)
	}
}

func fieldInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected field type %T", v)
	}
}

func fieldTime(v any) (time.Time, error) {
	ms, err := fieldInt(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
