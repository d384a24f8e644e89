package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"candlebt/types"
)

// samplePayload mirrors the shape of a /api/v3/klines response.
const samplePayload = `[
  [1704067200000, "42000.00", "42500.00", "41800.00", "42300.00", "120.5",
   1704070799999, "5096150.00", 3521, "60.25", "2548075.00", "0"],
  [1704070800000, "42300.00", "42400.00", "42100.00", "42150.00", "98.1",
   1704074399999, "4133000.00", 2810, "49.05", "2066500.00", "0"]
]`

func TestKlines(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %q, want /api/v3/klines", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	start := time.UnixMilli(1704067200000).UTC()
	end := start.Add(2 * time.Hour)

	candles, err := New(srv.URL).Klines(context.Background(), "BTCUSDC", types.Hour, start, end)
	if err != nil {
		t.Fatalf("Klines() error = %v", err)
	}

	if gotQuery["symbol"] != "BTCUSDC" || gotQuery["interval"] != "1h" {
		t.Errorf("query symbol/interval = %s/%s, want BTCUSDC/1h", gotQuery["symbol"], gotQuery["interval"])
	}
	if gotQuery["startTime"] != "1704067200000" {
		t.Errorf("query startTime = %q, want 1704067200000", gotQuery["startTime"])
	}

	if len(candles) != 2 {
		t.Fatalf("Klines() len = %d, want 2", len(candles))
	}

	first := candles[0]
	if !first.Timestamp.Equal(start) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, start)
	}
	if !first.CloseTime.Equal(time.UnixMilli(1704070799999).UTC()) {
		t.Errorf("CloseTime = %v, want %v", first.CloseTime, time.UnixMilli(1704070799999).UTC())
	}
	if !first.Close.Equal(decimal.RequireFromString("42300.00")) {
		t.Errorf("Close = %s, want 42300.00", first.Close)
	}
	if first.Trades != 3521 {
		t.Errorf("Trades = %d, want 3521", first.Trades)
	}
	if first.Symbol != "BTCUSDC" || first.Interval != types.Hour {
		t.Errorf("identity = %s/%s, want BTCUSDC/1h", first.Symbol, first.Interval)
	}
}

func TestKlines_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var err error
	go func() {
		_, err = New(srv.URL).Klines(ctx, "NOTACOIN", types.Hour, time.Now().Add(-time.Hour), time.Now())
		close(done)
	}()

	// The retry loop waits between attempts; cancel instead of sitting
	// through the delays.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if err == nil {
		t.Fatal("Klines() error = nil, want failure for bad status")
	}
}

func TestParseKline(t *testing.T) {
	var rows [][]any
	dec := json.NewDecoder(strings.NewReader(samplePayload))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	tests := []struct {
		name    string
		row     []any
		wantErr bool
	}{
		{"valid row", rows[0], false},
		{"short row", rows[0][:5], true},
		{"bad price type", replaceField(rows[0], 4, true), true},
		{"bad time type", replaceField(rows[0], 0, "not-a-time"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKline(tt.row, "BTCUSDC", types.Hour)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseKline() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func replaceField(row []any, i int, v any) []any {
	out := make([]any, len(row))
	copy(out, row)
	out[i] = v
	return out
}
