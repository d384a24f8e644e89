package patterns

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"candlebt/types"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candle(o, h, l, c float64) types.Candle {
	return types.Candle{
		Symbol:   "BTCUSDC",
		Interval: types.Hour,
		Open:     decimal.NewFromFloat(o),
		High:     decimal.NewFromFloat(h),
		Low:      decimal.NewFromFloat(l),
		Close:    decimal.NewFromFloat(c),
	}
}

// series stamps candles an hour apart so sequences stay well formed.
func series(candles ...types.Candle) []types.Candle {
	for i := range candles {
		candles[i].Timestamp = baseTime.Add(time.Duration(i) * time.Hour)
		candles[i].CloseTime = candles[i].Timestamp.Add(time.Hour)
	}
	return candles
}

// neutral is a plain candle that matches no detector.
func neutral() types.Candle {
	return candle(10.0, 10.55, 9.95, 10.5)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		candles     []types.Candle
		i           int
		wantPattern types.Pattern
		wantOK      bool
	}{
		{
			name:        "hammer",
			candles:     series(candle(10.0, 10.25, 9.0, 10.2)),
			i:           0,
			wantPattern: types.Hammer,
			wantOK:      true,
		},
		{
			name:        "shooting star",
			candles:     series(candle(10.2, 11.2, 9.95, 10.0)),
			i:           0,
			wantPattern: types.ShootingStar,
			wantOK:      true,
		},
		{
			name:        "doji",
			candles:     series(candle(10.0, 10.5, 9.5, 10.05)),
			i:           0,
			wantPattern: types.Doji,
			wantOK:      true,
		},
		{
			name:        "hammer wins over doji",
			candles:     series(candle(10.0, 10.03, 9.0, 10.02)),
			i:           0,
			wantPattern: types.Hammer,
			wantOK:      true,
		},
		{
			name: "bullish engulfing",
			candles: series(
				candle(10.5, 10.6, 9.9, 10.0),
				candle(9.95, 10.7, 9.9, 10.6),
			),
			i:           1,
			wantPattern: types.BullishEngulfing,
			wantOK:      true,
		},
		{
			name: "bearish engulfing",
			candles: series(
				candle(10.0, 10.55, 9.95, 10.5),
				candle(10.6, 10.65, 9.85, 9.9),
			),
			i:           1,
			wantPattern: types.BearishEngulfing,
			wantOK:      true,
		},
		{
			name: "morning star",
			candles: series(
				candle(11.0, 11.05, 9.95, 10.0),
				candle(10.0, 10.3, 9.9, 10.1),
				candle(10.1, 10.85, 10.05, 10.8),
			),
			i:           2,
			wantPattern: types.MorningStar,
			wantOK:      true,
		},
		{
			name: "evening star",
			candles: series(
				candle(10.0, 11.05, 9.95, 11.0),
				candle(11.1, 11.4, 11.0, 11.2),
				candle(11.0, 11.05, 10.15, 10.2),
			),
			i:           2,
			wantPattern: types.EveningStar,
			wantOK:      true,
		},
		{
			name:    "zero range candle matches nothing",
			candles: series(candle(10.0, 10.0, 10.0, 10.0)),
			i:       0,
			wantOK:  false,
		},
		{
			name:    "plain candle matches nothing",
			candles: series(neutral()),
			i:       0,
			wantOK:  false,
		},
		{
			name: "engulfing needs previous candle",
			candles: series(
				candle(9.95, 10.7, 9.9, 10.6),
			),
			i:      0,
			wantOK: false,
		},
		{
			name: "star needs two previous candles",
			candles: series(
				candle(10.0, 10.3, 9.9, 10.1),
				candle(10.1, 10.85, 10.05, 10.8),
			),
			i:      1,
			wantOK: false,
		},
		{
			name:    "index out of bounds",
			candles: series(neutral()),
			i:       5,
			wantOK:  false,
		},
		{
			name:    "negative index",
			candles: series(neutral()),
			i:       -1,
			wantOK:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, ok := Detect(tt.candles, tt.i)
			if ok != tt.wantOK {
				t.Fatalf("Detect() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && pattern != tt.wantPattern {
				t.Errorf("Detect() = %q, want %q", pattern, tt.wantPattern)
			}
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	candles := series(
		candle(10.5, 10.6, 9.9, 10.0),
		candle(9.95, 10.7, 9.9, 10.6),
	)

	first, firstOK := Detect(candles, 1)
	for run := 0; run < 10; run++ {
		got, ok := Detect(candles, 1)
		if got != first || ok != firstOK {
			t.Fatalf("Detect() run %d = (%q, %v), want (%q, %v)", run, got, ok, first, firstOK)
		}
	}
}
