package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"candlebt/types"
)

// Global error declarations.
var (
	ErrOutOfOrder         = errors.New("series timestamps out of order")
	ErrDuplicateTimestamp = errors.New("series contains duplicate timestamps")
)

// Merge combines a previously known series with freshly retrieved
// candles into one deduplicated, ascending series. When both sides
// carry a candle for the same open time the incoming one wins.
func Merge(cached, incoming []types.Candle) []types.Candle {
	byOpen := make(map[int64]types.Candle, len(cached)+len(incoming))
	for _, c := range cached {
		byOpen[c.Timestamp.UnixMilli()] = c
	}
	for _, c := range incoming {
		byOpen[c.Timestamp.UnixMilli()] = c
	}

	merged := make([]types.Candle, 0, len(byOpen))
	for _, c := range byOpen {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// MergeWithRetention merges and then drops candles older than daysBack
// days relative to now. daysBack <= 0 keeps everything.
func MergeWithRetention(cached, incoming []types.Candle, daysBack int, now time.Time) []types.Candle {
	merged := Merge(cached, incoming)
	if daysBack <= 0 {
		return merged
	}
	cutoff := now.AddDate(0, 0, -daysBack)
	keep := sort.Search(len(merged), func(i int) bool {
		return !merged[i].Timestamp.Before(cutoff)
	})
	return merged[keep:]
}

// Validate checks the invariant the simulation core assumes of its
// inputs: strictly ascending, unique open times.
func Validate(candles []types.Candle) error {
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Timestamp
		cur := candles[i].Timestamp
		if cur.Equal(prev) {
			return fmt.Errorf("%w: %s", ErrDuplicateTimestamp, cur.Format(time.RFC3339))
		}
		if cur.Before(prev) {
			return fmt.Errorf("%w: %s before %s", ErrOutOfOrder, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}
