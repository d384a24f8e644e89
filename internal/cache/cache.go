package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"candlebt/internal/series"
	"candlebt/types"
)

// Global error declarations.
var (
	ErrNotCached = errors.New("no cache file for symbol/timeframe")
)

const (
	defaultExpiry = 24 * time.Hour
	metadataFile  = "cache_metadata.json"
)

// Manager persists candle series as one JSON file per symbol/timeframe
// plus a metadata index, mirroring the on-disk layout the fetcher
// maintains incrementally.
type Manager struct {
	dir    string
	expiry time.Duration
	now    func() time.Time
}

func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Manager{
		dir:    dir,
		expiry: defaultExpiry,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock function for deterministic tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

type fileData struct {
	Klines     []types.Candle `json:"klines"`
	LastUpdate string         `json:"last_update"`
	CachedAt   string         `json:"cached_at"`
}

func (m *Manager) file(symbol string, interval types.Interval) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", symbol, interval))
}

// Valid reports whether a cache file exists and has not expired.
func (m *Manager) Valid(symbol string, interval types.Interval) bool {
	data, err := m.read(symbol, interval)
	if err != nil {
		return false
	}
	cachedAt, err := time.Parse(time.RFC3339, data.CachedAt)
	if err != nil {
		return false
	}
	return m.now().Before(cachedAt.Add(m.expiry))
}

// Load returns the cached series, sorted ascending.
func (m *Manager) Load(symbol string, interval types.Interval) ([]types.Candle, error) {
	data, err := m.read(symbol, interval)
	if err != nil {
		return nil, err
	}
	if len(data.Klines) == 0 {
		return nil, ErrNotCached
	}
	// Merge against nothing normalizes ordering from older files.
	return series.Merge(nil, data.Klines), nil
}

// Save writes the series and refreshes the metadata index.
func (m *Manager) Save(symbol string, interval types.Interval, candles []types.Candle) error {
	lastUpdate := m.now()
	if len(candles) > 0 {
		lastUpdate = candles[len(candles)-1].Timestamp
	}

	data := fileData{
		Klines:     candles,
		LastUpdate: lastUpdate.UTC().Format(time.RFC3339),
		CachedAt:   m.now().Format(time.RFC3339),
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.WriteFile(m.file(symbol, interval), raw, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return m.updateMetadata(symbol, interval, candles)
}

// LastTimestamp returns the open time of the newest cached candle.
func (m *Manager) LastTimestamp(symbol string, interval types.Interval) (time.Time, bool) {
	candles, err := m.Load(symbol, interval)
	if err != nil || len(candles) == 0 {
		return time.Time{}, false
	}
	return candles[len(candles)-1].Timestamp, true
}

// Clear removes every cache file.
func (m *Manager) Clear() error {
	files, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}

func (m *Manager) read(symbol string, interval types.Interval) (*fileData, error) {
	raw, err := os.ReadFile(m.file(symbol, interval))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return &data, nil
}

type metadataEntry struct {
	Symbol      string `json:"symbol"`
	Timeframe   string `json:"timeframe"`
	Count       int    `json:"count"`
	FirstCandle string `json:"first_candle,omitempty"`
	LastCandle  string `json:"last_candle,omitempty"`
	CachedAt    string `json:"cached_at"`
}

type metadata struct {
	LastUpdate string                   `json:"last_update"`
	Symbols    map[string]metadataEntry `json:"symbols"`
}

func (m *Manager) updateMetadata(symbol string, interval types.Interval, candles []types.Candle) error {
	path := filepath.Join(m.dir, metadataFile)

	meta := metadata{Symbols: make(map[string]metadataEntry)}
	if raw, err := os.ReadFile(path); err == nil {
		// Corrupt metadata is rebuilt, not fatal.
		_ = json.Unmarshal(raw, &meta)
		if meta.Symbols == nil {
			meta.Symbols = make(map[string]metadataEntry)
		}
	}

	entry := metadataEntry{
		Symbol:    symbol,
		Timeframe: string(interval),
		Count:     len(candles),
		CachedAt:  m.now().Format(time.RFC3339),
	}
	if len(candles) > 0 {
		entry.FirstCandle = candles[0].Timestamp.UTC().Format(time.RFC3339)
		entry.LastCandle = candles[len(candles)-1].Timestamp.UTC().Format(time.RFC3339)
	}
	meta.Symbols[fmt.Sprintf("%s_%s", symbol, interval)] = entry
	meta.LastUpdate = m.now().Format(time.RFC3339)

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
