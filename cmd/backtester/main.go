package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"candlebt/internal/binance"
	"candlebt/internal/cache"
	"candlebt/internal/engine"
	"candlebt/internal/repository"
	"candlebt/internal/series"
	"candlebt/types"
)

func main() {
	var (
		symbolsCSV string
		tfCSV      string
		refTF      string
		days       int
		workers    int

		amountStr string
		feeStr    string
		tpStr     string
		slStr     string
		emaShort  int
		emaLong   int

		cacheDir   string
		dbURL      string
		refresh    bool
		reportPath string
		csvPath    string
	)

	flag.StringVar(&symbolsCSV, "symbols", "BTCUSDC,ETHUSDC,SOLUSDC", "comma-separated symbols")
	flag.StringVar(&tfCSV, "timeframes", "1m,5m,15m,30m,1h,4h", "comma-separated trading timeframes")
	flag.StringVar(&refTF, "ref-tf", "4h", "reference timeframe for the EMA trend filter")
	flag.IntVar(&days, "days", 100, "days of history to backtest")
	flag.IntVar(&workers, "workers", 4, "concurrent symbol/timeframe runs")
	flag.StringVar(&amountStr, "amount", "100", "trade amount per position")
	flag.StringVar(&feeStr, "fee", "0.001", "fee fraction per trade leg")
	flag.StringVar(&tpStr, "tp", "0.08", "take profit fraction")
	flag.StringVar(&slStr, "sl", "-0.06", "stop loss fraction (negative)")
	flag.IntVar(&emaShort, "ema-short", 1, "short EMA period")
	flag.IntVar(&emaLong, "ema-long", 99, "long EMA period")
	flag.StringVar(&cacheDir, "cache-dir", "data_cache", "candle cache directory")
	flag.StringVar(&dbURL, "db", "", "optional postgres URL to load candles from instead of the API")
	flag.BoolVar(&refresh, "refresh", false, "ignore cached data and re-download")
	flag.StringVar(&reportPath, "report", "backtest_report.json", "JSON report output path")
	flag.StringVar(&csvPath, "csv", "", "optional: write closed positions to CSV")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	symbols := splitCSV(symbolsCSV)
	timeframes, err := parseTimeframes(tfCSV)
	if err != nil {
		logger.Fatal("bad -timeframes", zap.Error(err))
	}
	refInterval, ok := types.ConvertInterval[refTF]
	if !ok {
		logger.Fatal("bad -ref-tf", zap.String("value", refTF))
	}

	strategyConfig, err := buildStrategyConfig(amountStr, feeStr, tpStr, slStr, emaShort, emaLong, refInterval)
	if err != nil {
		logger.Fatal("bad strategy flags", zap.Error(err))
	}

	ctx := context.Background()
	source, cleanup, err := buildSource(cacheDir, dbURL, days, refresh, logger)
	if err != nil {
		logger.Fatal("init data source", zap.Error(err))
	}
	defer cleanup()

	eng := engine.NewEngine(source, strategyConfig, engine.NewRunConfig(symbols, timeframes, workers), logger)
	results, err := eng.Run(ctx)
	if err != nil {
		logger.Fatal("backtest run failed", zap.Error(err))
	}

	summary := engine.Aggregate(results)
	engine.PrintSummary(results, summary)

	if reportPath != "" {
		report := engine.BuildReport(strategyConfig, results, summary, time.Now())
		if err := report.WriteFile(reportPath); err != nil {
			logger.Fatal("write report", zap.Error(err))
		}
		logger.Info("report written", zap.String("path", reportPath))
	}
	if csvPath != "" {
		if err := engine.WritePositionsCSVFile(csvPath, results); err != nil {
			logger.Fatal("write csv", zap.Error(err))
		}
		logger.Info("positions written", zap.String("path", csvPath))
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseTimeframes(csv string) ([]types.Interval, error) {
	var out []types.Interval
	for _, raw := range splitCSV(csv) {
		interval, ok := types.ConvertInterval[raw]
		if !ok {
			return nil, fmt.Errorf("unknown timeframe %q", raw)
		}
		out = append(out, interval)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no timeframes given")
	}
	return out, nil
}

func buildStrategyConfig(amountStr, feeStr, tpStr, slStr string, emaShort, emaLong int, refInterval types.Interval) (engine.StrategyConfig, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return engine.StrategyConfig{}, fmt.Errorf("-amount: %w", err)
	}
	fee, err := decimal.NewFromString(feeStr)
	if err != nil {
		return engine.StrategyConfig{}, fmt.Errorf("-fee: %w", err)
	}
	tp, err := decimal.NewFromString(tpStr)
	if err != nil {
		return engine.StrategyConfig{}, fmt.Errorf("-tp: %w", err)
	}
	sl, err := decimal.NewFromString(slStr)
	if err != nil {
		return engine.StrategyConfig{}, fmt.Errorf("-sl: %w", err)
	}
	if !sl.IsNegative() {
		return engine.StrategyConfig{}, fmt.Errorf("-sl must be negative, got %s", sl)
	}
	if emaShort < 1 || emaLong < 1 {
		return engine.StrategyConfig{}, fmt.Errorf("EMA periods must be positive")
	}
	return engine.NewStrategyConfig(amount, fee, tp, sl, emaShort, emaLong, refInterval), nil
}

// buildSource picks the candle provider: Postgres when -db is set,
// otherwise the API fronted by the file cache.
func buildSource(cacheDir, dbURL string, days int, refresh bool, logger *zap.Logger) (engine.CandleSource, func(), error) {
	if dbURL != "" {
		db, err := repository.NewDatabase(dbURL)
		if err != nil {
			return nil, nil, err
		}
		return &dbSource{db: &db, days: days}, db.Close, nil
	}

	manager, err := cache.NewManager(cacheDir)
	if err != nil {
		return nil, nil, err
	}
	return &cachedSource{
		cache:   manager,
		client:  binance.New(""),
		days:    days,
		refresh: refresh,
		logger:  logger,
	}, func() {}, nil
}

type dbSource struct {
	db   *repository.Database
	days int
}

func (s *dbSource) GetCandles(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.days)
	return s.db.GetCandles(symbol, interval, start, end, ctx)
}

// cachedSource serves merged series from the JSON cache, topping it up
// from the API when the cache is stale or missing.
type cachedSource struct {
	cache   *cache.Manager
	client  *binance.Client
	days    int
	refresh bool
	logger  *zap.Logger
}

func (s *cachedSource) GetCandles(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	if !s.refresh && s.cache.Valid(symbol, interval) {
		cached, err := s.cache.Load(symbol, interval)
		if err == nil && len(cached) > 0 {
			// Incremental top-up: fetch only the recent window and let
			// the merge dedupe the overlap.
			fresh, err := s.client.KlinesRange(ctx, symbol, interval, 1)
			if err != nil {
				s.logger.Warn("incremental fetch failed, using cache as-is",
					zap.String("symbol", symbol), zap.Error(err))
				return cached, nil
			}
			merged := series.MergeWithRetention(cached, fresh, s.days, time.Now().UTC())
			if err := s.cache.Save(symbol, interval, merged); err != nil {
				s.logger.Warn("cache save failed", zap.String("symbol", symbol), zap.Error(err))
			}
			return merged, nil
		}
	}

	s.logger.Info("fetching history",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("days", s.days))
	candles, err := s.client.KlinesRange(ctx, symbol, interval, s.days)
	if err != nil {
		return nil, err
	}
	candles = series.Merge(nil, candles)
	if err := s.cache.Save(symbol, interval, candles); err != nil {
		s.logger.Warn("cache save failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return candles, nil
}
