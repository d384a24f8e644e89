package engine

import (
	"context"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"candlebt/types"
)

// CandleSource supplies fully merged, sorted, deduplicated series for
// a symbol/interval pair.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error)
}

// Engine runs the backtester over every symbol/timeframe combination.
type Engine struct {
	source     CandleSource
	backtester *Backtester
	config     StrategyConfig
	runConfig  RunConfig
	logger     *zap.Logger
}

func NewEngine(source CandleSource, config StrategyConfig, runConfig RunConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		source:     source,
		backtester: NewBacktester(config),
		config:     config,
		runConfig:  runConfig,
		logger:     logger,
	}
}

type comboJob struct {
	symbol   string
	interval types.Interval
}

// Run simulates every combination. Runs are independent of each other,
// so they are spread over workers; each reads its own trading series
// and the shared read-only reference series for its symbol, and writes
// only its own result slot. Combinations with no data are logged and
// skipped; an invariant violation aborts the whole run.
func (e *Engine) Run(ctx context.Context) ([]*types.BacktestResult, error) {
	refSeries := make(map[string][]types.Candle, len(e.runConfig.symbols))
	for _, symbol := range e.runConfig.symbols {
		ref, err := e.source.GetCandles(ctx, symbol, e.config.referenceInterval)
		if err != nil {
			e.logger.Warn("no reference series, skipping symbol",
				zap.String("symbol", symbol),
				zap.String("interval", string(e.config.referenceInterval)),
				zap.Error(err))
			continue
		}
		refSeries[symbol] = ref
	}

	var jobs []comboJob
	for _, symbol := range e.runConfig.symbols {
		if refSeries[symbol] == nil {
			continue
		}
		for _, interval := range e.runConfig.timeframes {
			jobs = append(jobs, comboJob{symbol: symbol, interval: interval})
		}
	}

	bar := initProgressBar(len(jobs))
	slots := make([]*types.BacktestResult, len(jobs))
	jobCh := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var runErr error

	for w := 0; w < e.runConfig.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				job := jobs[idx]
				e.runCombo(ctx, job, refSeries[job.symbol], slots, idx, &mu, &runErr)
				bar.Add(1)
			}
		}()
	}
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	results := make([]*types.BacktestResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}

func (e *Engine) runCombo(ctx context.Context, job comboJob, ref []types.Candle, slots []*types.BacktestResult, idx int, mu *sync.Mutex, runErr *error) {
	candles, err := e.source.GetCandles(ctx, job.symbol, job.interval)
	if err != nil {
		e.logger.Warn("no data for combination",
			zap.String("symbol", job.symbol),
			zap.String("interval", string(job.interval)),
			zap.Error(err))
		return
	}

	result, err := e.backtester.Backtest(job.symbol, job.interval, candles, ref)
	if err != nil {
		mu.Lock()
		if *runErr == nil {
			*runErr = err
		}
		mu.Unlock()
		return
	}

	e.logger.Debug("combination done",
		zap.String("symbol", job.symbol),
		zap.String("interval", string(job.interval)),
		zap.Int("trades", result.TotalTrades),
		zap.Int("patterns", result.PatternsDetected))
	slots[idx] = result
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
