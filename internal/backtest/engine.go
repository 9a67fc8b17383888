package backtest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quantrail/quantrail/internal/calendar"
	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/execution"
	"github.com/quantrail/quantrail/internal/indicator"
	"github.com/quantrail/quantrail/internal/marketdata"
	"github.com/quantrail/quantrail/internal/metrics"
	"github.com/quantrail/quantrail/internal/position"
	"github.com/quantrail/quantrail/internal/signalgen"
	"github.com/quantrail/quantrail/internal/storage/ledger"
	"github.com/quantrail/quantrail/internal/strategy"
)

// Engine drives a single-threaded simulation: strictly sequential bar
// iteration where every signal from bar i is executed before bar i+1 is
// looked at. The ledger is owned by the running goroutine for the
// duration of one Run call.
type Engine struct {
	strat     strategy.Strategy
	data      marketdata.Repository
	ledgers   ledger.Repository
	generator *signalgen.Generator
	executor  *execution.Executor
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// New wires an engine for one strategy.
func New(strat strategy.Strategy, data marketdata.Repository, ledgers ledger.Repository, scheduler *calendar.Scheduler, indicators *indicator.Registry, reg *metrics.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		strat:     strat,
		data:      data,
		ledgers:   ledgers,
		generator: signalgen.New(strat, data, ledgers, scheduler, indicators, logger),
		executor:  execution.New(strat, data, ledgers, logger),
		metrics:   reg,
		logger:    logger,
	}
}

// Run executes the backtest over [startDate, endDate] by calendar date
// and returns the report built from the final ledger state.
func (e *Engine) Run(ctx context.Context, startDate, endDate time.Time) (*Report, error) {
	began := time.Now()
	report, err := e.run(ctx, startDate, endDate)
	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordBacktest(status, time.Since(began).Seconds())
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, startDate, endDate time.Time) (*Report, error) {
	if e.strat == nil || e.strat.Name() == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("strategy with a name is required"))
	}
	if core.DateOf(endDate).Before(core.DateOf(startDate)) {
		return nil, core.WrapError(core.ErrInvalidDateRange,
			fmt.Errorf("end %s before start %s", endDate.Format("2006-01-02"), startDate.Format("2006-01-02")))
	}

	// Each run starts from a fresh ledger; a previous run's positions
	// must not leak into this one.
	if err := e.ledgers.Delete(ctx, e.strat.Name()); err != nil {
		return nil, err
	}
	tradable := position.NewTradableInstrument(e.strat.PositionInstrument())
	if err := e.ledgers.Save(ctx, e.strat.Name(), tradable); err != nil {
		return nil, err
	}

	// The lookback extension exists only to warm up indicators; the
	// simulation itself starts at startDate.
	extendedStart := e.strat.RequiredHistoryStartDate(startDate)
	bars, err := e.data.GetHistoricalData(ctx, e.strat.Instrument(), extendedStart, endDate, e.strat.Timeframe())
	if err != nil {
		return nil, err
	}

	e.logger.Info("backtest started",
		zap.String("strategy", e.strat.Name()),
		zap.Time("start", startDate),
		zap.Time("end", endDate),
		zap.Time("extended_start", extendedStart),
		zap.Int("bars", len(bars)),
	)

	processed := 0
	for _, bar := range bars {
		if core.DateOf(bar.Timestamp).Before(core.DateOf(startDate)) {
			continue
		}
		if core.DateOf(bar.Timestamp).After(core.DateOf(endDate)) {
			break
		}

		signals, err := e.generator.Evaluate(ctx, bar)
		if err != nil {
			return nil, err
		}
		for _, signal := range signals {
			if e.metrics != nil {
				e.metrics.RecordSignal(e.strat.Name(), string(signal.Trigger))
			}
			if err := e.executor.Execute(ctx, signal); err != nil {
				return nil, err
			}
			if e.metrics != nil {
				e.metrics.RecordTrade(string(signal.Action))
			}
		}

		processed++
		if e.metrics != nil {
			e.metrics.RecordBar()
		}
	}

	if processed == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no bars for %s between %s and %s", e.strat.Instrument(),
				startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))
	}

	final, err := e.finalLedger(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("backtest finished",
		zap.String("strategy", e.strat.Name()),
		zap.Int("bars_processed", processed),
		zap.Int("trades", final.TotalTrades()),
		zap.Float64("points", final.TotalPoints()),
	)

	return &Report{
		StrategyName: e.strat.Name(),
		StartDate:    startDate,
		EndDate:      endDate,
		Ledger:       final,
	}, nil
}

// finalLedger reads the persisted ledger back; the report must reflect
// what was stored, not a stale in-memory copy.
func (e *Engine) finalLedger(ctx context.Context) (*position.TradableInstrument, error) {
	tracked, err := e.ledgers.Get(ctx, e.strat.Name())
	if err != nil {
		return nil, err
	}
	want := e.strat.PositionInstrument()
	for _, t := range tracked {
		if t.Instrument == want {
			return t, nil
		}
	}
	return nil, core.WrapError(core.ErrLedgerNotFound,
		fmt.Errorf("instrument %s under strategy %s after run", want.Instrument, e.strat.Name()))
}
