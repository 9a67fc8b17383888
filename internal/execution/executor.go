// Package execution applies trade signals to the position ledger.
package execution

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/marketdata"
	"github.com/quantrail/quantrail/internal/position"
	"github.com/quantrail/quantrail/internal/storage/ledger"
	"github.com/quantrail/quantrail/internal/strategy"
)

// Executor fills signals against execution-instrument data and mutates
// the ledger. Every mutation is persisted back to the repository.
type Executor struct {
	strat   strategy.Strategy
	data    marketdata.Repository
	ledgers ledger.Repository
	logger  *zap.Logger
}

// New creates an executor for a strategy.
func New(strat strategy.Strategy, data marketdata.Repository, ledgers ledger.Repository, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{strat: strat, data: data, ledgers: ledgers, logger: logger}
}

// Execute applies one signal. A missing execution bar or an exit with
// no open position aborts the run; skipping silently would corrupt the
// PnL accounting.
func (e *Executor) Execute(ctx context.Context, signal core.TradeSignal) error {
	tradable, err := e.findTradable(ctx, signal.Instrument)
	if err != nil {
		return err
	}

	bar, err := e.executionBar(ctx, signal)
	if err != nil {
		return err
	}

	// PositionAction is authoritative over the raw buy/sell action.
	switch signal.PositionAction {
	case core.PositionAdd:
		if err := e.open(tradable, signal, bar); err != nil {
			return err
		}
	case core.PositionExit:
		if err := e.close(tradable, signal, bar); err != nil {
			return err
		}
	default:
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("position action %q", signal.PositionAction))
	}

	return e.ledgers.Save(ctx, e.strat.Name(), tradable)
}

// findTradable locates the ledger whose instrument structurally equals
// the signal's. First match wins if duplicates exist.
func (e *Executor) findTradable(ctx context.Context, instrument core.Instrument) (*position.TradableInstrument, error) {
	tracked, err := e.ledgers.Get(ctx, e.strat.Name())
	if err != nil {
		return nil, err
	}
	for _, t := range tracked {
		if t.Instrument.Instrument.Equal(instrument) {
			return t, nil
		}
	}
	return nil, core.WrapError(core.ErrLedgerNotFound, fmt.Errorf("instrument %s under strategy %s", instrument, e.strat.Name()))
}

// executionBar fetches the single bar at exactly the signal timestamp.
func (e *Executor) executionBar(ctx context.Context, signal core.TradeSignal) (core.Candle, error) {
	bars, err := e.data.GetHistoricalData(ctx, signal.Instrument, signal.Timestamp, signal.Timestamp, signal.Timeframe)
	if err != nil {
		return core.Candle{}, err
	}
	for _, bar := range bars {
		if bar.Timestamp.Equal(signal.Timestamp) {
			return bar, nil
		}
	}
	return core.Candle{}, core.WrapError(core.ErrNoExecutionCandle,
		fmt.Errorf("instrument %s at %s", signal.Instrument, signal.Timestamp))
}

func (e *Executor) open(tradable *position.TradableInstrument, signal core.TradeSignal, bar core.Candle) error {
	// Fills always happen at the bar's open.
	pos, err := tradable.OpenPosition(signal.Action, signal.Quantity, bar.Open, bar.Timestamp, signal.Trigger)
	if err != nil {
		return err
	}
	if risk := e.strat.RiskManagement(); risk != nil {
		pos.StopLoss = risk.LevelFor(signal.Action, bar.Open)
	}
	e.logger.Info("position opened",
		zap.String("strategy", e.strat.Name()),
		zap.String("position", pos.ID),
		zap.Float64("price", bar.Open),
		zap.Float64("stop", pos.StopLoss),
		zap.Time("at", bar.Timestamp),
	)
	return nil
}

func (e *Executor) close(tradable *position.TradableInstrument, signal core.TradeSignal, bar core.Candle) error {
	open := tradable.LastOpen()
	if open == nil {
		return core.WrapError(core.ErrNoOpenPosition,
			fmt.Errorf("instrument %s at %s", signal.Instrument, signal.Timestamp))
	}

	// Stop-loss exits fill at the stop level, everything else at the
	// bar's open.
	price := bar.Open
	if signal.Trigger == core.TriggerStopLoss {
		price = open.StopLoss
	}
	if err := open.Close(price, bar.Timestamp, signal.Trigger); err != nil {
		return err
	}
	e.logger.Info("position closed",
		zap.String("strategy", e.strat.Name()),
		zap.String("position", open.ID),
		zap.Float64("price", price),
		zap.String("trigger", string(signal.Trigger)),
		zap.Time("at", bar.Timestamp),
	)
	return nil
}
