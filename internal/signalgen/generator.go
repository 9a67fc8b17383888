// Package signalgen turns the current bar into trade signals: stop-loss
// exits first, then entry/exit rule evaluations.
package signalgen

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantrail/quantrail/internal/calendar"
	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/indicator"
	"github.com/quantrail/quantrail/internal/marketdata"
	"github.com/quantrail/quantrail/internal/position"
	"github.com/quantrail/quantrail/internal/storage/ledger"
	"github.com/quantrail/quantrail/internal/strategy"
)

// entryQuantity is the fixed size of rule-triggered entries.
const entryQuantity = 1

// Generator evaluates one strategy per bar and emits trade signals.
type Generator struct {
	strat      strategy.Strategy
	data       marketdata.Repository
	ledgers    ledger.Repository
	scheduler  *calendar.Scheduler
	indicators *indicator.Registry
	logger     *zap.Logger
}

// New creates a generator for a strategy.
func New(strat strategy.Strategy, data marketdata.Repository, ledgers ledger.Repository, scheduler *calendar.Scheduler, indicators *indicator.Registry, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		strat:      strat,
		data:       data,
		ledgers:    ledgers,
		scheduler:  scheduler,
		indicators: indicators,
		logger:     logger,
	}
}

// Evaluate inspects the current bar for every tradable instrument under
// the strategy and returns the signals to execute, in priority order.
func (g *Generator) Evaluate(ctx context.Context, bar core.Candle) ([]core.TradeSignal, error) {
	tracked, err := g.ledgers.Get(ctx, g.strat.Name())
	if err != nil {
		return nil, err
	}

	var signals []core.TradeSignal
	for _, tradable := range tracked {
		instrumentSignals, err := g.evaluateInstrument(ctx, tradable, bar)
		if err != nil {
			return nil, err
		}
		signals = append(signals, instrumentSignals...)
	}
	return signals, nil
}

func (g *Generator) evaluateInstrument(ctx context.Context, tradable *position.TradableInstrument, bar core.Candle) ([]core.TradeSignal, error) {
	tf := g.strat.Timeframe()

	// Stop-loss has absolute priority. When any stop fires, rule
	// evaluation for this instrument is skipped on this bar.
	stopSignals, err := g.stopLossSignals(tradable, bar)
	if err != nil {
		return nil, err
	}
	if len(stopSignals) > 0 {
		return stopSignals, nil
	}

	historyStart := g.strat.RequiredHistoryStartDate(bar.Timestamp)
	window, err := g.data.GetHistoricalData(ctx, g.strat.Instrument(), historyStart, bar.Timestamp, tf)
	if err != nil {
		return nil, err
	}

	if !tradable.AnyOpen() {
		satisfied, err := g.strat.EntryRules().Apply(g.indicators, window)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			return nil, nil
		}
		next, err := g.scheduler.NextCandle(bar.Timestamp, tf)
		if err != nil {
			return nil, err
		}
		g.logger.Debug("entry rules satisfied",
			zap.String("strategy", g.strat.Name()),
			zap.Time("bar", bar.Timestamp),
			zap.Time("execution", next),
		)
		return []core.TradeSignal{{
			Instrument:     tradable.Instrument.Instrument,
			Action:         tradable.Instrument.Action,
			Quantity:       entryQuantity,
			Timestamp:      next,
			Timeframe:      tf,
			PositionAction: core.PositionAdd,
			Trigger:        core.TriggerEntryRule,
		}}, nil
	}

	satisfied, err := g.strat.ExitRules().Apply(g.indicators, window)
	if err != nil {
		return nil, err
	}
	if !satisfied {
		return nil, nil
	}
	next, err := g.scheduler.NextCandle(bar.Timestamp, tf)
	if err != nil {
		return nil, err
	}
	open := tradable.LastOpen()
	g.logger.Debug("exit rules satisfied",
		zap.String("strategy", g.strat.Name()),
		zap.Time("bar", bar.Timestamp),
		zap.Time("execution", next),
	)
	return []core.TradeSignal{{
		Instrument:     tradable.Instrument.Instrument,
		Action:         tradable.Instrument.ClosingAction(),
		Quantity:       open.Quantity,
		Timestamp:      next,
		Timeframe:      tf,
		PositionAction: core.PositionExit,
		Trigger:        core.TriggerExitRule,
	}}, nil
}

// stopLossSignals emits one exit per open position whose stop level has
// been crossed by the bar's close.
func (g *Generator) stopLossSignals(tradable *position.TradableInstrument, bar core.Candle) ([]core.TradeSignal, error) {
	tf := g.strat.Timeframe()
	var signals []core.TradeSignal
	for _, pos := range tradable.OpenPositions() {
		if pos.StopLoss == 0 {
			continue
		}
		crossed := (pos.Direction == position.DirectionLong && bar.Close <= pos.StopLoss) ||
			(pos.Direction == position.DirectionShort && bar.Close >= pos.StopLoss)
		if !crossed {
			continue
		}
		next, err := g.scheduler.NextCandle(bar.Timestamp, tf)
		if err != nil {
			return nil, err
		}
		g.logger.Debug("stop-loss crossed",
			zap.String("strategy", g.strat.Name()),
			zap.String("position", pos.ID),
			zap.Float64("stop", pos.StopLoss),
			zap.Float64("close", bar.Close),
		)
		signals = append(signals, core.TradeSignal{
			Instrument:     tradable.Instrument.Instrument,
			Action:         tradable.Instrument.ClosingAction(),
			Quantity:       pos.Quantity,
			Timestamp:      next,
			Timeframe:      tf,
			PositionAction: core.PositionExit,
			Trigger:        core.TriggerStopLoss,
		})
	}
	return signals, nil
}
