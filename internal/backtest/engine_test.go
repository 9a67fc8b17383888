package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/quantrail/internal/calendar"
	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/indicator"
	"github.com/quantrail/quantrail/internal/marketdata"
	"github.com/quantrail/quantrail/internal/position"
	"github.com/quantrail/quantrail/internal/rules"
	ledgerstore "github.com/quantrail/quantrail/internal/storage/ledger"
	"github.com/quantrail/quantrail/internal/strategy"
)

var ist = time.FixedZone("IST", 5*3600+1800)

var (
	underlying = core.Instrument{Exchange: core.ExchangeNSE, Type: core.InstrumentIndex, Key: "NIFTY"}
	tradedInst = core.Instrument{Exchange: core.ExchangeNSE, Type: core.InstrumentFuture, Key: "NIFTY", Expiry: core.ExpiryCurrent}
)

func thresholdEntry(value float64) *rules.RuleSet {
	return &rules.RuleSet{
		Logic: rules.LogicAnd,
		Conditions: []rules.Condition{{
			Left:     rules.Expression{Indicator: "price", Params: map[string]any{"field": "close"}},
			Operator: rules.OpGreater,
			Right:    rules.Expression{Indicator: "constant", Params: map[string]any{"value": value}},
		}},
	}
}

func newEngine(strat strategy.Strategy) (*Engine, *marketdata.MemoryRepository, *ledgerstore.MemoryRepository) {
	data := marketdata.NewMemoryRepository()
	ledgers := ledgerstore.NewMemoryRepository()
	scheduler := calendar.NewScheduler(calendar.NewDefaultService(), core.ExchangeNSE, core.SegmentDerivative)
	engine := New(strat, data, ledgers, scheduler, indicator.NewRegistry(), nil, nil)
	return engine, data, ledgers
}

func sessionOpen(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 15, 0, 0, ist)
}

// Entry rule close > 50, no exit rule, bars closing 40/60/70 on
// Monday through Wednesday: exactly one entry, decided on Tuesday and
// filled at Wednesday's open.
func TestRun_SingleEntryScenario(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "threshold",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
	}
	engine, data, _ := newEngine(strat)

	mon, tue, wed := sessionOpen(2024, 6, 3), sessionOpen(2024, 6, 4), sessionOpen(2024, 6, 5)
	data.Load(underlying, core.TimeframeDay, []core.Candle{
		{Timestamp: mon, Open: 40, Close: 40},
		{Timestamp: tue, Open: 55, Close: 60},
		{Timestamp: wed, Open: 72, Close: 70},
	})
	data.Load(tradedInst, core.TimeframeDay, []core.Candle{
		{Timestamp: mon, Open: 41, Close: 41},
		{Timestamp: tue, Open: 56, Close: 61},
		{Timestamp: wed, Open: 73, Close: 71},
	})

	report, err := engine.Run(context.Background(), mon, wed)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalTrades())
	pos := report.Ledger.Positions[0]
	assert.True(t, pos.IsOpen())
	assert.Equal(t, position.DirectionLong, pos.Direction)
	assert.Equal(t, 73.0, pos.EntryPrice())
	assert.True(t, pos.EntryTime().Equal(wed), "got %s", pos.EntryTime())
	assert.Equal(t, core.TriggerEntryRule, pos.EntryTrigger)
}

// Entry at Tuesday's open of 100 with a 5-point stop puts the stop at
// 95. Tuesday closes at 94, so the stop fires and the exit fills at 95
// on Wednesday regardless of Wednesday's open.
func TestRun_StopLossScenario(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "stopped",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
		Risk:        &strategy.RiskManagement{Kind: strategy.RiskPoints, Value: 5},
	}
	engine, data, _ := newEngine(strat)

	mon, tue, wed := sessionOpen(2024, 6, 3), sessionOpen(2024, 6, 4), sessionOpen(2024, 6, 5)
	data.Load(underlying, core.TimeframeDay, []core.Candle{
		{Timestamp: mon, Open: 60, Close: 60},
		{Timestamp: tue, Open: 100, Close: 94},
		{Timestamp: wed, Open: 90, Close: 40},
	})
	data.Load(tradedInst, core.TimeframeDay, []core.Candle{
		{Timestamp: mon, Open: 60, Close: 60},
		{Timestamp: tue, Open: 100, Close: 94},
		{Timestamp: wed, Open: 90, Close: 40},
	})

	report, err := engine.Run(context.Background(), mon, wed)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalTrades())
	closed := report.Ledger.ClosedPositions()
	require.Len(t, closed, 1)
	pos := closed[0]
	assert.Equal(t, 100.0, pos.EntryPrice())
	assert.Equal(t, 95.0, pos.StopLoss)
	assert.Equal(t, 95.0, pos.ExitPrice())
	assert.Equal(t, core.TriggerStopLoss, pos.ExitTrigger)
	assert.Equal(t, -5.0, pos.PnLPoints())
	assert.Equal(t, 1, report.LosingTrades())
	assert.Equal(t, -5.0, report.MaxLoss())
}

func TestRun_InvalidDateRange(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "threshold",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
	}
	engine, _, _ := newEngine(strat)

	_, err := engine.Run(context.Background(), sessionOpen(2024, 6, 5), sessionOpen(2024, 6, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidDateRange), "got %v", err)
}

func TestRun_NoData(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "threshold",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
	}
	engine, _, _ := newEngine(strat)

	_, err := engine.Run(context.Background(), sessionOpen(2024, 6, 3), sessionOpen(2024, 6, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

// A second run starts from a fresh ledger; positions from the first
// run must not carry over.
func TestRun_FreshLedgerPerRun(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "threshold",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
	}
	engine, data, _ := newEngine(strat)

	mon, tue, wed := sessionOpen(2024, 6, 3), sessionOpen(2024, 6, 4), sessionOpen(2024, 6, 5)
	candles := []core.Candle{
		{Timestamp: mon, Open: 55, Close: 60},
		{Timestamp: tue, Open: 62, Close: 30},
		{Timestamp: wed, Open: 31, Close: 30},
	}
	data.Load(underlying, core.TimeframeDay, candles)
	data.Load(tradedInst, core.TimeframeDay, candles)

	first, err := engine.Run(context.Background(), mon, wed)
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), mon, wed)
	require.NoError(t, err)

	assert.Equal(t, first.TotalTrades(), second.TotalTrades())
	assert.Equal(t, 1, second.TotalTrades())
}

// Bars before the requested start date warm up indicators but never
// trade.
func TestRun_SkipsWarmupBars(t *testing.T) {
	strat := &strategy.Definition{
		DisplayName: "threshold",
		Underlying:  underlying,
		Interval:    core.TimeframeDay,
		Entry:       thresholdEntry(50),
		Position:    core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst},
	}
	engine, data, _ := newEngine(strat)

	mon, tue, wed := sessionOpen(2024, 6, 3), sessionOpen(2024, 6, 4), sessionOpen(2024, 6, 5)
	candles := []core.Candle{
		{Timestamp: mon, Open: 60, Close: 65}, // would trigger an entry, but it is before startDate
		{Timestamp: tue, Open: 40, Close: 41},
		{Timestamp: wed, Open: 42, Close: 43},
	}
	data.Load(underlying, core.TimeframeDay, candles)
	data.Load(tradedInst, core.TimeframeDay, candles)

	report, err := engine.Run(context.Background(), tue, wed)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalTrades())
}

func TestReport_Snapshot(t *testing.T) {
	tradable := position.NewTradableInstrument(core.PositionInstrument{Action: core.ActionBuy, Instrument: tradedInst})
	pos, err := tradable.OpenPosition(core.ActionBuy, 1, 100, sessionOpen(2024, 6, 4), core.TriggerEntryRule)
	require.NoError(t, err)
	pos.StopLoss = 95
	require.NoError(t, pos.Close(110, sessionOpen(2024, 6, 5), core.TriggerExitRule))

	report := &Report{
		StrategyName: "threshold",
		StartDate:    sessionOpen(2024, 6, 3),
		EndDate:      sessionOpen(2024, 6, 5),
		Ledger:       tradable,
	}
	snap := report.Snapshot()

	assert.Equal(t, "threshold", snap.Strategy)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, 100.0, snap.Positions[0].EntryPrice)
	assert.Equal(t, 110.0, snap.Positions[0].ExitPrice)
	assert.False(t, snap.Positions[0].Open)
	assert.Equal(t, 1, snap.Summary.TotalTrades)
	assert.Equal(t, 1, snap.Summary.WinningTrades)
	assert.Equal(t, 10.0, snap.Summary.TotalPoints)
	assert.Equal(t, 10.0, snap.Summary.TotalPercent)
	assert.Equal(t, 10.0, snap.Summary.MaxGain)
}
