package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/quantrail/internal/core"
)

func newLedger() *TradableInstrument {
	return NewTradableInstrument(core.PositionInstrument{
		Action:     core.ActionBuy,
		Instrument: testInstrument,
	})
}

// closeTrade opens and immediately closes a trade with the given points.
func closeTrade(t *testing.T, ledger *TradableInstrument, entry, exit float64) {
	t.Helper()
	pos, err := ledger.OpenPosition(core.ActionBuy, 1, entry, ts(1), core.TriggerEntryRule)
	require.NoError(t, err)
	require.NoError(t, pos.Close(exit, ts(2), core.TriggerExitRule))
}

func TestLedger_OpenTracking(t *testing.T) {
	ledger := newLedger()
	assert.False(t, ledger.AnyOpen())
	assert.Nil(t, ledger.LastOpen())

	first, err := ledger.OpenPosition(core.ActionBuy, 1, 100, ts(1), core.TriggerEntryRule)
	require.NoError(t, err)
	second, err := ledger.OpenPosition(core.ActionBuy, 1, 105, ts(2), core.TriggerEntryRule)
	require.NoError(t, err)

	assert.True(t, ledger.AnyOpen())
	assert.Equal(t, second, ledger.LastOpen(), "LastOpen must be the most recently opened")
	assert.Len(t, ledger.OpenPositions(), 2)

	require.NoError(t, second.Close(110, ts(3), core.TriggerExitRule))
	assert.Equal(t, first, ledger.LastOpen())

	require.NoError(t, first.Close(90, ts(4), core.TriggerStopLoss))
	assert.False(t, ledger.AnyOpen())
	assert.Equal(t, 2, ledger.TotalTrades())
}

func TestLedger_Metrics(t *testing.T) {
	ledger := newLedger()
	// win +10, win +5, loss -8, flat 0, loss -2
	closeTrade(t, ledger, 100, 110)
	closeTrade(t, ledger, 100, 105)
	closeTrade(t, ledger, 100, 92)
	closeTrade(t, ledger, 100, 100)
	closeTrade(t, ledger, 100, 98)

	assert.Equal(t, 5, ledger.TotalTrades())
	assert.Equal(t, 2, ledger.WinningTrades())
	assert.Equal(t, 2, ledger.LosingTrades())
	assert.LessOrEqual(t, ledger.WinningTrades()+ledger.LosingTrades(), ledger.TotalTrades())

	assert.InDelta(t, 5.0, ledger.TotalPoints(), 1e-9)
	assert.InDelta(t, 5.0, ledger.TotalPercent(), 1e-9)
	assert.Equal(t, 2, ledger.MaxWinStreak())
	assert.Equal(t, 1, ledger.MaxLossStreak())
	assert.Equal(t, 10.0, ledger.MaxGain())
	assert.Equal(t, -8.0, ledger.MaxLoss())
	assert.GreaterOrEqual(t, ledger.MaxGain(), 0.0)
	assert.LessOrEqual(t, ledger.MaxLoss(), 0.0)
}

func TestLedger_OpenPositionsExcludedFromMetrics(t *testing.T) {
	ledger := newLedger()
	closeTrade(t, ledger, 100, 110)
	_, err := ledger.OpenPosition(core.ActionBuy, 1, 120, ts(3), core.TriggerEntryRule)
	require.NoError(t, err)

	assert.Equal(t, 2, ledger.TotalTrades())
	assert.Len(t, ledger.ClosedPositions(), 1)
	assert.InDelta(t, 10.0, ledger.TotalPoints(), 1e-9)
}

func TestLedger_JSONRoundTrip(t *testing.T) {
	ledger := newLedger()
	closeTrade(t, ledger, 100, 110)

	payload, err := json.Marshal(ledger)
	require.NoError(t, err)

	var restored TradableInstrument
	require.NoError(t, json.Unmarshal(payload, &restored))

	assert.Equal(t, ledger.Instrument, restored.Instrument)
	require.Len(t, restored.Positions, 1)
	assert.InDelta(t, 10.0, restored.TotalPoints(), 1e-9)
}
