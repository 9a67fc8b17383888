package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/position"
)

func testLedger(key string) *position.TradableInstrument {
	return position.NewTradableInstrument(core.PositionInstrument{
		Action: core.ActionBuy,
		Instrument: core.Instrument{
			Exchange: core.ExchangeNSE,
			Type:     core.InstrumentFuture,
			Key:      key,
		},
	})
}

func TestMemoryRepository_SaveGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	got, err := repo.Get(ctx, "momentum")
	require.NoError(t, err)
	assert.Empty(t, got, "unknown strategy yields empty list")

	require.NoError(t, repo.Save(ctx, "momentum", testLedger("NIFTY")))
	require.NoError(t, repo.Save(ctx, "momentum", testLedger("BANKNIFTY")))

	got, err = repo.Get(ctx, "momentum")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryRepository_SaveReplacesSameInstrument(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := testLedger("NIFTY")
	require.NoError(t, repo.Save(ctx, "momentum", first))

	updated := testLedger("NIFTY")
	_, err := updated.OpenPosition(core.ActionBuy, 1, 100, time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC), core.TriggerEntryRule)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "momentum", updated))

	got, err := repo.Get(ctx, "momentum")
	require.NoError(t, err)
	require.Len(t, got, 1, "same instrument must replace, not append")
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "momentum", testLedger("NIFTY")))
	require.NoError(t, repo.Delete(ctx, "momentum"))
	got, err := repo.Get(ctx, "momentum")
	require.NoError(t, err)
	assert.Empty(t, got)
}
