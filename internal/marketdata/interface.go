// Package marketdata supplies historical candles to the engine. The
// engine consumes the synchronous Repository contract; retries and
// parallel fetching live behind it.
package marketdata

import (
	"context"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

// Repository provides ordered historical candles for an instrument.
// An empty range yields an empty slice, not an error.
type Repository interface {
	GetHistoricalData(ctx context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error)
}

// Source fetches one contiguous segment of candles from wherever the
// data actually lives (file, database, remote API).
type Source interface {
	Fetch(ctx context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error)
}
