package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

type seriesKey struct {
	instrument core.Instrument
	tf         core.Timeframe
}

// MemoryRepository holds candle series in memory. It backs tests and
// CLI runs where the full history is loaded up front.
type MemoryRepository struct {
	mu     sync.RWMutex
	series map[seriesKey][]core.Candle
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{series: make(map[seriesKey][]core.Candle)}
}

// Load stores a candle series, sorted ascending by timestamp.
func (m *MemoryRepository) Load(instrument core.Instrument, tf core.Timeframe, candles []core.Candle) {
	sorted := append([]core.Candle(nil), candles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[seriesKey{instrument: instrument, tf: tf}] = sorted
}

// GetHistoricalData returns candles within [start, end] inclusive.
func (m *MemoryRepository) GetHistoricalData(_ context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.series[seriesKey{instrument: instrument, tf: tf}]
	out := make([]core.Candle, 0, len(all))
	for _, c := range all {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
