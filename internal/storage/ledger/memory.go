package ledger

import (
	"context"
	"sync"

	"github.com/quantrail/quantrail/internal/position"
)

// MemoryRepository is an in-memory ledger store. The engine mutates
// ledgers in place, so Save is mostly a bookkeeping hook here; the
// SQLite repository gives the same contract durable semantics.
type MemoryRepository struct {
	mu      sync.RWMutex
	ledgers map[string][]*position.TradableInstrument
}

// NewMemoryRepository creates an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ledgers: make(map[string][]*position.TradableInstrument)}
}

// Get implements Repository.
func (m *MemoryRepository) Get(_ context.Context, strategyName string) ([]*position.TradableInstrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*position.TradableInstrument(nil), m.ledgers[strategyName]...), nil
}

// Save implements Repository. An existing ledger for the same
// instrument is replaced in place.
func (m *MemoryRepository) Save(_ context.Context, strategyName string, instrument *position.TradableInstrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.ledgers[strategyName]
	for i, l := range existing {
		if l.Instrument == instrument.Instrument {
			existing[i] = instrument
			return nil
		}
	}
	m.ledgers[strategyName] = append(existing, instrument)
	return nil
}

// Delete implements Repository.
func (m *MemoryRepository) Delete(_ context.Context, strategyName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ledgers, strategyName)
	return nil
}
