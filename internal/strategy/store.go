package strategy

import (
	"sync"
)

// Store holds registered strategies by name.
type Store struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{strategies: make(map[string]Strategy)}
}

// Register adds or replaces a strategy.
func (s *Store) Register(strat Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[strat.Name()] = strat
}

// Get retrieves a strategy by name.
func (s *Store) Get(name string) (Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strat, ok := s.strategies[name]
	return strat, ok
}

// Names returns the registered strategy names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	return names
}
