// Package ledger persists tradable-instrument state per strategy run.
package ledger

import (
	"context"

	"github.com/quantrail/quantrail/internal/position"
)

// Repository stores the per-strategy position ledgers. The contract is
// read-modify-write with no optimistic locking, so callers must not run
// concurrent writers for the same strategy name.
type Repository interface {
	// Get retrieves the ledgers for a strategy, in save order.
	Get(ctx context.Context, strategyName string) ([]*position.TradableInstrument, error)

	// Save persists a ledger under the strategy name, replacing any
	// existing ledger for the same instrument.
	Save(ctx context.Context, strategyName string, instrument *position.TradableInstrument) error

	// Delete removes all ledgers for a strategy.
	Delete(ctx context.Context, strategyName string) error
}
