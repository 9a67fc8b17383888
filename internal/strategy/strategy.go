// Package strategy defines the capability set a backtest consumes and
// the JSON-backed definition format implementing it.
package strategy

import (
	"fmt"
	"time"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/rules"
)

// RiskKind selects how a stop-loss offset is expressed.
type RiskKind string

const (
	// RiskPoints is an absolute points offset from the entry price.
	RiskPoints RiskKind = "points"
	// RiskPercent is a percentage offset from the entry price.
	RiskPercent RiskKind = "percent"
)

// RiskManagement is a strategy's stop-loss rule. The offset converts
// to an absolute level once, at position-open time.
type RiskManagement struct {
	Kind  RiskKind `json:"kind"`
	Value float64  `json:"value"`
}

// Validate checks the rule at construction time.
func (r *RiskManagement) Validate() error {
	if r == nil {
		return nil
	}
	if r.Kind != RiskPoints && r.Kind != RiskPercent {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk kind %q", r.Kind))
	}
	if r.Value <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk value %v must be positive", r.Value))
	}
	return nil
}

// LevelFor converts the offset into an absolute stop level for a
// position entered with the given action at the given price. Longs stop
// below entry, shorts above.
func (r *RiskManagement) LevelFor(entryAction core.Action, entryPrice float64) float64 {
	offset := r.Value
	if r.Kind == RiskPercent {
		offset = entryPrice * r.Value / 100
	}
	if entryAction == core.ActionSell {
		return entryPrice + offset
	}
	return entryPrice - offset
}

// Strategy is the capability set the engine consumes. The JSON-backed
// Definition is one implementation behind this interface.
type Strategy interface {
	// Name is the display name used for reports and persistence keys.
	Name() string

	// Instrument is the underlying whose candles drive rule evaluation.
	Instrument() core.Instrument

	// Timeframe is the candle interval the strategy trades on.
	Timeframe() core.Timeframe

	// EntryRules gate opening a position.
	EntryRules() *rules.RuleSet

	// ExitRules gate closing a position. May be empty.
	ExitRules() *rules.RuleSet

	// PositionInstrument is what actually gets traded, with its entry
	// action. Not necessarily the same contract as Instrument.
	PositionInstrument() core.PositionInstrument

	// RiskManagement returns the stop-loss rule, or nil for none.
	RiskManagement() *RiskManagement

	// RequiredHistoryStartDate says how far back history must be
	// fetched for indicators to be valid at asOf.
	RequiredHistoryStartDate(asOf time.Time) time.Time
}
