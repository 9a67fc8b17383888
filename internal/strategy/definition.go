package strategy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/rules"
)

// Definition is a strategy loaded from structured configuration.
type Definition struct {
	DisplayName string                  `json:"name"`
	Underlying  core.Instrument         `json:"instrument"`
	Interval    core.Timeframe          `json:"timeframe"`
	Entry       *rules.RuleSet          `json:"entry_rules"`
	Exit        *rules.RuleSet          `json:"exit_rules,omitempty"`
	Position    core.PositionInstrument `json:"position_instrument"`
	Risk        *RiskManagement         `json:"risk_management,omitempty"`
}

// ParseDefinition decodes and validates a JSON strategy definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the definition's required fields and enum values.
func (d *Definition) Validate() error {
	if d.DisplayName == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy name is required"))
	}
	if d.Underlying.Key == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy %s: instrument key is required", d.DisplayName))
	}
	if _, err := core.ParseTimeframe(string(d.Interval)); err != nil {
		return err
	}
	if d.Entry == nil || len(d.Entry.Conditions) == 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy %s: entry rules are required", d.DisplayName))
	}
	if !d.Position.Action.IsValid() {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy %s: position action %q", d.DisplayName, d.Position.Action))
	}
	if d.Position.Instrument.Key == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy %s: position instrument key is required", d.DisplayName))
	}
	return d.Risk.Validate()
}

// Name implements Strategy.
func (d *Definition) Name() string { return d.DisplayName }

// Instrument implements Strategy.
func (d *Definition) Instrument() core.Instrument { return d.Underlying }

// Timeframe implements Strategy.
func (d *Definition) Timeframe() core.Timeframe { return d.Interval }

// EntryRules implements Strategy.
func (d *Definition) EntryRules() *rules.RuleSet { return d.Entry }

// ExitRules implements Strategy.
func (d *Definition) ExitRules() *rules.RuleSet { return d.Exit }

// PositionInstrument implements Strategy.
func (d *Definition) PositionInstrument() core.PositionInstrument { return d.Position }

// RiskManagement implements Strategy.
func (d *Definition) RiskManagement() *RiskManagement { return d.Risk }

// RequiredHistoryStartDate implements Strategy by delegating to the
// lookback planner.
func (d *Definition) RequiredHistoryStartDate(asOf time.Time) time.Time {
	return rules.RequiredHistoryStart(d.Entry, d.Exit, d.Interval, asOf)
}
