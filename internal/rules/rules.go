// Package rules implements the boolean expression trees strategies are
// defined with and the lookback planning derived from them.
package rules

import (
	"fmt"
	"math"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/indicator"
)

// Logic combines the conditions of a rule set.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Operator compares two expression values.
type Operator string

const (
	OpGreater Operator = ">"
	OpLess    Operator = "<"
	OpEqual   Operator = "=="
)

// Expression names an indicator and its parameter bag.
type Expression struct {
	Indicator string         `json:"indicator"`
	Params    map[string]any `json:"params,omitempty"`
}

// Evaluate resolves the indicator through the registry and computes its
// value over the window. Unknown names and malformed params are
// configuration errors.
func (e Expression) Evaluate(reg *indicator.Registry, window []core.Candle) (float64, error) {
	fn, err := reg.Get(e.Indicator)
	if err != nil {
		return 0, err
	}
	p, err := indicator.ParseParams(e.Params)
	if err != nil {
		return 0, err
	}
	return fn(window, p), nil
}

// Period returns the expression's period parameter, or 0 when absent.
func (e Expression) Period() int {
	p, err := indicator.ParseParams(e.Params)
	if err != nil {
		return 0
	}
	return p.Period
}

// Condition compares two expressions.
type Condition struct {
	Left     Expression `json:"left"`
	Operator Operator   `json:"operator"`
	Right    Expression `json:"right"`
}

// IsSatisfied evaluates both sides against the window. A NaN on either
// side means the condition is not satisfied, regardless of operator.
func (c Condition) IsSatisfied(reg *indicator.Registry, window []core.Candle) (bool, error) {
	left, err := c.Left.Evaluate(reg, window)
	if err != nil {
		return false, err
	}
	right, err := c.Right.Evaluate(reg, window)
	if err != nil {
		return false, err
	}
	if math.IsNaN(left) || math.IsNaN(right) {
		return false, nil
	}

	switch c.Operator {
	case OpGreater:
		return left > right, nil
	case OpLess:
		return left < right, nil
	case OpEqual:
		return left == right, nil
	}
	return false, core.WrapError(core.ErrUnsupportedOperator, fmt.Errorf("operator %q", c.Operator))
}

// RuleSet combines conditions under AND/OR logic.
type RuleSet struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// Apply evaluates every condition against the window. An empty or nil
// rule set is never satisfied.
func (rs *RuleSet) Apply(reg *indicator.Registry, window []core.Candle) (bool, error) {
	if rs == nil || len(rs.Conditions) == 0 {
		return false, nil
	}

	logic := rs.Logic
	if logic == "" {
		logic = LogicAnd
	}

	satisfiedAny := false
	for _, cond := range rs.Conditions {
		ok, err := cond.IsSatisfied(reg, window)
		if err != nil {
			return false, err
		}
		switch logic {
		case LogicAnd:
			if !ok {
				return false, nil
			}
		case LogicOr:
			if ok {
				satisfiedAny = true
			}
		default:
			return false, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown rule logic %q", logic))
		}
	}

	if logic == LogicOr {
		return satisfiedAny, nil
	}
	return true, nil
}

// MaxPeriod returns the largest period parameter across all expressions.
func (rs *RuleSet) MaxPeriod() int {
	if rs == nil {
		return 0
	}
	maxPeriod := 0
	for _, cond := range rs.Conditions {
		if p := cond.Left.Period(); p > maxPeriod {
			maxPeriod = p
		}
		if p := cond.Right.Period(); p > maxPeriod {
			maxPeriod = p
		}
	}
	return maxPeriod
}
