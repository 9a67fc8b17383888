// Package position owns the trade ledger: individual positions with
// their fills, and the per-instrument ledger the executor mutates.
package position

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantrail/quantrail/internal/core"
)

// Direction is the side of a position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Fill is one execution applied to a position. The first fill is the
// entry; an optional second fill is the exit.
type Fill struct {
	ID        string      `json:"id"`
	Action    core.Action `json:"action"`
	Price     float64     `json:"price"`
	Quantity  int         `json:"quantity"`
	Timestamp time.Time   `json:"timestamp"`
}

// Position is one directional bet. It is open while it has exactly one
// fill and is terminal once closed.
type Position struct {
	ID           string           `json:"id"`
	Instrument   core.Instrument  `json:"instrument"`
	Direction    Direction        `json:"direction"`
	Quantity     int              `json:"quantity"`
	StopLoss     float64          `json:"stop_loss,omitempty"`
	Fills        []Fill           `json:"fills"`
	EntryTrigger core.TriggerType `json:"entry_trigger"`
	ExitTrigger  core.TriggerType `json:"exit_trigger,omitempty"`
}

// NewPosition opens a position with its entry fill. Entry price and
// quantity must be non-zero.
func NewPosition(instrument core.Instrument, action core.Action, quantity int, price float64, ts time.Time, trigger core.TriggerType) (*Position, error) {
	if price == 0 {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("entry price must be non-zero for %s", instrument))
	}
	if quantity == 0 {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("quantity must be non-zero for %s", instrument))
	}

	direction := DirectionLong
	if action == core.ActionSell {
		direction = DirectionShort
	}

	return &Position{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Direction:  direction,
		Quantity:   quantity,
		Fills: []Fill{{
			ID:        uuid.NewString(),
			Action:    action,
			Price:     price,
			Quantity:  quantity,
			Timestamp: ts,
		}},
		EntryTrigger: trigger,
	}, nil
}

// IsOpen reports whether the position has only its entry fill.
func (p *Position) IsOpen() bool {
	return len(p.Fills) == 1
}

// Close applies the exit fill. Closing an already-closed position is a
// data-integrity error; a position never reopens.
func (p *Position) Close(price float64, ts time.Time, trigger core.TriggerType) error {
	if !p.IsOpen() {
		return core.WrapError(core.ErrNoOpenPosition, fmt.Errorf("position %s already closed", p.ID))
	}
	p.Fills = append(p.Fills, Fill{
		ID:        uuid.NewString(),
		Action:    p.Fills[0].Action.Opposite(),
		Price:     price,
		Quantity:  p.Quantity,
		Timestamp: ts,
	})
	p.ExitTrigger = trigger
	return nil
}

// EntryPrice returns the entry fill price.
func (p *Position) EntryPrice() float64 {
	if len(p.Fills) == 0 {
		return 0
	}
	return p.Fills[0].Price
}

// ExitPrice returns the exit fill price, or 0 while open.
func (p *Position) ExitPrice() float64 {
	if p.IsOpen() || len(p.Fills) < 2 {
		return 0
	}
	return p.Fills[1].Price
}

// EntryTime returns the entry fill timestamp.
func (p *Position) EntryTime() time.Time {
	if len(p.Fills) == 0 {
		return time.Time{}
	}
	return p.Fills[0].Timestamp
}

// PnLPoints returns exit-entry for longs and entry-exit for shorts.
// Open positions report zero.
func (p *Position) PnLPoints() float64 {
	if p.IsOpen() || len(p.Fills) < 2 {
		return 0
	}
	if p.Direction == DirectionShort {
		return p.EntryPrice() - p.ExitPrice()
	}
	return p.ExitPrice() - p.EntryPrice()
}

// PnL returns the quantity-weighted profit. Open positions report zero.
func (p *Position) PnL() float64 {
	return p.PnLPoints() * float64(p.Quantity)
}

// PnLPercent returns points relative to the entry price, in percent.
func (p *Position) PnLPercent() float64 {
	entry := p.EntryPrice()
	if entry == 0 {
		return 0
	}
	return p.PnLPoints() / entry * 100
}
