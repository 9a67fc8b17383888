package position

import (
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

// TradableInstrument is the per-instrument ledger for one strategy run.
// It owns every position it created, in opening order. It is mutated by
// a single execution thread and carries no locking of its own.
type TradableInstrument struct {
	Instrument core.PositionInstrument `json:"instrument"`
	Positions  []*Position             `json:"positions"`
}

// NewTradableInstrument creates an empty ledger for the instrument.
func NewTradableInstrument(instrument core.PositionInstrument) *TradableInstrument {
	return &TradableInstrument{Instrument: instrument}
}

// OpenPosition creates and tracks a new position.
func (t *TradableInstrument) OpenPosition(action core.Action, quantity int, price float64, ts time.Time, trigger core.TriggerType) (*Position, error) {
	pos, err := NewPosition(t.Instrument.Instrument, action, quantity, price, ts, trigger)
	if err != nil {
		return nil, err
	}
	t.Positions = append(t.Positions, pos)
	return pos, nil
}

// AnyOpen reports whether at least one position is open.
func (t *TradableInstrument) AnyOpen() bool {
	for _, p := range t.Positions {
		if p.IsOpen() {
			return true
		}
	}
	return false
}

// OpenPositions returns the open positions in opening order.
func (t *TradableInstrument) OpenPositions() []*Position {
	var out []*Position
	for _, p := range t.Positions {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// LastOpen returns the most recently opened position that is still
// open, or nil.
func (t *TradableInstrument) LastOpen() *Position {
	for i := len(t.Positions) - 1; i >= 0; i-- {
		if t.Positions[i].IsOpen() {
			return t.Positions[i]
		}
	}
	return nil
}

// ClosedPositions returns the closed positions in opening order.
func (t *TradableInstrument) ClosedPositions() []*Position {
	var out []*Position
	for _, p := range t.Positions {
		if !p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// TotalTrades returns the number of positions taken, open or closed.
func (t *TradableInstrument) TotalTrades() int {
	return len(t.Positions)
}

// TotalPoints sums PnL points across closed positions.
func (t *TradableInstrument) TotalPoints() float64 {
	var total float64
	for _, p := range t.ClosedPositions() {
		total += p.PnLPoints()
	}
	return total
}

// TotalPercent sums per-position percentage PnL (points over entry
// price) across closed positions. This is the single percentage
// definition used everywhere.
func (t *TradableInstrument) TotalPercent() float64 {
	var total float64
	for _, p := range t.ClosedPositions() {
		total += p.PnLPercent()
	}
	return total
}

// WinningTrades counts closed positions with positive PnL. Zero-PnL
// trades count toward neither wins nor losses.
func (t *TradableInstrument) WinningTrades() int {
	count := 0
	for _, p := range t.ClosedPositions() {
		if p.PnL() > 0 {
			count++
		}
	}
	return count
}

// LosingTrades counts closed positions with negative PnL.
func (t *TradableInstrument) LosingTrades() int {
	count := 0
	for _, p := range t.ClosedPositions() {
		if p.PnL() < 0 {
			count++
		}
	}
	return count
}

// MaxWinStreak returns the longest run of consecutive winning trades.
func (t *TradableInstrument) MaxWinStreak() int {
	return t.maxStreak(func(p *Position) bool { return p.PnL() > 0 })
}

// MaxLossStreak returns the longest run of consecutive losing trades.
func (t *TradableInstrument) MaxLossStreak() int {
	return t.maxStreak(func(p *Position) bool { return p.PnL() < 0 })
}

func (t *TradableInstrument) maxStreak(match func(*Position) bool) int {
	best, current := 0, 0
	for _, p := range t.ClosedPositions() {
		if match(p) {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return best
}

// MaxGain returns the largest single-trade PnL among closed positions,
// or zero when none are closed.
func (t *TradableInstrument) MaxGain() float64 {
	closed := t.ClosedPositions()
	if len(closed) == 0 {
		return 0
	}
	best := closed[0].PnL()
	for _, p := range closed[1:] {
		if pnl := p.PnL(); pnl > best {
			best = pnl
		}
	}
	return best
}

// MaxLoss returns the most negative single-trade PnL among closed
// positions, or zero when none are closed.
func (t *TradableInstrument) MaxLoss() float64 {
	closed := t.ClosedPositions()
	if len(closed) == 0 {
		return 0
	}
	worst := closed[0].PnL()
	for _, p := range closed[1:] {
		if pnl := p.PnL(); pnl < worst {
			worst = pnl
		}
	}
	return worst
}
