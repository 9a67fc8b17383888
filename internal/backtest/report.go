// Package backtest orchestrates a full simulation run: bar iteration,
// signal generation, execution and the final report.
package backtest

import (
	"time"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/position"
)

// Report summarizes one backtest run. Metrics are computed from the
// ledger's closed positions on every call, never cached, so the report
// stays consistent with the ledger it references.
type Report struct {
	StrategyName string
	StartDate    time.Time
	EndDate      time.Time
	Ledger       *position.TradableInstrument
}

// TotalTrades returns the number of positions taken.
func (r *Report) TotalTrades() int { return r.Ledger.TotalTrades() }

// TotalPoints returns the summed PnL points of closed positions.
func (r *Report) TotalPoints() float64 { return r.Ledger.TotalPoints() }

// TotalPercent returns the summed per-position percentage PnL.
func (r *Report) TotalPercent() float64 { return r.Ledger.TotalPercent() }

// WinningTrades counts closed positions with positive PnL.
func (r *Report) WinningTrades() int { return r.Ledger.WinningTrades() }

// LosingTrades counts closed positions with negative PnL.
func (r *Report) LosingTrades() int { return r.Ledger.LosingTrades() }

// MaxWinStreak returns the longest run of consecutive winners.
func (r *Report) MaxWinStreak() int { return r.Ledger.MaxWinStreak() }

// MaxLossStreak returns the longest run of consecutive losers.
func (r *Report) MaxLossStreak() int { return r.Ledger.MaxLossStreak() }

// MaxGain returns the best single-trade PnL.
func (r *Report) MaxGain() float64 { return r.Ledger.MaxGain() }

// MaxLoss returns the worst single-trade PnL.
func (r *Report) MaxLoss() float64 { return r.Ledger.MaxLoss() }

// Snapshot is the serializable form of a report. The engine owns the
// shape; callers own the wire format.
type Snapshot struct {
	Strategy   string                  `json:"strategy"`
	StartDate  time.Time               `json:"start_date"`
	EndDate    time.Time               `json:"end_date"`
	Instrument core.PositionInstrument `json:"instrument"`
	Positions  []PositionSummary       `json:"positions"`
	Summary    Summary                 `json:"summary"`
}

// PositionSummary reduces one position to its reportable facts.
type PositionSummary struct {
	ID           string           `json:"id"`
	Direction    position.Direction `json:"direction"`
	Quantity     int              `json:"quantity"`
	EntryPrice   float64          `json:"entry_price"`
	EntryTime    time.Time        `json:"entry_time"`
	ExitPrice    float64          `json:"exit_price,omitempty"`
	ExitTime     *time.Time       `json:"exit_time,omitempty"`
	StopLoss     float64          `json:"stop_loss,omitempty"`
	EntryTrigger core.TriggerType `json:"entry_trigger"`
	ExitTrigger  core.TriggerType `json:"exit_trigger,omitempty"`
	PnLPoints    float64          `json:"pnl_points"`
	PnLPercent   float64          `json:"pnl_percent"`
	Open         bool             `json:"open"`
}

// Summary is the aggregate metrics block of a snapshot.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPoints   float64 `json:"total_points"`
	TotalPercent  float64 `json:"total_percent"`
	MaxWinStreak  int     `json:"max_win_streak"`
	MaxLossStreak int     `json:"max_loss_streak"`
	MaxGain       float64 `json:"max_gain"`
	MaxLoss       float64 `json:"max_loss"`
}

// Snapshot materializes the report for serialization or archival.
func (r *Report) Snapshot() Snapshot {
	positions := make([]PositionSummary, 0, len(r.Ledger.Positions))
	for _, p := range r.Ledger.Positions {
		summary := PositionSummary{
			ID:           p.ID,
			Direction:    p.Direction,
			Quantity:     p.Quantity,
			EntryPrice:   p.EntryPrice(),
			EntryTime:    p.EntryTime(),
			StopLoss:     p.StopLoss,
			EntryTrigger: p.EntryTrigger,
			PnLPoints:    p.PnLPoints(),
			PnLPercent:   p.PnLPercent(),
			Open:         p.IsOpen(),
		}
		if !p.IsOpen() {
			summary.ExitPrice = p.ExitPrice()
			exitAt := p.Fills[1].Timestamp
			summary.ExitTime = &exitAt
			summary.ExitTrigger = p.ExitTrigger
		}
		positions = append(positions, summary)
	}

	return Snapshot{
		Strategy:   r.StrategyName,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Instrument: r.Ledger.Instrument,
		Positions:  positions,
		Summary: Summary{
			TotalTrades:   r.TotalTrades(),
			WinningTrades: r.WinningTrades(),
			LosingTrades:  r.LosingTrades(),
			TotalPoints:   r.TotalPoints(),
			TotalPercent:  r.TotalPercent(),
			MaxWinStreak:  r.MaxWinStreak(),
			MaxLossStreak: r.MaxLossStreak(),
			MaxGain:       r.MaxGain(),
			MaxLoss:       r.MaxLoss(),
		},
	}
}
