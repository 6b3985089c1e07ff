package models

import (
	"time"
)

// Position is an open perpetual-futures position. The symbol is the unique
// key: at most one Position exists per symbol at any time. A Position lives
// in the store from the moment its opening order is accepted until its
// closing order is confirmed (or the close is abandoned to reconciliation).
type Position struct {
	Symbol                string       `json:"symbol"`
	Side                  PositionSide `json:"side"`
	EntryPrice            float64      `json:"entry_price"`
	PositionSize          float64      `json:"position_size"`
	InitialStopLoss       float64      `json:"initial_stop_loss"`
	CurrentStopLoss       float64      `json:"current_stop_loss"`
	InitialRiskDistance   float64      `json:"initial_risk_distance"`
	TrailingStopActivated bool         `json:"trailing_stop_activated"`
	HighestPriceSoFar     float64      `json:"highest_price_so_far"`
	LowestPriceSoFar      float64      `json:"lowest_price_so_far"`
	EntryTimestamp        time.Time    `json:"entry_timestamp"`
}

// ProfitLoss returns the per-unit P&L of the position at the given price.
func (p *Position) ProfitLoss(currentPrice float64) float64 {
	if p.Side == SideLong {
		return currentPrice - p.EntryPrice
	}
	return p.EntryPrice - currentPrice
}

// UnrealizedPnLPercent returns the unrealized P&L as a percentage of entry.
func (p *Position) UnrealizedPnLPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return p.ProfitLoss(currentPrice) / p.EntryPrice * 100
}

// StopHit reports whether price has crossed the current stop against the
// position side.
func (p *Position) StopHit(price float64) bool {
	if p.Side == SideLong {
		return price <= p.CurrentStopLoss
	}
	return price >= p.CurrentStopLoss
}

// PositionSummary is a read-only snapshot of all open positions.
type PositionSummary struct {
	TotalPositions     int              `json:"total_positions"`
	LongPositions      int              `json:"long_positions"`
	ShortPositions     int              `json:"short_positions"`
	TotalUnrealizedPnL float64          `json:"total_unrealized_pnl"`
	Positions          []PositionDetail `json:"positions"`
}

// PositionDetail is one open position as presented to callers.
type PositionDetail struct {
	Symbol                string       `json:"symbol"`
	Side                  PositionSide `json:"side"`
	EntryPrice            float64      `json:"entry_price"`
	CurrentPrice          float64      `json:"current_price"`
	CurrentStopLoss       float64      `json:"current_stop_loss"`
	UnrealizedPnL         float64      `json:"unrealized_pnl"`
	PnLPercent            float64      `json:"pnl_percentage"`
	TrailingStopActivated bool         `json:"trailing_stop_activated"`
	EntryTimestamp        time.Time    `json:"entry_timestamp"`
}
