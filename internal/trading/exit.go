package trading

import (
	"math"
	"time"

	"perp-trader/internal/config"
	"perp-trader/internal/models"
)

// exitReason evaluates the exit conditions in priority order and returns the
// first that matches. The order is part of the contract: a position past
// both its stop and its hold limit reports STOP_LOSS_HIT.
//
// The volatility check is best-effort: when no live ATR reading is
// available (atrOK false) it is skipped rather than failing the pass.
func exitReason(pos *models.Position, price float64, atr float64, atrOK bool, settings config.TradingSettings, now time.Time) (models.CloseReason, bool) {
	if pos.StopHit(price) {
		return models.CloseStopLossHit, true
	}

	if now.Sub(pos.EntryTimestamp) > settings.MaxPositionHold {
		return models.CloseTimeLimitExceeded, true
	}

	if atrOK && atr > 0 && pos.EntryPrice > 0 {
		priceChangeRatio := math.Abs(price-pos.EntryPrice) / pos.EntryPrice
		if priceChangeRatio > atr*settings.VolatilityExitThreshold {
			return models.CloseVolatilityExit, true
		}
	}

	return "", false
}

// shouldActivateTrailing reports whether favorable excursion has reached the
// activation distance: initial risk distance times the take-profit ratio.
func shouldActivateTrailing(pos *models.Position, price float64, settings config.TradingSettings) bool {
	activationDist := pos.InitialRiskDistance * settings.TakeProfitRatio
	if pos.Side == models.SideLong {
		return price >= pos.EntryPrice+activationDist
	}
	return price <= pos.EntryPrice-activationDist
}

// candidateStop recomputes the stop from the extreme price reached, using
// the initial risk distance as the ATR proxy fixed at entry.
func candidateStop(pos *models.Position, price float64, settings config.TradingSettings) float64 {
	dist := pos.InitialRiskDistance * settings.ATRMultiplier
	if pos.Side == models.SideLong {
		highest := math.Max(pos.HighestPriceSoFar, price)
		return highest - dist
	}
	lowest := math.Min(pos.LowestPriceSoFar, price)
	return lowest + dist
}

// tightens reports whether newStop improves on the current stop for the
// position side. This is the single enforcement point of the monotone
// ratchet: a LONG stop only ever rises, a SHORT stop only ever falls.
func tightens(pos *models.Position, newStop float64) bool {
	if pos.Side == models.SideLong {
		return newStop > pos.CurrentStopLoss
	}
	return newStop < pos.CurrentStopLoss
}

// applyTrailing updates activation state, extremes and the stop on the given
// position in place. It returns true when the stop moved. Activation is
// one-way; the stop mutates only through the tightens guard.
func applyTrailing(pos *models.Position, price float64, settings config.TradingSettings) bool {
	if !pos.TrailingStopActivated {
		if !shouldActivateTrailing(pos, price, settings) {
			return false
		}
		pos.TrailingStopActivated = true
	}

	newStop := candidateStop(pos, price, settings)
	if !tightens(pos, newStop) {
		return false
	}

	pos.CurrentStopLoss = newStop
	if pos.Side == models.SideLong {
		pos.HighestPriceSoFar = math.Max(pos.HighestPriceSoFar, price)
	} else {
		pos.LowestPriceSoFar = math.Min(pos.LowestPriceSoFar, price)
	}
	return true
}
