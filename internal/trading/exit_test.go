package trading

import (
	"testing"
	"time"

	"perp-trader/internal/config"
	"perp-trader/internal/models"
)

func testSettings() config.TradingSettings {
	return config.DefaultTradingSettings()
}

func longPosition(entry, stop float64) *models.Position {
	return &models.Position{
		Symbol:              "BTCUSDT",
		Side:                models.SideLong,
		EntryPrice:          entry,
		PositionSize:        1,
		InitialStopLoss:     stop,
		CurrentStopLoss:     stop,
		InitialRiskDistance: entry - stop,
		HighestPriceSoFar:   entry,
		LowestPriceSoFar:    entry,
		EntryTimestamp:      time.Now().UTC(),
	}
}

func shortPosition(entry, stop float64) *models.Position {
	return &models.Position{
		Symbol:              "BTCUSDT",
		Side:                models.SideShort,
		EntryPrice:          entry,
		PositionSize:        1,
		InitialStopLoss:     stop,
		CurrentStopLoss:     stop,
		InitialRiskDistance: stop - entry,
		HighestPriceSoFar:   entry,
		LowestPriceSoFar:    entry,
		EntryTimestamp:      time.Now().UTC(),
	}
}

func TestExitReasonStopLoss(t *testing.T) {
	settings := testSettings()
	now := time.Now().UTC()

	tests := []struct {
		name  string
		pos   *models.Position
		price float64
		want  models.CloseReason
		hit   bool
	}{
		{"long stop hit", longPosition(100, 98), 97.5, models.CloseStopLossHit, true},
		{"long stop exact", longPosition(100, 98), 98, models.CloseStopLossHit, true},
		{"long above stop", longPosition(100, 98), 99, "", false},
		{"short stop hit", shortPosition(100, 102), 103, models.CloseStopLossHit, true},
		{"short below stop", shortPosition(100, 102), 101, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, hit := exitReason(tt.pos, tt.price, 0, false, settings, now)
			if hit != tt.hit {
				t.Fatalf("exitReason() hit = %v, want %v", hit, tt.hit)
			}
			if hit && reason != tt.want {
				t.Errorf("exitReason() reason = %s, want %s", reason, tt.want)
			}
		})
	}
}

func TestExitReasonTimeLimit(t *testing.T) {
	settings := testSettings()
	pos := longPosition(100, 98)
	pos.EntryTimestamp = time.Now().UTC().Add(-settings.MaxPositionHold - time.Minute)

	reason, hit := exitReason(pos, 99, 0, false, settings, time.Now().UTC())
	if !hit || reason != models.CloseTimeLimitExceeded {
		t.Fatalf("exitReason() = %s, %v; want TIME_LIMIT_EXCEEDED", reason, hit)
	}
}

// A position past both its stop and its hold limit must report the stop:
// the conditions are checked in priority order and the first match wins.
func TestExitPriorityStopBeforeTimeLimit(t *testing.T) {
	settings := testSettings()
	pos := longPosition(100, 98)
	pos.EntryTimestamp = time.Now().UTC().Add(-settings.MaxPositionHold - time.Minute)

	reason, hit := exitReason(pos, 97, 0, false, settings, time.Now().UTC())
	if !hit || reason != models.CloseStopLossHit {
		t.Fatalf("exitReason() = %s, %v; want STOP_LOSS_HIT first", reason, hit)
	}
}

func TestExitReasonVolatility(t *testing.T) {
	settings := testSettings()
	settings.VolatilityExitThreshold = 0.03

	pos := longPosition(100, 98)

	// |104-100|/100 = 0.04 > atr(1.2) * 0.03 = 0.036
	reason, hit := exitReason(pos, 104, 1.2, true, settings, time.Now().UTC())
	if !hit || reason != models.CloseVolatilityExit {
		t.Fatalf("exitReason() = %s, %v; want VOLATILITY_EXIT", reason, hit)
	}

	// Same move with no live ATR reading: the check is skipped.
	if _, hit := exitReason(pos, 104, 0, false, settings, time.Now().UTC()); hit {
		t.Fatal("volatility exit fired without a live atr reading")
	}
}

func TestTrailingActivation(t *testing.T) {
	settings := testSettings() // take-profit ratio 1.5

	pos := longPosition(100, 98) // risk distance 2, activation at 103
	if shouldActivateTrailing(pos, 102.9, settings) {
		t.Error("activated below the activation price")
	}
	if !shouldActivateTrailing(pos, 103, settings) {
		t.Error("did not activate at the activation price")
	}

	short := shortPosition(100, 102) // activation at 97
	if shouldActivateTrailing(short, 97.1, settings) {
		t.Error("short activated above the activation price")
	}
	if !shouldActivateTrailing(short, 97, settings) {
		t.Error("short did not activate at the activation price")
	}
}

// Worked example: entry 100, stop 98 (risk 2), ratio 1.5, atr multiplier 1.5.
// Price 100 -> 103 -> 106: trailing activates at 103; at 106 the candidate
// stop is 106 - 2*1.5 = 103, which tightens from 98.
func TestTrailingRatchetWorkedExample(t *testing.T) {
	settings := testSettings()
	pos := longPosition(100, 98)

	if applyTrailing(pos, 100, settings) {
		t.Fatal("stop moved before activation")
	}
	if pos.TrailingStopActivated {
		t.Fatal("trailing active before the activation price")
	}

	applyTrailing(pos, 103, settings)
	if !pos.TrailingStopActivated {
		t.Fatal("trailing not active at 103")
	}

	if !applyTrailing(pos, 106, settings) {
		t.Fatal("stop did not move at 106")
	}
	if pos.CurrentStopLoss != 103 {
		t.Fatalf("CurrentStopLoss = %v, want 103", pos.CurrentStopLoss)
	}
	if pos.HighestPriceSoFar != 106 {
		t.Fatalf("HighestPriceSoFar = %v, want 106", pos.HighestPriceSoFar)
	}
}

func TestTrailingNeverLoosens(t *testing.T) {
	settings := testSettings()
	pos := longPosition(100, 98)

	applyTrailing(pos, 110, settings) // stop to 110 - 3 = 107
	if pos.CurrentStopLoss != 107 {
		t.Fatalf("CurrentStopLoss = %v, want 107", pos.CurrentStopLoss)
	}

	// A pullback must not move the stop down.
	if applyTrailing(pos, 104, settings) {
		t.Fatal("stop moved on a pullback")
	}
	if pos.CurrentStopLoss != 107 {
		t.Fatalf("CurrentStopLoss = %v after pullback, want 107", pos.CurrentStopLoss)
	}

	// Activation is one-way.
	if !pos.TrailingStopActivated {
		t.Fatal("trailing deactivated")
	}
}
