package signal

import (
	"perp-trader/internal/config"
	"perp-trader/pkg/utils"
)

// Position size bounds as fractions of account balance.
const (
	minPositionFraction = 0.01
	maxPositionFraction = 0.10
)

// positionSize computes the ATR-scaled position size from the risk budget,
// clamped to [1%, 10%] of account balance.
func positionSize(atr float64, settings config.TradingSettings) float64 {
	if atr <= 0 {
		return settings.AccountBalance * minPositionFraction
	}
	riskAmount := settings.AccountBalance * settings.RiskPerTrade
	size := riskAmount / atr * float64(settings.Leverage)
	return utils.Clamp(size,
		settings.AccountBalance*minPositionFraction,
		settings.AccountBalance*maxPositionFraction)
}

// stopLossPrice places the stop an ATR multiple away from the close, below
// for a long entry and above for a short.
func stopLossPrice(close, atr float64, long bool, settings config.TradingSettings) float64 {
	dist := atr * settings.ATRMultiplier
	if long {
		return close - dist
	}
	return close + dist
}

// takeProfitPrice places the target at the stop distance times the
// take-profit ratio, on the favorable side.
func takeProfitPrice(close, atr float64, long bool, settings config.TradingSettings) float64 {
	dist := atr * settings.ATRMultiplier * settings.TakeProfitRatio
	if long {
		return close + dist
	}
	return close - dist
}
