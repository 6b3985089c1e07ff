package signal

import (
	"perp-trader/internal/models"
)

// Trend strength bases, scaled by ADX before use.
const (
	strengthStrong  = 0.9
	strengthWeak    = 0.7
	strengthNeutral = 0.4

	adxFullStrength = 40.0
)

// longTermTrend classifies the higher-timeframe trend from the sign of
// EMA20 against SMA50. It is a coarse directional filter only.
func longTermTrend(candles []models.Candle) models.MarketTrend {
	last := candles[len(candles)-1]
	switch {
	case last.EMA20 > last.SMA50:
		return models.TrendWeakUp
	case last.EMA20 < last.SMA50:
		return models.TrendWeakDown
	default:
		return models.TrendNeutral
	}
}

// shortTermTrend classifies the short-timeframe trend from the ordering of
// EMA20, SMA50 and SMA200, and returns its strength scaled by ADX.
// A fully ordered stack (EMA20 > SMA50 > SMA200) is a strong trend; a
// partial ordering is weak.
func shortTermTrend(candles []models.Candle) (models.MarketTrend, float64) {
	last := candles[len(candles)-1]

	var trend models.MarketTrend
	switch {
	case last.EMA20 > last.SMA50 && last.SMA50 > last.SMA200:
		trend = models.TrendStrongUp
	case last.EMA20 > last.SMA50:
		trend = models.TrendWeakUp
	case last.EMA20 < last.SMA50 && last.SMA50 < last.SMA200:
		trend = models.TrendStrongDown
	case last.EMA20 < last.SMA50:
		trend = models.TrendWeakDown
	default:
		trend = models.TrendNeutral
	}

	base := strengthNeutral
	switch trend {
	case models.TrendStrongUp, models.TrendStrongDown:
		base = strengthStrong
	case models.TrendWeakUp, models.TrendWeakDown:
		base = strengthWeak
	}

	adxFactor := last.ADX14 / adxFullStrength
	if adxFactor > 1 {
		adxFactor = 1
	}
	return trend, base * adxFactor
}

// trending reports whether the short-term trend is directional enough to
// shift indicator weights toward trend-following.
func trending(trend models.MarketTrend) bool {
	return trend != models.TrendNeutral
}
