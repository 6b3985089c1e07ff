package signal

import (
	"perp-trader/internal/config"
	"perp-trader/internal/models"
	"perp-trader/pkg/utils"
)

// indicatorWeights are the relative weights of the momentum sub-scores.
type indicatorWeights struct {
	MACD       float64
	RSI        float64
	Stochastic float64
}

// weightsFor returns trend-adaptive weights: a trending market favors MACD,
// a flat market favors the oscillators.
func weightsFor(shortTrend models.MarketTrend) indicatorWeights {
	if trending(shortTrend) {
		return indicatorWeights{MACD: 1.5, RSI: 0.7, Stochastic: 0.7}
	}
	return indicatorWeights{MACD: 0.7, RSI: 1.2, Stochastic: 1.2}
}

// momentumScores holds the sub-scores feeding the momentum average, each in
// roughly [-1, 1]. Positive is bullish.
type momentumScores struct {
	RSI        float64
	MACD       float64
	Stochastic float64
	Momentum   float64
}

// scoreMomentum computes the weighted momentum score from the short-timeframe
// series.
func scoreMomentum(candles []models.Candle, shortTrend models.MarketTrend) momentumScores {
	scores := momentumScores{
		RSI:        rsiScore(candles),
		MACD:       macdScore(candles),
		Stochastic: stochasticScore(candles),
	}

	w := weightsFor(shortTrend)
	total := w.MACD + w.RSI + w.Stochastic
	scores.Momentum = (scores.MACD*w.MACD + scores.RSI*w.RSI + scores.Stochastic*w.Stochastic) / total
	return scores
}

// rsiScore maps the latest RSI into [-1, 1] against dynamic bounds.
// The overbought/oversold bounds are 50 ± 2·stdev of the last 50 RSI values,
// clamped to [30, 70], so the oscillator's own recent volatility sets the
// sensitivity instead of the fixed 30/70 convention.
func rsiScore(candles []models.Candle) float64 {
	n := len(candles)
	window := 50
	if n < window {
		window = n
	}
	recent := make([]float64, 0, window)
	for _, c := range candles[n-window:] {
		recent = append(recent, c.RSI14)
	}

	sd := utils.Stdev(recent)
	upper := utils.Clamp(50+2*sd, 50, 70)
	lower := utils.Clamp(50-2*sd, 30, 50)

	rsi := candles[n-1].RSI14
	halfBand := (upper - lower) / 2
	if halfBand == 0 {
		return 0
	}
	// Linear: +1 at the lower bound (oversold, bullish), -1 at the upper.
	return utils.Clamp((50-rsi)/halfBand, -1, 1)
}

// macdScore scores MACD state: line against signal line carries half the
// score, histogram sign and histogram direction a quarter each.
func macdScore(candles []models.Candle) float64 {
	n := len(candles)
	curr := candles[n-1]
	prev := candles[n-2]

	var score float64
	if curr.MACD > curr.MACDSignal {
		score += 0.5
	} else {
		score -= 0.5
	}
	if curr.MACDHist > 0 {
		score += 0.25
	} else {
		score -= 0.25
	}
	if curr.MACDHist > prev.MACDHist {
		score += 0.25
	} else {
		score -= 0.25
	}
	return score
}

// stochasticScore scores the Stochastic oscillator: oversold/overbought
// zones dominate, the %K/%D crossover adds a quarter.
func stochasticScore(candles []models.Candle) float64 {
	last := candles[len(candles)-1]
	k, d := last.StochK, last.StochD

	var score float64
	switch {
	case k < 20:
		score = 0.5 + (20-k)*0.025 // deeper oversold, more bullish
	case k > 80:
		score = -0.5 - (k-80)*0.025
	default:
		score = 0.5 - (k-20)/60 // linear through the neutral zone
	}

	if k > d {
		score += 0.25
	} else {
		score -= 0.25
	}
	return utils.Clamp(score, -1, 1)
}

// volumeVolatilityWeight scales the momentum score by market regime: volume
// spikes above the configured threshold amplify it up to 1.5×, while a
// high-volatility regime damps it (0.8×) and a calm one boosts it (1.2×).
func volumeVolatilityWeight(candles []models.Candle, settings config.TradingSettings) float64 {
	last := candles[len(candles)-1]

	volumeWeight := 1.0
	if last.VolumeSMA20 > 0 {
		ratio := last.Volume / last.VolumeSMA20
		if ratio >= settings.VolumeSpikeThreshold {
			volumeWeight = utils.Clamp(1+(ratio-settings.VolumeSpikeThreshold)*0.25, 1, 1.5)
		}
	}

	volatilityWeight := 1.2
	if last.Close > 0 && last.ATR14/last.Close > settings.VolatilityHighThreshold {
		volatilityWeight = 0.8
	}

	return volumeWeight * volatilityWeight
}
