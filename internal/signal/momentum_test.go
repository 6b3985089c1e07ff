package signal

import (
	"math"
	"testing"

	"perp-trader/internal/config"
	"perp-trader/internal/models"
)

func flatRSICandles(n int, lastRSI float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		rsi := 65.0
		if i%2 == 1 {
			rsi = 35.0
		}
		out[i] = models.Candle{RSI14: rsi}
	}
	out[n-1].RSI14 = lastRSI
	return out
}

func TestWeightsFor(t *testing.T) {
	trendingW := weightsFor(models.TrendStrongUp)
	if trendingW.MACD <= trendingW.RSI {
		t.Errorf("trending weights favor oscillators: %+v", trendingW)
	}
	flatW := weightsFor(models.TrendNeutral)
	if flatW.MACD >= flatW.RSI {
		t.Errorf("flat weights favor MACD: %+v", flatW)
	}
}

func TestRSIScoreBounds(t *testing.T) {
	// Deep oversold clamps at +1, deep overbought at -1.
	if got := rsiScore(flatRSICandles(50, 5)); got != 1 {
		t.Errorf("rsiScore(5) = %v, want 1", got)
	}
	if got := rsiScore(flatRSICandles(50, 95)); got != -1 {
		t.Errorf("rsiScore(95) = %v, want -1", got)
	}
	if got := rsiScore(flatRSICandles(50, 50)); got != 0 {
		t.Errorf("rsiScore(50) = %v, want 0", got)
	}

	// A dead-flat RSI history has no band to score against.
	flat := make([]models.Candle, 50)
	for i := range flat {
		flat[i].RSI14 = 50
	}
	if got := rsiScore(flat); got != 0 {
		t.Errorf("rsiScore(flat history) = %v, want 0", got)
	}
}

func TestMACDScore(t *testing.T) {
	tests := []struct {
		name string
		prev models.Candle
		curr models.Candle
		want float64
	}{
		{"fully bullish",
			models.Candle{MACDHist: 0.1},
			models.Candle{MACD: 1, MACDSignal: 0.5, MACDHist: 0.2}, 1},
		{"fully bearish",
			models.Candle{MACDHist: -0.1},
			models.Candle{MACD: -1, MACDSignal: -0.5, MACDHist: -0.2}, -1},
		{"bullish cross, falling histogram",
			models.Candle{MACDHist: 0.3},
			models.Candle{MACD: 1, MACDSignal: 0.5, MACDHist: 0.2}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := macdScore([]models.Candle{tt.prev, tt.curr}); got != tt.want {
				t.Errorf("macdScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStochasticScoreZones(t *testing.T) {
	score := func(k, d float64) float64 {
		return stochasticScore([]models.Candle{{StochK: k, StochD: d}})
	}

	if got := score(10, 5); got <= 0.5 {
		t.Errorf("oversold with bullish cross = %v, want > 0.5", got)
	}
	if got := score(90, 95); got >= -0.5 {
		t.Errorf("overbought with bearish cross = %v, want < -0.5", got)
	}
	if got := score(0, 5); got != 0.75 { // clamp(0.5+0.5,-1,1) - 0.25
		t.Errorf("score(0,5) = %v, want 0.75", got)
	}
	// Mid-zone is near neutral.
	if got := score(50, 50); math.Abs(got) > 0.3 {
		t.Errorf("mid-zone score = %v, want near 0", got)
	}
}

func TestVolumeVolatilityWeight(t *testing.T) {
	settings := config.DefaultTradingSettings() // spike at 2x, high vol at 5%

	calm := []models.Candle{{Close: 100, ATR14: 1, Volume: 100, VolumeSMA20: 100}}
	if got := volumeVolatilityWeight(calm, settings); got != 1.2 {
		t.Errorf("calm weight = %v, want 1.2", got)
	}

	volatile := []models.Candle{{Close: 100, ATR14: 6, Volume: 100, VolumeSMA20: 100}}
	if got := volumeVolatilityWeight(volatile, settings); got != 0.8 {
		t.Errorf("volatile weight = %v, want 0.8", got)
	}

	spike := []models.Candle{{Close: 100, ATR14: 1, Volume: 300, VolumeSMA20: 100}}
	if got := volumeVolatilityWeight(spike, settings); got != 1.25*1.2 {
		t.Errorf("spike weight = %v, want 1.5", got)
	}

	// Spike amplification caps at 1.5x.
	bigSpike := []models.Candle{{Close: 100, ATR14: 1, Volume: 1000, VolumeSMA20: 100}}
	if got := volumeVolatilityWeight(bigSpike, settings); got != 1.5*1.2 {
		t.Errorf("capped spike weight = %v, want 1.8", got)
	}
}

func TestPositionSizeClamped(t *testing.T) {
	settings := config.DefaultTradingSettings() // balance 10000, risk 2%, leverage 10

	// Tiny ATR would blow past the cap: clamped to 10% of balance.
	if got := positionSize(0.01, settings); got != 1000 {
		t.Errorf("positionSize(0.01) = %v, want 1000", got)
	}
	// Huge ATR shrinks below the floor: clamped to 1% of balance.
	if got := positionSize(1e6, settings); got != 100 {
		t.Errorf("positionSize(1e6) = %v, want 100", got)
	}
	// Degenerate ATR falls back to the floor.
	if got := positionSize(0, settings); got != 100 {
		t.Errorf("positionSize(0) = %v, want 100", got)
	}
	// In-range: 10000*0.02/4*10 = 500.
	if got := positionSize(4, settings); got != 500 {
		t.Errorf("positionSize(4) = %v, want 500", got)
	}
}

func TestStopAndTargetPlacement(t *testing.T) {
	settings := config.DefaultTradingSettings() // atr multiplier 1.5, tp ratio 1.5

	if got := stopLossPrice(100, 2, true, settings); got != 97 {
		t.Errorf("long stop = %v, want 97", got)
	}
	if got := stopLossPrice(100, 2, false, settings); got != 103 {
		t.Errorf("short stop = %v, want 103", got)
	}
	if got := takeProfitPrice(100, 2, true, settings); got != 104.5 {
		t.Errorf("long target = %v, want 104.5", got)
	}
	if got := takeProfitPrice(100, 2, false, settings); got != 95.5 {
		t.Errorf("short target = %v, want 95.5", got)
	}
}
