package signal

import (
	"testing"

	"perp-trader/internal/models"
)

func candleWithMAs(ema20, sma50, sma200, adx float64) []models.Candle {
	return []models.Candle{{EMA20: ema20, SMA50: sma50, SMA200: sma200, ADX14: adx}}
}

func TestLongTermTrend(t *testing.T) {
	if got := longTermTrend(candleWithMAs(105, 100, 0, 0)); !got.IsUp() {
		t.Errorf("EMA above SMA = %s, want up", got)
	}
	if got := longTermTrend(candleWithMAs(95, 100, 0, 0)); !got.IsDown() {
		t.Errorf("EMA below SMA = %s, want down", got)
	}
	if got := longTermTrend(candleWithMAs(100, 100, 0, 0)); got != models.TrendNeutral {
		t.Errorf("equal MAs = %s, want NEUTRAL", got)
	}
}

func TestShortTermTrend(t *testing.T) {
	tests := []struct {
		name         string
		candles      []models.Candle
		wantTrend    models.MarketTrend
		wantStrength float64
	}{
		{"full bullish stack at full adx", candleWithMAs(110, 105, 100, 40), models.TrendStrongUp, 0.9},
		{"partial bullish ordering", candleWithMAs(110, 105, 108, 40), models.TrendWeakUp, 0.7},
		{"full bearish stack", candleWithMAs(90, 95, 100, 40), models.TrendStrongDown, 0.9},
		{"partial bearish ordering", candleWithMAs(90, 95, 92, 40), models.TrendWeakDown, 0.7},
		{"no ordering", candleWithMAs(100, 100, 100, 40), models.TrendNeutral, 0.4},
		{"half adx halves strength", candleWithMAs(110, 105, 100, 20), models.TrendStrongUp, 0.45},
		{"adx scaling caps at one", candleWithMAs(110, 105, 100, 80), models.TrendStrongUp, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, strength := shortTermTrend(tt.candles)
			if trend != tt.wantTrend {
				t.Errorf("trend = %s, want %s", trend, tt.wantTrend)
			}
			if strength != tt.wantStrength {
				t.Errorf("strength = %v, want %v", strength, tt.wantStrength)
			}
		})
	}
}

func TestTrending(t *testing.T) {
	if trending(models.TrendNeutral) {
		t.Error("neutral reported as trending")
	}
	if !trending(models.TrendWeakUp) || !trending(models.TrendStrongDown) {
		t.Error("directional trend not reported as trending")
	}
}
