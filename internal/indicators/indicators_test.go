package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"perp-trader/internal/models"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// syntheticCandles builds a gently oscillating series with enough range per
// bar that every indicator produces nonzero values past its warm-up.
func syntheticCandles(n int) []models.Candle {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		mid := 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.05
		out[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Symbol:    "BTCUSDT",
			Open:      mid - 0.5,
			High:      mid + 1,
			Low:       mid - 1,
			Close:     mid + 0.5,
			Volume:    1000 + 50*math.Sin(float64(i)/3),
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	got := sma(values, 3)
	if got == nil {
		t.Fatal("sma returned nil")
	}
	want := []float64{0, 0, 2, 3, 4, 5}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("sma[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if sma([]float64{1, 2}, 3) != nil {
		t.Error("sma on a short series should be nil")
	}
}

func TestEMA(t *testing.T) {
	values := []float64{10, 10, 10, 10, 20}
	got := ema(values, 4)
	if got[3] != 10 {
		t.Fatalf("ema seed = %v, want SMA of the first period", got[3])
	}
	// multiplier 2/5 = 0.4: 10 + (20-10)*0.4 = 14
	if !almostEqual(got[4], 14, 1e-12) {
		t.Errorf("ema[4] = %v, want 14", got[4])
	}

	// A constant series stays at the constant.
	flat := ema([]float64{5, 5, 5, 5, 5, 5}, 3)
	if flat[len(flat)-1] != 5 {
		t.Errorf("ema of constant = %v, want 5", flat[len(flat)-1])
	}
}

func TestRSIExtremes(t *testing.T) {
	// Straight-up closes: no losses, RSI pegs at 100.
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(100 + i)
	}
	got := rsi(up, 14)
	if got[len(got)-1] != 100 {
		t.Errorf("rsi of monotone rise = %v, want 100", got[len(got)-1])
	}

	// Straight-down closes: no gains, RSI goes to 0.
	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(130 - i)
	}
	got = rsi(down, 14)
	if got[len(got)-1] != 0 {
		t.Errorf("rsi of monotone fall = %v, want 0", got[len(got)-1])
	}

	// Warm-up rows stay zero.
	if got[13] != 0 {
		t.Errorf("rsi[13] = %v inside warm-up, want 0", got[13])
	}
}

func TestRSIRange(t *testing.T) {
	candles := syntheticCandles(100)
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	for i, v := range rsi(closes, 14) {
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestTrueRange(t *testing.T) {
	prev := models.Candle{Close: 100}
	// Gap up: high-prevClose dominates.
	curr := models.Candle{High: 110, Low: 105}
	if got := trueRange(curr, prev); got != 10 {
		t.Errorf("trueRange gap up = %v, want 10", got)
	}
	// Gap down: prevClose-low dominates.
	curr = models.Candle{High: 95, Low: 90}
	if got := trueRange(curr, prev); got != 10 {
		t.Errorf("trueRange gap down = %v, want 10", got)
	}
	// Ordinary bar: high-low.
	curr = models.Candle{High: 102, Low: 99}
	if got := trueRange(curr, prev); got != 3 {
		t.Errorf("trueRange inside bar = %v, want 3", got)
	}
}

func TestATRConstantRange(t *testing.T) {
	// Every bar spans exactly 2 with no gaps: ATR converges to 2.
	candles := make([]models.Candle, 40)
	for i := range candles {
		candles[i] = models.Candle{High: 101, Low: 99, Close: 100}
	}
	got := atrSeries(candles, 14)
	if !almostEqual(got[len(got)-1], 2, 1e-9) {
		t.Errorf("atr = %v, want 2", got[len(got)-1])
	}
}

func TestADXRangeAndTrendStrength(t *testing.T) {
	candles := syntheticCandles(120)
	adx := adxSeries(candles, 14)
	for i, v := range adx {
		if v < 0 || v > 100 {
			t.Fatalf("adx[%d] = %v out of [0,100]", i, v)
		}
	}

	// A strong one-way trend should read materially higher than chop.
	trend := make([]models.Candle, 120)
	for i := range trend {
		p := 100 + float64(i)
		trend[i] = models.Candle{High: p + 1, Low: p - 1, Close: p + 0.5}
	}
	trendADX := adxSeries(trend, 14)
	if trendADX[len(trendADX)-1] < 50 {
		t.Errorf("trending adx = %v, want well above neutral", trendADX[len(trendADX)-1])
	}
}

func TestStochasticRange(t *testing.T) {
	candles := syntheticCandles(100)
	k, d := stochastic(candles)
	for i := range k {
		if k[i] < 0 || k[i] > 100 || d[i] < 0 || d[i] > 100 {
			t.Fatalf("stochastic[%d] = %v/%v out of range", i, k[i], d[i])
		}
	}

	// At the top of a rally %K sits high.
	trend := make([]models.Candle, 60)
	for i := range trend {
		p := 100 + float64(i)
		trend[i] = models.Candle{High: p + 1, Low: p - 1, Close: p + 0.9}
	}
	k, _ = stochastic(trend)
	if k[len(k)-1] < 80 {
		t.Errorf("rally %%K = %v, want > 80", k[len(k)-1])
	}
}

func TestEnrich(t *testing.T) {
	candles, err := Enrich(syntheticCandles(250))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	last := candles[len(candles)-1]
	if !last.Complete() {
		t.Fatalf("last candle incomplete after enrichment: %+v", last)
	}
	if last.SMA200 == 0 {
		t.Error("SMA200 not filled on a 250-bar series")
	}
	if last.MACD == 0 && last.MACDSignal == 0 {
		t.Error("MACD columns not filled")
	}
	if last.ADX14 == 0 {
		t.Error("ADX not filled")
	}

	// Early rows sit inside warm-up windows and must read incomplete.
	if candles[0].Complete() {
		t.Error("first candle marked complete inside warm-up")
	}
}

func TestEnrichShortSeriesLeavesSMA200Zero(t *testing.T) {
	candles, err := Enrich(syntheticCandles(120))
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	for _, c := range candles {
		if c.SMA200 != 0 {
			t.Fatal("SMA200 filled on a series shorter than its period")
		}
	}
	if !candles[len(candles)-1].Complete() {
		t.Error("short series last candle incomplete; SMA200 must not gate completeness")
	}
}

func TestEnrichRejectsTooShort(t *testing.T) {
	if _, err := Enrich(syntheticCandles(30)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
