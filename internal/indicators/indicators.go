// Package indicators computes the indicator columns the signal engine
// consumes. It runs only at ingestion time: the engine itself treats the
// columns as upstream-supplied data and never computes them mid-evaluation.
package indicators

import (
	"errors"
	"math"

	"perp-trader/internal/models"
)

// ErrInsufficientData is returned when a series is too short to compute a
// requested indicator.
var ErrInsufficientData = errors.New("insufficient data for calculation")

// Standard periods matching the candle schema.
const (
	emaPeriod       = 20
	smaShortPeriod  = 50
	smaLongPeriod   = 200
	rsiPeriod       = 14
	atrPeriod       = 14
	adxPeriod       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	stochKPeriod    = 14
	stochDPeriod    = 3
	stochSmooth     = 3
	volumeSMAPeriod = 20
)

// Enrich fills the indicator columns of the candle series in place and
// returns it. Rows inside an indicator's warm-up window keep zero values;
// the engine drops them as incomplete. The series must be ordered oldest
// first and at least as long as the slowest warm-up (SMA200 excepted: the
// column stays zero on shorter series and the trend analysis treats a zero
// SMA200 ordering as a weak trend).
func Enrich(candles []models.Candle) ([]models.Candle, error) {
	if len(candles) < smaShortPeriod {
		return nil, ErrInsufficientData
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	ema20 := ema(closes, emaPeriod)
	sma50 := sma(closes, smaShortPeriod)
	sma200 := sma(closes, smaLongPeriod)
	rsi14 := rsi(closes, rsiPeriod)
	macdLine, signalLine, hist := macd(closes)
	atr := atrSeries(candles, atrPeriod)
	adx := adxSeries(candles, adxPeriod)
	stochK, stochD := stochastic(candles)
	volSMA := sma(volumes, volumeSMAPeriod)

	for i := range candles {
		candles[i].EMA20 = ema20[i]
		candles[i].SMA50 = sma50[i]
		if sma200 != nil {
			candles[i].SMA200 = sma200[i]
		}
		candles[i].RSI14 = rsi14[i]
		candles[i].MACD = macdLine[i]
		candles[i].MACDSignal = signalLine[i]
		candles[i].MACDHist = hist[i]
		candles[i].ATR14 = atr[i]
		candles[i].ADX14 = adx[i]
		candles[i].StochK = stochK[i]
		candles[i].StochD = stochD[i]
		candles[i].VolumeSMA20 = volSMA[i]
	}
	return candles, nil
}

// sma returns the simple moving average series; entries before the warm-up
// are zero. A nil series means the input was shorter than the period.
func sma(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	result := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// ema returns the exponential moving average series, seeded with the SMA of
// the first period values.
func ema(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	result := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)

	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	result[period-1] = seed / float64(period)

	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}
	return result
}

// rsi returns the Wilder-smoothed relative strength index series.
func rsi(closes []float64, period int) []float64 {
	n := len(closes)
	result := make([]float64, n)
	if n < period+1 {
		return result
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// macd returns the MACD line, its signal line and the histogram.
func macd(closes []float64) (line, signal, hist []float64) {
	n := len(closes)
	line = make([]float64, n)
	signal = make([]float64, n)
	hist = make([]float64, n)

	fast := ema(closes, macdFast)
	slow := ema(closes, macdSlow)
	if fast == nil || slow == nil {
		return line, signal, hist
	}

	for i := macdSlow - 1; i < n; i++ {
		line[i] = fast[i] - slow[i]
	}

	sig := ema(line[macdSlow-1:], macdSignal)
	if sig == nil {
		return line, signal, hist
	}
	for i := range sig {
		signal[macdSlow-1+i] = sig[i]
	}
	for i := macdSlow + macdSignal - 2; i < n; i++ {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// atrSeries returns the Wilder-smoothed average true range series.
func atrSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	result := make([]float64, n)
	if n < period+1 {
		return result
	}

	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	var seed float64
	for _, v := range tr[:period] {
		seed += v
	}
	result[period-1] = seed / float64(period)

	for i := period; i < n; i++ {
		result[i] = (result[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return result
}

// adxSeries returns the average directional index series.
func adxSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	result := make([]float64, n)
	if n < 2*period {
		return result
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	smoothPlusDM := wilderSmooth(plusDM, period)
	smoothMinusDM := wilderSmooth(minusDM, period)
	smoothTR := wilderSmooth(tr, period)

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if smoothTR[i] == 0 {
			continue
		}
		plusDI := 100 * smoothPlusDM[i] / smoothTR[i]
		minusDI := 100 * smoothMinusDM[i] / smoothTR[i]
		if sum := plusDI + minusDI; sum != 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
		}
	}

	// ADX itself is a Wilder average of DX, not a running sum.
	tail := dx[period:]
	var seed float64
	for _, v := range tail[:period] {
		seed += v
	}
	adx := seed / float64(period)
	result[2*period-1] = adx
	for i := period; i < len(tail); i++ {
		adx = (adx*float64(period-1) + tail[i]) / float64(period)
		result[period+i] = adx
	}
	return result
}

// stochastic returns the smoothed %K and %D series.
func stochastic(candles []models.Candle) (percentK, percentD []float64) {
	n := len(candles)
	percentK = make([]float64, n)
	percentD = make([]float64, n)
	if n < stochKPeriod+stochSmooth+stochDPeriod {
		return percentK, percentD
	}

	rawK := make([]float64, n)
	for i := stochKPeriod - 1; i < n; i++ {
		var hh, ll float64
		hh = candles[i-stochKPeriod+1].High
		ll = candles[i-stochKPeriod+1].Low
		for _, c := range candles[i-stochKPeriod+2 : i+1] {
			hh = math.Max(hh, c.High)
			ll = math.Min(ll, c.Low)
		}
		if hh == ll {
			rawK[i] = 50
		} else {
			rawK[i] = 100 * (candles[i].Close - ll) / (hh - ll)
		}
	}

	kStart := stochKPeriod + stochSmooth - 2
	for i := kStart; i < n; i++ {
		var sum float64
		for _, v := range rawK[i-stochSmooth+1 : i+1] {
			sum += v
		}
		percentK[i] = sum / float64(stochSmooth)
	}

	for i := kStart + stochDPeriod - 1; i < n; i++ {
		var sum float64
		for _, v := range percentK[i-stochDPeriod+1 : i+1] {
			sum += v
		}
		percentD[i] = sum / float64(stochDPeriod)
	}
	return percentK, percentD
}

func trueRange(current, previous models.Candle) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - previous.Close)
	lc := math.Abs(current.Low - previous.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// wilderSmooth applies Wilder's smoothing, seeded with the sum of the first
// period values.
func wilderSmooth(values []float64, period int) []float64 {
	n := len(values)
	result := make([]float64, n)
	if n < period {
		return result
	}

	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	result[period-1] = sum

	for i := period; i < n; i++ {
		result[i] = result[i-1] - result[i-1]/float64(period) + values[i]
	}
	return result
}
