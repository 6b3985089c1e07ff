// Package signal implements the signal engine: it fuses trend, momentum and
// market-regime readings from two timeframes into a confidence-scored
// trading decision with its risk parameters attached.
package signal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"perp-trader/internal/config"
	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/logging"
	"perp-trader/internal/models"
	"perp-trader/internal/store"
	"perp-trader/pkg/utils"
)

// Composite-score decision thresholds.
const (
	entryThreshold  = 0.4
	strongThreshold = 0.7

	// MinCandles is the shortest indicator series the engine will score.
	MinCandles = 50

	// fetchLimit leaves headroom for incomplete warm-up rows being dropped.
	fetchLimit = 120

	defaultHistoryCapacity = 200
)

// SettingsLoader supplies the current trading settings at the start of each
// evaluation cycle.
type SettingsLoader interface {
	Load() (config.TradingSettings, error)
}

// LossGate exposes the consecutive-loss counter the risk gate reads.
type LossGate interface {
	ConsecutiveLosses() int
}

// Engine evaluates symbols into trading signals. Evaluate never returns an
// error: every failure degrades to a HOLD signal carrying the reason, so the
// automation path always receives an actionable value.
type Engine struct {
	market   store.MarketDataStore
	kv       store.KeyValueStore
	settings SettingsLoader
	gate     LossGate
	history  *History
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine creates a signal engine. All collaborators are required; a nil
// collaborator is a construction-time contract violation.
func NewEngine(market store.MarketDataStore, kv store.KeyValueStore, settings SettingsLoader, gate LossGate, logger zerolog.Logger) *Engine {
	if market == nil || kv == nil || settings == nil || gate == nil {
		panic("signal: nil collaborator")
	}
	return &Engine{
		market:   market,
		kv:       kv,
		settings: settings,
		gate:     gate,
		history:  NewHistory(defaultHistoryCapacity),
		logger:   logger.With().Str("component", "signal_engine").Logger(),
		now:      time.Now,
	}
}

// History returns the engine's signal history buffer.
func (e *Engine) History() *History {
	return e.history
}

// Evaluate scores the symbol and returns a trading signal. It always
// returns a well-formed signal; data or computation failures yield HOLD.
func (e *Engine) Evaluate(ctx context.Context, symbol string) *models.TradingSignal {
	settings, err := e.settings.Load()
	if err != nil {
		return e.hold(symbol, fmt.Sprintf("settings unavailable: %v", err))
	}

	if sig := e.riskGate(symbol, settings); sig != nil {
		return sig
	}

	// The gate passed: this evaluation counts against the cooldown window
	// whatever its outcome, so a burst of cycles cannot spam entries.
	e.recordEvaluation(symbol)

	short, long, reason := e.prepareSeries(ctx, symbol, settings)
	if reason != "" {
		return e.hold(symbol, reason)
	}

	sig := e.score(symbol, short, long, settings)
	e.history.Append(sig)
	logging.LogSignal(e.logger, symbol, string(sig.Signal), sig.ConfidenceScore, sig.Message)
	return sig
}

// riskGate short-circuits evaluation to HOLD when trading conditions are not
// met. A gated HOLD is expected control flow, not a failure.
func (e *Engine) riskGate(symbol string, settings config.TradingSettings) *models.TradingSignal {
	now := e.now()

	if !utils.WithinActiveHours(now, settings.ActiveHours) {
		return e.hold(symbol, "outside active trading hours")
	}

	if losses := e.gate.ConsecutiveLosses(); losses >= settings.MaxConsecutiveLosses {
		return e.hold(symbol, fmt.Sprintf("circuit breaker open: %d consecutive losses", losses))
	}

	if last, ok := e.lastEvaluation(symbol); ok {
		if elapsed := now.Sub(last); elapsed < settings.MinSignalInterval {
			return e.hold(symbol, fmt.Sprintf("cooldown: %s since last signal, minimum %s",
				elapsed.Round(time.Second), settings.MinSignalInterval))
		}
	}

	return nil
}

// prepareSeries loads and cleans both indicator series. It fails closed:
// a short or incomplete series yields a HOLD reason, never a partial score.
func (e *Engine) prepareSeries(ctx context.Context, symbol string, settings config.TradingSettings) (short, long []models.Candle, reason string) {
	short, reason = e.loadSeries(ctx, symbol, settings.Timeframe)
	if reason != "" {
		return nil, nil, reason
	}
	long, reason = e.loadSeries(ctx, symbol, settings.LongTimeframe)
	if reason != "" {
		return nil, nil, reason
	}
	return short, long, ""
}

func (e *Engine) loadSeries(ctx context.Context, symbol, timeframe string) ([]models.Candle, string) {
	candles, err := e.market.GetIndicatorSeries(ctx, symbol, timeframe, fetchLimit)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataNotFound) {
			return nil, fmt.Sprintf("no market data for %s %s", symbol, timeframe)
		}
		return nil, fmt.Sprintf("market data load failed for %s %s: %v", symbol, timeframe, err)
	}

	complete := candles[:0:0]
	for _, c := range candles {
		if c.Complete() {
			complete = append(complete, c)
		}
	}
	if len(complete) < MinCandles {
		return nil, fmt.Sprintf("insufficient data for %s %s: %d complete candles, need %d",
			symbol, timeframe, len(complete), MinCandles)
	}
	return complete, ""
}

// score runs trend analysis, momentum scoring and the decision rule over
// prepared series and attaches risk outputs to directional signals.
func (e *Engine) score(symbol string, short, long []models.Candle, settings config.TradingSettings) *models.TradingSignal {
	longTrend := longTermTrend(long)
	shortTrend, trendStrength := shortTermTrend(short)

	scores := scoreMomentum(short, shortTrend)
	regimeWeight := volumeVolatilityWeight(short, settings)
	composite := scores.Momentum * regimeWeight * trendStrength

	last := short[len(short)-1]
	e.cacheATR(symbol, last.ATR14)

	meta := models.SignalMetadata{
		ClosePrice:     last.Close,
		ATR:            last.ATR14,
		CompositeScore: composite,
		MomentumScore:  scores.Momentum,
		RSIScore:       scores.RSI,
		MACDScore:      scores.MACD,
		StochScore:     scores.Stochastic,
		VolumeWeight:   regimeWeight,
		LongTermTrend:  longTrend,
		ShortTermTrend: shortTrend,
		TrendStrength:  trendStrength,
	}

	var signalType models.SignalType
	switch {
	case composite > entryThreshold && longTrend.IsUp():
		signalType = models.SignalBuy
		if composite >= strongThreshold {
			signalType = models.SignalStrongBuy
		}
	case composite < -entryThreshold && longTrend.IsDown():
		signalType = models.SignalSell
		if composite <= -strongThreshold {
			signalType = models.SignalStrongSell
		}
	default:
		reason := fmt.Sprintf("composite %.3f below entry threshold", composite)
		if math.Abs(composite) > entryThreshold {
			reason = fmt.Sprintf("composite %.3f contradicts long-term trend %s", composite, longTrend)
		}
		meta.HoldReason = reason
		return &models.TradingSignal{
			Symbol:    symbol,
			Timestamp: e.now().UTC(),
			Signal:    models.SignalHold,
			Message:   reason,
			Metadata:  meta,
		}
	}

	isLong := signalType.IsLong()
	stop := stopLossPrice(last.Close, last.ATR14, isLong, settings)
	target := takeProfitPrice(last.Close, last.ATR14, isLong, settings)

	return &models.TradingSignal{
		Symbol:          symbol,
		Timestamp:       e.now().UTC(),
		Signal:          signalType,
		ConfidenceScore: math.Abs(composite),
		StopLossPrice:   &stop,
		TakeProfitPrice: &target,
		PositionSize:    positionSize(last.ATR14, settings),
		Metadata:        meta,
	}
}

func (e *Engine) hold(symbol, reason string) *models.TradingSignal {
	sig := models.HoldSignal(symbol, reason)
	e.history.Append(sig)
	e.logger.Debug().Str("symbol", symbol).Str("reason", reason).Msg("hold")
	return sig
}

func (e *Engine) lastEvaluation(symbol string) (time.Time, bool) {
	raw, err := e.kv.Get(store.LastSignalKey(symbol))
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (e *Engine) recordEvaluation(symbol string) {
	if err := e.kv.Set(store.LastSignalKey(symbol), e.now().Format(time.RFC3339Nano)); err != nil {
		e.logger.Warn().Str("symbol", symbol).Err(err).Msg("failed to record evaluation time")
	}
}

// cacheATR publishes the latest short-timeframe ATR so the monitoring
// loop's volatility exit can read a live value.
func (e *Engine) cacheATR(symbol string, atr float64) {
	if atr <= 0 {
		return
	}
	if err := e.kv.Set(store.ATRKey(symbol), strconv.FormatFloat(atr, 'f', -1, 64)); err != nil {
		e.logger.Warn().Str("symbol", symbol).Err(err).Msg("failed to cache atr")
	}
}
