// Package models provides domain models for the perpetual-futures trading core.
package models

import (
	"time"
)

// SignalType represents the direction of a trading signal.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalHold       SignalType = "HOLD"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// IsDirectional returns true if the signal calls for opening a position.
func (s SignalType) IsDirectional() bool {
	switch s {
	case SignalStrongBuy, SignalBuy, SignalSell, SignalStrongSell:
		return true
	}
	return false
}

// IsLong returns true if the signal is on the buy side.
func (s SignalType) IsLong() bool {
	return s == SignalBuy || s == SignalStrongBuy
}

// PositionSide represents the side of an open position.
type PositionSide string

const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// CloseReason explains why a position was closed.
type CloseReason string

const (
	CloseStopLossHit       CloseReason = "STOP_LOSS_HIT"
	CloseTimeLimitExceeded CloseReason = "TIME_LIMIT_EXCEEDED"
	CloseVolatilityExit    CloseReason = "VOLATILITY_EXIT"
	CloseManual            CloseReason = "MANUAL_CLOSE"
	CloseEmergencyStop     CloseReason = "EMERGENCY_STOP"
)

// TradeResult classifies a closed trade.
type TradeResult string

const (
	ResultProfit TradeResult = "PROFIT"
	ResultLoss   TradeResult = "LOSS"
)

// MarketTrend represents the detected market trend at a given timeframe.
type MarketTrend string

const (
	TrendStrongUp   MarketTrend = "STRONG_UP"
	TrendWeakUp     MarketTrend = "WEAK_UP"
	TrendNeutral    MarketTrend = "NEUTRAL"
	TrendWeakDown   MarketTrend = "WEAK_DOWN"
	TrendStrongDown MarketTrend = "STRONG_DOWN"
)

// IsUp returns true for any bullish trend.
func (t MarketTrend) IsUp() bool {
	return t == TrendStrongUp || t == TrendWeakUp
}

// IsDown returns true for any bearish trend.
func (t MarketTrend) IsDown() bool {
	return t == TrendStrongDown || t == TrendWeakDown
}

// Candle represents one OHLCV bar with its precomputed indicator columns.
// Indicator values are supplied by the market-data store; the core never
// computes them from raw prices.
type Candle struct {
	Timestamp   time.Time `json:"timestamp"`
	Symbol      string    `json:"symbol"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	EMA20       float64   `json:"ema_20"`
	SMA50       float64   `json:"sma_50"`
	SMA200      float64   `json:"sma_200"`
	RSI14       float64   `json:"rsi_14"`
	MACD        float64   `json:"macd"`
	MACDSignal  float64   `json:"macd_signal"`
	MACDHist    float64   `json:"macd_hist"`
	ATR14       float64   `json:"atr_14"`
	ADX14       float64   `json:"adx_14"`
	StochK      float64   `json:"stoch_k"`
	StochD      float64   `json:"stoch_d"`
	VolumeSMA20 float64   `json:"volume_sma_20"`
}

// Complete reports whether every indicator column the signal engine relies on
// has been populated. Rows from the warm-up window of a rolling indicator
// carry zeros and must be dropped before scoring.
func (c Candle) Complete() bool {
	return c.EMA20 != 0 && c.SMA50 != 0 && c.RSI14 != 0 &&
		c.ATR14 != 0 && c.VolumeSMA20 != 0
}

// Result is the outcome of a lifecycle operation. Operations never panic or
// surface internal errors; callers always receive a well-formed Result.
type Result struct {
	Success bool           `json:"success"`
	Symbol  string         `json:"symbol,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// PerformanceStats tracks aggregate signal and trade outcomes. Mutated only
// by the position lifecycle manager; read by the signal engine's risk gate.
type PerformanceStats struct {
	TotalSignals      int     `json:"total_signals"`
	SuccessfulTrades  int     `json:"successful_trades"`
	FailedTrades      int     `json:"failed_trades"`
	WinRate           float64 `json:"win_rate"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
}
