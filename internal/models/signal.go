package models

import (
	"time"
)

// TradingSignal is the signal engine's output for one evaluation cycle.
// Created fresh each cycle and never mutated after construction; the position
// lifecycle manager consumes it exactly once.
type TradingSignal struct {
	Symbol          string         `json:"symbol"`
	Timestamp       time.Time      `json:"timestamp"`
	Signal          SignalType     `json:"signal"`
	ConfidenceScore float64        `json:"confidence_score"`
	StopLossPrice   *float64       `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64       `json:"take_profit_price,omitempty"`
	PositionSize    float64        `json:"position_size,omitempty"`
	Message         string         `json:"message,omitempty"`
	Metadata        SignalMetadata `json:"metadata,omitempty"`
}

// SignalMetadata carries per-indicator sub-scores and trend context for audit
// and debugging. It never drives control flow, with one exception: the close
// price, which the lifecycle manager requires to open a position.
type SignalMetadata struct {
	ClosePrice     float64     `json:"close_price,omitempty"`
	ATR            float64     `json:"atr,omitempty"`
	CompositeScore float64     `json:"composite_score,omitempty"`
	MomentumScore  float64     `json:"momentum_score,omitempty"`
	RSIScore       float64     `json:"rsi_score,omitempty"`
	MACDScore      float64     `json:"macd_score,omitempty"`
	StochScore     float64     `json:"stoch_score,omitempty"`
	VolumeWeight   float64     `json:"volume_weight,omitempty"`
	LongTermTrend  MarketTrend `json:"long_term_trend,omitempty"`
	ShortTermTrend MarketTrend `json:"short_term_trend,omitempty"`
	TrendStrength  float64     `json:"trend_strength,omitempty"`
	HoldReason     string      `json:"hold_reason,omitempty"`
}

// HoldSignal builds a HOLD signal carrying the reason it was not actionable.
// Data and computation failures degrade to this rather than erroring, so that
// automation callers always receive a usable value.
func HoldSignal(symbol, reason string) *TradingSignal {
	return &TradingSignal{
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Signal:    SignalHold,
		Message:   reason,
		Metadata:  SignalMetadata{HoldReason: reason},
	}
}
