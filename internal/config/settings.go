package config

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/store"
	"perp-trader/pkg/utils"
)

// TradingSettings is the reloadable trading configuration. It is immutable
// per evaluation cycle: the signal engine reloads it from the settings store
// at the start of each cycle and never mutates it mid-flight.
type TradingSettings struct {
	Timeframe               string            `json:"timeframe"`
	LongTimeframe           string            `json:"long_timeframe"`
	Leverage                int               `json:"leverage"`
	RiskPerTrade            float64           `json:"risk_per_trade"`
	AccountBalance          float64           `json:"account_balance"`
	AutoTradingEnabled      bool              `json:"auto_trading_enabled"`
	ATRMultiplier           float64           `json:"atr_multiplier"`
	TakeProfitRatio         float64           `json:"take_profit_ratio"`
	VolumeSpikeThreshold    float64           `json:"volume_spike_threshold"`
	PriceMomentumThreshold  float64           `json:"price_momentum_threshold"`
	VolatilityHighThreshold float64           `json:"volatility_high_threshold"`
	VolatilityExitThreshold float64           `json:"volatility_exit_threshold"`
	MinSignalInterval       time.Duration     `json:"min_signal_interval"`
	MaxConsecutiveLosses    int               `json:"max_consecutive_losses"`
	MaxPositionHold         time.Duration     `json:"max_position_hold"`
	ActiveHours             []utils.HourRange `json:"active_hours"`
}

// DefaultTradingSettings returns the baseline trading settings.
func DefaultTradingSettings() TradingSettings {
	return TradingSettings{
		Timeframe:               "1m",
		LongTimeframe:           "15m",
		Leverage:                10,
		RiskPerTrade:            0.02,
		AccountBalance:          10000.0,
		AutoTradingEnabled:      false,
		ATRMultiplier:           1.5,
		TakeProfitRatio:         1.5,
		VolumeSpikeThreshold:    2.0,
		PriceMomentumThreshold:  0.003,
		VolatilityHighThreshold: 0.05,
		VolatilityExitThreshold: 0.03,
		MinSignalInterval:       5 * time.Minute,
		MaxConsecutiveLosses:    3,
		MaxPositionHold:         4 * time.Hour,
		ActiveHours:             []utils.HourRange{{Start: 9, End: 24}, {Start: 0, End: 2}},
	}
}

// Validate checks settings invariants. Construction-time contract violations
// are the only errors allowed to escalate out of the core.
func (s TradingSettings) Validate() error {
	if s.Leverage < 1 || s.Leverage > 125 {
		return apperrors.NewValidationError("leverage", s.Leverage, "must be between 1 and 125")
	}
	if s.RiskPerTrade <= 0 || s.RiskPerTrade > 0.1 {
		return apperrors.NewValidationError("risk_per_trade", s.RiskPerTrade, "must be in (0, 0.1]")
	}
	if s.AccountBalance <= 0 {
		return apperrors.NewValidationError("account_balance", s.AccountBalance, "must be positive")
	}
	if s.ATRMultiplier < 0.5 || s.ATRMultiplier > 5.0 {
		return apperrors.NewValidationError("atr_multiplier", s.ATRMultiplier, "must be between 0.5 and 5.0")
	}
	if s.TakeProfitRatio < 1.0 || s.TakeProfitRatio > 5.0 {
		return apperrors.NewValidationError("take_profit_ratio", s.TakeProfitRatio, "must be between 1.0 and 5.0")
	}
	if s.MaxConsecutiveLosses < 1 {
		return apperrors.NewValidationError("max_consecutive_losses", s.MaxConsecutiveLosses, "must be at least 1")
	}
	if s.MaxPositionHold <= 0 {
		return apperrors.NewValidationError("max_position_hold", s.MaxPositionHold, "must be positive")
	}
	for _, r := range s.ActiveHours {
		if r.Start < 0 || r.Start > 23 || r.End < 0 || r.End > 24 {
			return apperrors.NewValidationError("active_hours", r, "hours must be within 0-24")
		}
	}
	return nil
}

// SettingsStore loads and saves TradingSettings through the key-value store.
// The JSON codec here is the single typed boundary between the store's string
// values and the core's structs; nothing else parses loosely-typed data.
type SettingsStore struct {
	kv store.KeyValueStore
}

// NewSettingsStore creates a settings store over the given key-value store.
func NewSettingsStore(kv store.KeyValueStore) *SettingsStore {
	return &SettingsStore{kv: kv}
}

// Load returns the stored settings, or defaults when none have been saved.
func (ss *SettingsStore) Load() (TradingSettings, error) {
	raw, err := ss.kv.Get(store.KeyTradingSettings)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrKeyNotFound) {
			return DefaultTradingSettings(), nil
		}
		return TradingSettings{}, fmt.Errorf("loading trading settings: %w", err)
	}

	settings := DefaultTradingSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return TradingSettings{}, fmt.Errorf("decoding trading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return TradingSettings{}, err
	}
	return settings, nil
}

// Save validates and persists the settings.
func (ss *SettingsStore) Save(settings TradingSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding trading settings: %w", err)
	}
	return ss.kv.Set(store.KeyTradingSettings, string(raw))
}
