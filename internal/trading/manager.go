package trading

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"perp-trader/internal/config"
	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/exchange"
	"perp-trader/internal/logging"
	"perp-trader/internal/models"
	"perp-trader/internal/performance"
	"perp-trader/internal/store"
)

// Manager owns every open position. It is the only component that mutates
// position records and performance stats; per-symbol serialization comes
// from the position book's keyed atomic updates.
type Manager struct {
	book     *PositionBook
	exchange exchange.ExchangeClient
	settings *config.SettingsStore
	tracker  *performance.Tracker
	kv       store.KeyValueStore
	logger   zerolog.Logger
	now      func() time.Time
}

// NewManager creates a position lifecycle manager. Nil collaborators are a
// construction-time contract violation.
func NewManager(book *PositionBook, ex exchange.ExchangeClient, settings *config.SettingsStore, tracker *performance.Tracker, kv store.KeyValueStore, logger zerolog.Logger) *Manager {
	if book == nil || ex == nil || settings == nil || tracker == nil || kv == nil {
		panic("trading: nil collaborator")
	}
	return &Manager{
		book:     book,
		exchange: ex,
		settings: settings,
		tracker:  tracker,
		kv:       kv,
		logger:   logger.With().Str("component", "lifecycle").Logger(),
		now:      time.Now,
	}
}

// Tracker exposes the performance tracker for read access.
func (m *Manager) Tracker() *performance.Tracker {
	return m.tracker
}

// ProcessSignal opens a position for a directional signal. It is idempotent
// with respect to an already-open symbol: a duplicate directional signal is
// reported, not treated as an error. Callers always get a well-formed
// Result; validation failures never panic or escape.
func (m *Manager) ProcessSignal(ctx context.Context, signal *models.TradingSignal) models.Result {
	if signal == nil {
		return models.Result{Success: false, Message: "nil signal"}
	}
	symbol := signal.Symbol

	if !signal.Signal.IsDirectional() {
		return models.Result{Success: true, Symbol: symbol,
			Message: fmt.Sprintf("signal %s requires no action", signal.Signal)}
	}

	settings, err := m.settings.Load()
	if err != nil {
		return models.Result{Success: false, Symbol: symbol,
			Message: fmt.Sprintf("settings unavailable: %v", err)}
	}
	if !settings.AutoTradingEnabled {
		return models.Result{Success: false, Symbol: symbol,
			Message: "auto trading is disabled"}
	}

	pos, err := m.positionFromSignal(signal, settings)
	if err != nil {
		return models.Result{Success: false, Symbol: symbol, Message: err.Error()}
	}

	if err := m.book.Create(pos); err != nil {
		if apperrors.Is(err, apperrors.ErrPositionExists) {
			return models.Result{Success: false, Symbol: symbol,
				Message: fmt.Sprintf("position already exists for %s", symbol)}
		}
		return models.Result{Success: false, Symbol: symbol,
			Message: fmt.Sprintf("failed to store position: %v", err)}
	}

	m.tracker.RecordSignal()
	logging.LogPositionOpened(m.logger, symbol, string(pos.Side), pos.EntryPrice, pos.PositionSize, pos.InitialStopLoss)

	return models.Result{
		Success: true,
		Symbol:  symbol,
		Message: fmt.Sprintf("position opened for %s", symbol),
		Data: map[string]any{
			"side":          string(pos.Side),
			"entry_price":   pos.EntryPrice,
			"position_size": pos.PositionSize,
			"stop_loss":     pos.InitialStopLoss,
		},
	}
}

// positionFromSignal validates the signal's pricing metadata and builds the
// initial position record.
func (m *Manager) positionFromSignal(signal *models.TradingSignal, settings config.TradingSettings) (*models.Position, error) {
	closePrice := signal.Metadata.ClosePrice
	if closePrice <= 0 {
		return nil, apperrors.NewValidationError("close_price", closePrice, "signal carries no close price")
	}

	side := models.SideShort
	if signal.Signal.IsLong() {
		side = models.SideLong
	}

	var stop float64
	if signal.StopLossPrice != nil {
		stop = *signal.StopLossPrice
	} else if side == models.SideLong {
		stop = closePrice * (1 - settings.RiskPerTrade)
	} else {
		stop = closePrice * (1 + settings.RiskPerTrade)
	}

	size := signal.PositionSize
	if size <= 0 {
		return nil, apperrors.NewValidationError("position_size", size, "signal carries no position size")
	}

	risk := stop - closePrice
	if risk < 0 {
		risk = -risk
	}

	return &models.Position{
		Symbol:              signal.Symbol,
		Side:                side,
		EntryPrice:          closePrice,
		PositionSize:        size,
		InitialStopLoss:     stop,
		CurrentStopLoss:     stop,
		InitialRiskDistance: risk,
		HighestPriceSoFar:   closePrice,
		LowestPriceSoFar:    closePrice,
		EntryTimestamp:      m.now().UTC(),
	}, nil
}

// CloseBySymbol closes the open position for symbol at the current price.
func (m *Manager) CloseBySymbol(ctx context.Context, symbol string, reason models.CloseReason) models.Result {
	pos, err := m.book.Get(symbol)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrPositionNotFound) {
			return models.Result{Success: false, Symbol: symbol,
				Message: fmt.Sprintf("position not found for %s", symbol)}
		}
		return models.Result{Success: false, Symbol: symbol, Message: err.Error()}
	}

	price, err := m.exchange.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return models.Result{Success: false, Symbol: symbol,
			Message: fmt.Sprintf("cannot price close for %s: %v", symbol, err)}
	}

	return m.closePosition(ctx, pos, price, reason)
}

// CloseAll closes every open position, best-effort: one symbol's failure
// never aborts the others, and the call itself always returns.
func (m *Manager) CloseAll(ctx context.Context, reason models.CloseReason) []models.Result {
	symbols, err := m.book.Symbols()
	if err != nil {
		return []models.Result{{Success: false, Message: fmt.Sprintf("cannot enumerate positions: %v", err)}}
	}

	results := make([]models.Result, 0, len(symbols))
	for _, symbol := range symbols {
		results = append(results, m.CloseBySymbol(ctx, symbol, reason))
	}
	return results
}

// closePosition issues the reduce-only close, records the outcome, and
// removes the stored record. Removal happens even when the exchange call
// fails: a local record that no longer matches exchange state is worse than
// a logged reconciliation gap.
func (m *Manager) closePosition(ctx context.Context, pos *models.Position, price float64, reason models.CloseReason) models.Result {
	symbol := pos.Symbol

	_, orderErr := m.exchange.PlaceReduceOnlyClose(ctx, symbol, pos.Side, pos.PositionSize)

	pnl := pos.ProfitLoss(price) * pos.PositionSize
	result := models.ResultLoss
	if pnl >= 0 {
		result = models.ResultProfit
	}
	m.tracker.RecordTrade(result)

	if err := m.book.Delete(symbol); err != nil {
		m.logger.Error().Str("symbol", symbol).Err(err).Msg("failed to remove closed position record")
	}

	logging.LogPositionClosed(m.logger, symbol, string(reason), string(result), price, pnl)

	if orderErr != nil {
		recErr := apperrors.NewReconciliationError(symbol, "close", orderErr)
		m.logger.Error().Str("symbol", symbol).Err(recErr).
			Float64("price", price).Str("reason", string(reason)).
			Msg("close order failed, local record removed anyway")
		return models.Result{
			Success: false,
			Symbol:  symbol,
			Message: fmt.Sprintf("close order failed for %s, local record removed: %v", symbol, orderErr),
			Data:    map[string]any{"reason": string(reason), "pnl": pnl},
		}
	}

	return models.Result{
		Success: true,
		Symbol:  symbol,
		Message: fmt.Sprintf("position closed for %s: %s", symbol, reason),
		Data: map[string]any{
			"reason":      string(reason),
			"close_price": price,
			"pnl":         pnl,
			"result":      string(result),
		},
	}
}

// Summary returns a read-only snapshot of every open position. Current
// prices are best-effort; a symbol whose price is unavailable reports its
// entry price and zero unrealized P&L.
func (m *Manager) Summary(ctx context.Context) models.PositionSummary {
	summary := models.PositionSummary{}

	symbols, err := m.book.Symbols()
	if err != nil {
		m.logger.Warn().Err(err).Msg("cannot enumerate positions for summary")
		return summary
	}

	for _, symbol := range symbols {
		pos, err := m.book.Get(symbol)
		if err != nil {
			continue
		}

		price := pos.EntryPrice
		var pnl, pnlPct float64
		if p, err := m.exchange.GetCurrentPrice(ctx, symbol); err == nil {
			price = p
			pnl = pos.ProfitLoss(p) * pos.PositionSize
			pnlPct = pos.UnrealizedPnLPercent(p)
		}

		summary.Positions = append(summary.Positions, models.PositionDetail{
			Symbol:                pos.Symbol,
			Side:                  pos.Side,
			EntryPrice:            pos.EntryPrice,
			CurrentPrice:          price,
			CurrentStopLoss:       pos.CurrentStopLoss,
			UnrealizedPnL:         pnl,
			PnLPercent:            pnlPct,
			TrailingStopActivated: pos.TrailingStopActivated,
			EntryTimestamp:        pos.EntryTimestamp,
		})
		summary.TotalPositions++
		summary.TotalUnrealizedPnL += pnl
		if pos.Side == models.SideLong {
			summary.LongPositions++
		} else {
			summary.ShortPositions++
		}
	}
	return summary
}

// ReconciliationReport lists drift between the local position book and the
// exchange's view of open positions.
type ReconciliationReport struct {
	// Missing holds symbols tracked locally that the exchange no longer
	// reports as open.
	Missing []string `json:"missing,omitempty"`
	// Unknown holds exchange positions with no local record.
	Unknown []exchange.ExchangePosition `json:"unknown,omitempty"`
}

// InSync reports whether the book and the exchange agree.
func (r ReconciliationReport) InSync() bool {
	return len(r.Missing) == 0 && len(r.Unknown) == 0
}

// Reconcile compares the position book against the exchange's open
// positions. Drift is reported and logged, never auto-repaired: a missing
// exchange position may be a close the core has not observed yet, and an
// unknown one may have been opened manually.
func (m *Manager) Reconcile(ctx context.Context) (ReconciliationReport, error) {
	var report ReconciliationReport

	symbols, err := m.book.Symbols()
	if err != nil {
		return report, err
	}
	remote, err := m.exchange.GetOpenPositions(ctx)
	if err != nil {
		return report, err
	}

	open := make(map[string]bool, len(remote))
	for _, pos := range remote {
		open[pos.Symbol] = true
	}
	tracked := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		tracked[symbol] = true
		if !open[symbol] {
			report.Missing = append(report.Missing, symbol)
		}
	}
	sort.Strings(report.Missing)
	for _, pos := range remote {
		if !tracked[pos.Symbol] {
			report.Unknown = append(report.Unknown, pos)
		}
	}
	sort.Slice(report.Unknown, func(i, j int) bool {
		return report.Unknown[i].Symbol < report.Unknown[j].Symbol
	})

	if !report.InSync() {
		m.logger.Warn().
			Strs("missing_on_exchange", report.Missing).
			Int("unknown_to_book", len(report.Unknown)).
			Msg("position book out of sync with exchange")
	}
	return report, nil
}

// checkPosition runs one monitoring pass for a single symbol: price fetch,
// exit evaluation, then trailing-stop maintenance. A missing price skips
// the cycle silently; it is never fatal.
func (m *Manager) checkPosition(ctx context.Context, symbol string) error {
	pos, err := m.book.Get(symbol)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrPositionNotFound) {
			return nil // closed by a concurrent pass
		}
		return err
	}

	if !m.exchange.Available() {
		m.logger.Debug().Str("symbol", symbol).Msg("exchange unavailable, skipping monitor pass")
		return nil
	}

	price, err := m.exchange.GetCurrentPrice(ctx, symbol)
	if err != nil {
		m.logger.Warn().Str("symbol", symbol).Err(err).Msg("price unavailable, skipping monitor pass")
		return nil
	}

	settings, err := m.settings.Load()
	if err != nil {
		return apperrors.Wrap(err, "loading settings")
	}

	atr, atrOK := m.liveATR(symbol)
	if !atrOK {
		m.logger.Warn().Str("symbol", symbol).Msg("no live atr reading, volatility exit skipped")
	}

	if reason, ok := exitReason(pos, price, atr, atrOK, settings, m.now()); ok {
		res := m.closePosition(ctx, pos, price, reason)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		return nil
	}

	return m.updateTrailingStop(symbol, price, settings)
}

// updateTrailingStop applies the ratchet under the symbol's key lock.
func (m *Manager) updateTrailingStop(symbol string, price float64, settings config.TradingSettings) error {
	var oldStop, newStop float64
	var moved bool

	err := m.book.Mutate(symbol, func(pos *models.Position) error {
		oldStop = pos.CurrentStopLoss
		moved = applyTrailing(pos, price, settings)
		newStop = pos.CurrentStopLoss
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrPositionNotFound) {
			return nil
		}
		return err
	}

	if moved {
		pos, err := m.book.Get(symbol)
		if err == nil {
			logging.LogStopUpdate(m.logger, symbol, string(pos.Side), oldStop, newStop)
		}
	}
	return nil
}

// liveATR reads the signal engine's cached ATR for the volatility exit.
func (m *Manager) liveATR(symbol string) (float64, bool) {
	raw, err := m.kv.Get(store.ATRKey(symbol))
	if err != nil {
		return 0, false
	}
	atr, err := strconv.ParseFloat(raw, 64)
	if err != nil || atr <= 0 {
		return 0, false
	}
	return atr, true
}
