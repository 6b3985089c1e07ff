// Package performance tracks aggregate trade outcomes and provides the
// bounded worker pool backing the monitoring loop's fan-out.
package performance

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
	"perp-trader/internal/store"
)

// Tracker owns the process-wide performance stats under a single-writer
// discipline: only the position lifecycle manager records outcomes, while
// the signal engine's risk gate reads the consecutive-loss counter.
type Tracker struct {
	mu     sync.RWMutex
	stats  models.PerformanceStats
	kv     store.KeyValueStore
	logger zerolog.Logger
}

// NewTracker creates a tracker, restoring any persisted snapshot so the
// consecutive-loss circuit survives a restart.
func NewTracker(kv store.KeyValueStore, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		kv:     kv,
		logger: logger.With().Str("component", "performance").Logger(),
	}
	t.restore()
	return t
}

// RecordSignal counts a directional signal that was acted upon.
func (t *Tracker) RecordSignal() {
	t.mu.Lock()
	t.stats.TotalSignals++
	t.persistLocked()
	t.mu.Unlock()
}

// RecordTrade records a closed trade's outcome. A profitable (or breakeven)
// close resets the consecutive-loss counter; a loss increments it.
func (t *Tracker) RecordTrade(result models.TradeResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch result {
	case models.ResultProfit:
		t.stats.SuccessfulTrades++
		t.stats.ConsecutiveLosses = 0
	case models.ResultLoss:
		t.stats.FailedTrades++
		t.stats.ConsecutiveLosses++
	}

	if total := t.stats.SuccessfulTrades + t.stats.FailedTrades; total > 0 {
		t.stats.WinRate = float64(t.stats.SuccessfulTrades) / float64(total)
	}
	t.persistLocked()
}

// ConsecutiveLosses returns the current consecutive-loss counter.
func (t *Tracker) ConsecutiveLosses() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats.ConsecutiveLosses
}

// Stats returns a snapshot of the current stats.
func (t *Tracker) Stats() models.PerformanceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.stats = models.PerformanceStats{}
	t.persistLocked()
	t.mu.Unlock()
}

func (t *Tracker) restore() {
	if t.kv == nil {
		return
	}
	raw, err := t.kv.Get(store.KeyPerformance)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrKeyNotFound) {
			t.logger.Warn().Err(err).Msg("failed to restore performance stats")
		}
		return
	}
	if err := json.Unmarshal([]byte(raw), &t.stats); err != nil {
		t.logger.Warn().Err(err).Msg("corrupt performance snapshot, starting fresh")
		t.stats = models.PerformanceStats{}
	}
}

func (t *Tracker) persistLocked() {
	if t.kv == nil {
		return
	}
	raw, err := json.Marshal(t.stats)
	if err != nil {
		return
	}
	if err := t.kv.Set(store.KeyPerformance, string(raw)); err != nil {
		t.logger.Warn().Err(err).Msg("failed to persist performance stats")
	}
}
