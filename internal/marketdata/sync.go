// Package marketdata feeds the historical store: it pulls raw klines from
// the exchange, computes the indicator columns, and upserts the enriched
// series so the signal engine always scores complete rows.
package marketdata

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/exchange"
	"perp-trader/internal/indicators"
	"perp-trader/internal/store"
)

// klineFetchLimit covers the SMA200 warm-up with headroom.
const klineFetchLimit = 400

// Syncer refreshes indicator series per symbol and timeframe.
type Syncer struct {
	exchange exchange.ExchangeClient
	market   store.MarketDataStore
	logger   zerolog.Logger
}

// NewSyncer creates a market-data syncer.
func NewSyncer(ex exchange.ExchangeClient, market store.MarketDataStore, logger zerolog.Logger) *Syncer {
	return &Syncer{
		exchange: ex,
		market:   market,
		logger:   logger.With().Str("component", "marketdata").Logger(),
	}
}

// Sync refreshes one symbol across the given timeframes. Failures are
// per-timeframe: the first error is returned after all timeframes were
// attempted, so a single bad interval cannot starve the others.
func (s *Syncer) Sync(ctx context.Context, symbol string, timeframes []string) error {
	var firstErr error
	for _, tf := range timeframes {
		if err := s.syncTimeframe(ctx, symbol, tf); err != nil {
			s.logger.Warn().Str("symbol", symbol).Str("timeframe", tf).Err(err).
				Msg("market data refresh failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Syncer) syncTimeframe(ctx context.Context, symbol, timeframe string) error {
	candles, err := s.exchange.GetKlines(ctx, symbol, timeframe, klineFetchLimit)
	if err != nil {
		return err
	}

	enriched, err := indicators.Enrich(candles)
	if err != nil {
		return apperrors.NewDataError("klines", symbol, "series too short to enrich", err)
	}

	if err := s.market.SaveIndicatorCandles(ctx, symbol, timeframe, enriched); err != nil {
		return err
	}

	s.logger.Debug().Str("symbol", symbol).Str("timeframe", timeframe).
		Int("candles", len(enriched)).Msg("indicator series refreshed")
	return nil
}
