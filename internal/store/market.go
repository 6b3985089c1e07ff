package store

import (
	"context"

	"perp-trader/internal/models"
)

// MarketDataStore supplies candle series with precomputed indicator columns.
// The signal engine treats indicator completeness as a precondition: it never
// computes indicators itself when a row arrives incomplete.
type MarketDataStore interface {
	// GetIndicatorSeries returns up to limit most recent candles for the
	// symbol and timeframe, oldest first. Returns a DataError wrapping
	// ErrDataNotFound when the series is absent.
	GetIndicatorSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)

	// SaveIndicatorCandles upserts a batch of candles for ingestion.
	SaveIndicatorCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error

	Close() error
}
