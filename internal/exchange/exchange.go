// Package exchange provides the exchange integration used by the trading
// core: live price reads, reduce-only position closes, and account state.
package exchange

import (
	"context"

	"perp-trader/internal/models"
)

// ExchangeClient defines the operations the trading core needs from a
// derivatives exchange. Implementations must be safe for concurrent use;
// the monitoring loop calls them from multiple workers.
type ExchangeClient interface {
	// GetCurrentPrice returns the latest mark price for symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// GetKlines returns up to limit raw OHLCV candles for symbol at the
	// given interval, oldest first. Indicator columns are unset.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)

	// PlaceReduceOnlyClose submits a reduce-only market order that closes
	// an open position of the given side and quantity. It returns the
	// exchange order ID.
	PlaceReduceOnlyClose(ctx context.Context, symbol string, side models.PositionSide, quantity float64) (string, error)

	// GetOpenPositions returns the exchange's view of open positions.
	GetOpenPositions(ctx context.Context) ([]ExchangePosition, error)

	// GetAccountBalance returns the available quote-asset balance.
	GetAccountBalance(ctx context.Context) (float64, error)

	// Available reports whether the client is currently usable. It goes
	// false while the transport circuit is open.
	Available() bool
}

// ExchangePosition is the exchange's record of an open position, used for
// reconciliation against the local store.
type ExchangePosition struct {
	Symbol        string
	Side          models.PositionSide
	EntryPrice    float64
	Quantity      float64
	UnrealizedPnL float64
}
