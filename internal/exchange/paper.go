package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
	"perp-trader/internal/store"
)

// PaperExchange simulates an exchange for dry runs and tests. Prices come
// from an optional live client when one is configured, otherwise from
// values set through SetPrice or cached in the key-value store.
type PaperExchange struct {
	live ExchangeClient
	kv   store.KeyValueStore

	mu           sync.RWMutex
	prices       map[string]float64
	positions    map[string]ExchangePosition
	balance      float64
	orderCounter int
	failNext     error
}

// NewPaperExchange creates a paper exchange with the given starting balance.
// live may be nil; when set it is used for market data only.
func NewPaperExchange(initialBalance float64, live ExchangeClient, kv store.KeyValueStore) *PaperExchange {
	return &PaperExchange{
		live:      live,
		kv:        kv,
		prices:    make(map[string]float64),
		positions: make(map[string]ExchangePosition),
		balance:   initialBalance,
	}
}

// SetPrice sets the simulated price for a symbol.
func (p *PaperExchange) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	p.prices[symbol] = price
	p.mu.Unlock()
	if p.kv != nil {
		_ = p.kv.Set(store.PriceKey(symbol), strconv.FormatFloat(price, 'f', -1, 64))
	}
}

// FailNextOrder makes the next PlaceReduceOnlyClose return err.
func (p *PaperExchange) FailNextOrder(err error) {
	p.mu.Lock()
	p.failNext = err
	p.mu.Unlock()
}

// Track records a simulated open position so GetOpenPositions reflects it.
func (p *PaperExchange) Track(pos ExchangePosition) {
	p.mu.Lock()
	p.positions[pos.Symbol] = pos
	p.mu.Unlock()
}

// GetCurrentPrice returns the simulated price, delegating to the live
// client when one is configured and no local price is set. Without either
// it falls back to the price cached in the key-value store, so one-shot
// commands can price positions from the last reading a running core wrote.
func (p *PaperExchange) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	p.mu.RLock()
	price, ok := p.prices[symbol]
	p.mu.RUnlock()
	if ok {
		return price, nil
	}
	if p.live != nil {
		return p.live.GetCurrentPrice(ctx, symbol)
	}
	if p.kv != nil {
		if raw, err := p.kv.Get(store.PriceKey(symbol)); err == nil {
			if cached, err := strconv.ParseFloat(raw, 64); err == nil {
				return cached, nil
			}
		}
	}
	return 0, apperrors.NewDataError("price", symbol, "no simulated price set", apperrors.ErrDataNotFound)
}

// GetKlines delegates to the live client when configured.
func (p *PaperExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if p.live != nil {
		return p.live.GetKlines(ctx, symbol, interval, limit)
	}
	return nil, apperrors.NewDataError("klines", symbol, "no live client configured", apperrors.ErrDataNotFound)
}

// PlaceReduceOnlyClose simulates a market close.
func (p *PaperExchange) PlaceReduceOnlyClose(ctx context.Context, symbol string, side models.PositionSide, quantity float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return "", apperrors.NewExchangeError("close_position", symbol, err)
	}
	if quantity <= 0 {
		return "", apperrors.NewValidationError("quantity", quantity, "must be positive")
	}

	delete(p.positions, symbol)
	p.orderCounter++
	return fmt.Sprintf("PAPER_%d_%d", time.Now().Unix(), p.orderCounter), nil
}

// GetOpenPositions returns the simulated open positions.
func (p *PaperExchange) GetOpenPositions(ctx context.Context) ([]ExchangePosition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ExchangePosition, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out, nil
}

// GetAccountBalance returns the simulated balance.
func (p *PaperExchange) GetAccountBalance(ctx context.Context) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, nil
}

// Available always reports true for the simulator.
func (p *PaperExchange) Available() bool {
	return true
}
