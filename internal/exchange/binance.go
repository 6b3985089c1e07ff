package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
	"perp-trader/internal/resilience"
	"perp-trader/internal/store"
	"perp-trader/pkg/utils"
)

// BinanceClient talks to Binance USD-M futures. Reads are retried with
// backoff; everything runs behind a circuit breaker so a dead endpoint
// degrades the monitor to cached prices instead of stalling it.
type BinanceClient struct {
	client  *futures.Client
	breaker *resilience.CircuitBreaker
	kv      store.KeyValueStore
	logger  zerolog.Logger
	retry   utils.RetryConfig

	stepMu    sync.RWMutex
	stepSizes map[string]decimal.Decimal
}

// BinanceConfig holds Binance client construction options.
type BinanceConfig struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewBinanceClient creates a futures client. The key-value store is used as
// a last-known-price cache shared with the signal engine.
func NewBinanceClient(cfg BinanceConfig, kv store.KeyValueStore, logger zerolog.Logger) *BinanceClient {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	return &BinanceClient{
		client:    futures.NewClient(cfg.APIKey, cfg.APISecret),
		breaker:   resilience.NewCircuitBreaker("binance", resilience.DefaultCircuitBreakerConfig()),
		kv:        kv,
		logger:    logger.With().Str("component", "exchange").Logger(),
		retry:     utils.DefaultRetryConfig(),
		stepSizes: make(map[string]decimal.Decimal),
	}
}

// GetCurrentPrice returns the latest price for symbol. On transport failure
// it falls back to the cached last price; with no cache either, the error
// unwraps to ErrExchangeUnavailable.
func (b *BinanceClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) (float64, error) {
		return utils.RetryWithResult(ctx, b.retry, func() (float64, error) {
			return utils.WithTimeout(ctx, 5*time.Second, func(ctx context.Context) (float64, error) {
				prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
				if err != nil {
					return 0, err
				}
				if len(prices) == 0 {
					return 0, apperrors.NewDataError("price", symbol, "empty price response", apperrors.ErrDataNotFound)
				}
				return strconv.ParseFloat(prices[0].Price, 64)
			})
		})
	})
	if err == nil {
		b.cachePrice(symbol, price)
		return price, nil
	}

	if cached, ok := b.cachedPrice(symbol); ok {
		b.logger.Warn().Str("symbol", symbol).Err(err).
			Float64("cached_price", cached).
			Msg("live price unavailable, using cached")
		return cached, nil
	}
	return 0, apperrors.NewExchangeError("get_price", symbol,
		apperrors.Wrap(apperrors.ErrExchangeUnavailable, err.Error()))
}

// PlaceReduceOnlyClose closes an open position with a reduce-only market
// order. The client order ID makes retries idempotent on the exchange side.
func (b *BinanceClient) PlaceReduceOnlyClose(ctx context.Context, symbol string, side models.PositionSide, quantity float64) (string, error) {
	orderSide := futures.SideTypeSell
	if side == models.SideShort {
		orderSide = futures.SideTypeBuy
	}

	qty, err := b.roundQuantity(ctx, symbol, quantity)
	if err != nil {
		return "", err
	}

	clientOrderID := "close-" + uuid.NewString()[:18]

	start := time.Now()
	order, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) (*futures.CreateOrderResponse, error) {
		return b.client.NewCreateOrderService().
			Symbol(symbol).
			Side(orderSide).
			Type(futures.OrderTypeMarket).
			Quantity(qty).
			ReduceOnly(true).
			NewClientOrderID(clientOrderID).
			Do(ctx)
	})
	if err != nil {
		return "", apperrors.NewExchangeError("close_position", symbol, err)
	}

	b.logger.Info().
		Str("symbol", symbol).
		Str("side", string(orderSide)).
		Str("quantity", qty).
		Str("client_order_id", clientOrderID).
		Int64("order_id", order.OrderID).
		Dur("duration", time.Since(start)).
		Msg("reduce-only close placed")

	return strconv.FormatInt(order.OrderID, 10), nil
}

// GetKlines fetches raw OHLCV candles, oldest first.
func (b *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	klines, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) ([]*futures.Kline, error) {
		return utils.RetryWithResult(ctx, b.retry, func() ([]*futures.Kline, error) {
			return b.client.NewKlinesService().
				Symbol(symbol).
				Interval(interval).
				Limit(limit).
				Do(ctx)
		})
	})
	if err != nil {
		return nil, apperrors.NewExchangeError("get_klines", symbol, err)
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)
		candles[i] = models.Candle{
			Timestamp: time.Unix(k.OpenTime/1000, 0).UTC(),
			Symbol:    symbol,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		}
	}
	return candles, nil
}

// GetOpenPositions returns the exchange's open futures positions.
func (b *BinanceClient) GetOpenPositions(ctx context.Context) ([]ExchangePosition, error) {
	risks, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) ([]*futures.PositionRisk, error) {
		return utils.RetryWithResult(ctx, b.retry, func() ([]*futures.PositionRisk, error) {
			return b.client.NewGetPositionRiskService().Do(ctx)
		})
	})
	if err != nil {
		return nil, apperrors.NewExchangeError("get_positions", "", err)
	}

	var out []ExchangePosition
	for _, r := range risks {
		amt, _ := strconv.ParseFloat(r.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		side := models.SideLong
		if amt < 0 {
			side = models.SideShort
			amt = -amt
		}
		entry, _ := strconv.ParseFloat(r.EntryPrice, 64)
		pnl, _ := strconv.ParseFloat(r.UnRealizedProfit, 64)
		out = append(out, ExchangePosition{
			Symbol:        r.Symbol,
			Side:          side,
			EntryPrice:    entry,
			Quantity:      amt,
			UnrealizedPnL: pnl,
		})
	}
	return out, nil
}

// GetAccountBalance returns the USDT wallet balance.
func (b *BinanceClient) GetAccountBalance(ctx context.Context) (float64, error) {
	account, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) (*futures.Account, error) {
		return utils.RetryWithResult(ctx, b.retry, func() (*futures.Account, error) {
			return b.client.NewGetAccountService().Do(ctx)
		})
	})
	if err != nil {
		return 0, apperrors.NewExchangeError("get_balance", "", err)
	}
	for _, asset := range account.Assets {
		if asset.Asset == "USDT" {
			return strconv.ParseFloat(asset.WalletBalance, 64)
		}
	}
	return 0, nil
}

// Available reports whether the transport circuit allows requests.
func (b *BinanceClient) Available() bool {
	return b.breaker.State() != resilience.CircuitOpen
}

// roundQuantity truncates quantity to the symbol's lot step size.
func (b *BinanceClient) roundQuantity(ctx context.Context, symbol string, quantity float64) (string, error) {
	step, err := b.stepSize(ctx, symbol)
	if err != nil {
		return "", err
	}
	q := decimal.NewFromFloat(quantity)
	if step.IsPositive() {
		q = q.Div(step).Floor().Mul(step)
	}
	if !q.IsPositive() {
		return "", apperrors.NewValidationError("quantity", quantity, "rounds to zero at lot step size")
	}
	return q.String(), nil
}

func (b *BinanceClient) stepSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.stepMu.RLock()
	step, ok := b.stepSizes[symbol]
	b.stepMu.RUnlock()
	if ok {
		return step, nil
	}

	info, err := resilience.ExecuteWithResult(b.breaker, ctx, func(ctx context.Context) (*futures.ExchangeInfo, error) {
		return utils.RetryWithResult(ctx, b.retry, func() (*futures.ExchangeInfo, error) {
			return b.client.NewExchangeInfoService().Do(ctx)
		})
	})
	if err != nil {
		return decimal.Zero, apperrors.NewExchangeError("exchange_info", symbol, err)
	}

	b.stepMu.Lock()
	defer b.stepMu.Unlock()
	for _, s := range info.Symbols {
		f := s.LotSizeFilter()
		if f == nil {
			continue
		}
		st, err := decimal.NewFromString(f.StepSize)
		if err != nil {
			continue
		}
		b.stepSizes[s.Symbol] = st
	}
	step, ok = b.stepSizes[symbol]
	if !ok {
		return decimal.Zero, apperrors.NewDataError("lot_size", symbol, "symbol missing from exchange info", apperrors.ErrDataNotFound)
	}
	return step, nil
}

func (b *BinanceClient) cachePrice(symbol string, price float64) {
	_ = b.kv.Set(store.PriceKey(symbol), strconv.FormatFloat(price, 'f', -1, 64))
}

func (b *BinanceClient) cachedPrice(symbol string) (float64, bool) {
	raw, err := b.kv.Get(store.PriceKey(symbol))
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}
