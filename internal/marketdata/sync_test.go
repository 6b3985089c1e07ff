package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"perp-trader/internal/exchange"
	"perp-trader/internal/models"
)

type fakeExchange struct {
	klines map[string][]models.Candle
	errs   map[string]error
	calls  []string
}

func (f *fakeExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	f.calls = append(f.calls, interval)
	if err := f.errs[interval]; err != nil {
		return nil, err
	}
	return f.klines[interval], nil
}

func (f *fakeExchange) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakeExchange) PlaceReduceOnlyClose(ctx context.Context, symbol string, side models.PositionSide, quantity float64) (string, error) {
	return "", errors.New("not implemented")
}
func (f *fakeExchange) GetOpenPositions(ctx context.Context) ([]exchange.ExchangePosition, error) {
	return nil, nil
}
func (f *fakeExchange) GetAccountBalance(ctx context.Context) (float64, error) { return 0, nil }
func (f *fakeExchange) Available() bool                                        { return true }

type fakeMarketStore struct {
	saved map[string][]models.Candle
	err   error
}

func (f *fakeMarketStore) GetIndicatorSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	return f.saved[timeframe], nil
}

func (f *fakeMarketStore) SaveIndicatorCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]models.Candle)
	}
	f.saved[timeframe] = candles
	return nil
}

func (f *fakeMarketStore) Close() error { return nil }

func rawCandles(n int) []models.Candle {
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		mid := 100 + 5*math.Sin(float64(i)/5)
		out[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Symbol:    "BTCUSDT",
			Open:      mid - 0.5,
			High:      mid + 1,
			Low:       mid - 1,
			Close:     mid + 0.5,
			Volume:    1000,
		}
	}
	return out
}

func TestSyncEnrichesAndStores(t *testing.T) {
	ex := &fakeExchange{klines: map[string][]models.Candle{
		"1m":  rawCandles(250),
		"15m": rawCandles(250),
	}}
	ms := &fakeMarketStore{}
	s := NewSyncer(ex, ms, zerolog.Nop())

	if err := s.Sync(context.Background(), "BTCUSDT", []string{"1m", "15m"}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	for _, tf := range []string{"1m", "15m"} {
		saved := ms.saved[tf]
		if len(saved) != 250 {
			t.Fatalf("%s: saved %d candles, want 250", tf, len(saved))
		}
		if !saved[len(saved)-1].Complete() {
			t.Errorf("%s: last stored candle has empty indicator columns", tf)
		}
	}
}

// One timeframe failing must not stop the other from refreshing; the first
// error still surfaces to the caller.
func TestSyncContinuesPastFailedTimeframe(t *testing.T) {
	wantErr := errors.New("kline fetch failed")
	ex := &fakeExchange{
		klines: map[string][]models.Candle{"15m": rawCandles(250)},
		errs:   map[string]error{"1m": wantErr},
	}
	ms := &fakeMarketStore{}
	s := NewSyncer(ex, ms, zerolog.Nop())

	err := s.Sync(context.Background(), "BTCUSDT", []string{"1m", "15m"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the 1m failure", err)
	}
	if len(ex.calls) != 2 {
		t.Fatalf("calls = %v, want both timeframes attempted", ex.calls)
	}
	if len(ms.saved["15m"]) == 0 {
		t.Error("15m series not stored after 1m failure")
	}
}

func TestSyncRejectsShortSeries(t *testing.T) {
	ex := &fakeExchange{klines: map[string][]models.Candle{"1m": rawCandles(20)}}
	ms := &fakeMarketStore{}
	s := NewSyncer(ex, ms, zerolog.Nop())

	if err := s.Sync(context.Background(), "BTCUSDT", []string{"1m"}); err == nil {
		t.Fatal("Sync accepted a series too short to enrich")
	}
	if len(ms.saved) != 0 {
		t.Error("short series was stored")
	}
}
