package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCandles(n int, start time.Time) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = models.Candle{
			Timestamp:   start.Add(time.Duration(i) * time.Minute),
			Symbol:      "BTCUSDT",
			Open:        price,
			High:        price + 1,
			Low:         price - 1,
			Close:       price + 0.5,
			Volume:      1000,
			EMA20:       price,
			SMA50:       price - 2,
			RSI14:       55,
			ATR14:       1.5,
			VolumeSMA20: 900,
		}
	}
	return out
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "1m", testCandles(10, start)); err != nil {
		t.Fatalf("SaveIndicatorCandles: %v", err)
	}

	got, err := s.GetIndicatorSeries(ctx, "BTCUSDT", "1m", 100)
	if err != nil {
		t.Fatalf("GetIndicatorSeries: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("series not oldest-first at %d", i)
		}
	}
	if got[0].Close != 100.5 || got[9].Close != 109.5 {
		t.Errorf("closes = %v..%v, want 100.5..109.5", got[0].Close, got[9].Close)
	}
}

func TestSQLiteStoreLimitReturnsMostRecent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "1m", testCandles(20, start)); err != nil {
		t.Fatalf("SaveIndicatorCandles: %v", err)
	}

	got, err := s.GetIndicatorSeries(ctx, "BTCUSDT", "1m", 5)
	if err != nil {
		t.Fatalf("GetIndicatorSeries: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	// The newest 5 rows, still oldest-first.
	if got[4].Close != 119.5 {
		t.Errorf("last close = %v, want 119.5", got[4].Close)
	}
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	candles := testCandles(3, start)
	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "1m", candles); err != nil {
		t.Fatalf("first save: %v", err)
	}

	candles[1].Close = 500
	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "1m", candles); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.GetIndicatorSeries(ctx, "BTCUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("GetIndicatorSeries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 after upsert", len(got))
	}
	if got[1].Close != 500 {
		t.Errorf("upserted close = %v, want 500", got[1].Close)
	}
}

func TestSQLiteStoreMissingSeries(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetIndicatorSeries(context.Background(), "BTCUSDT", "1m", 10)
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Fatalf("err = %v, want ErrDataNotFound", err)
	}
}

func TestSQLiteStoreSeriesAreKeyedByTimeframe(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "1m", testCandles(5, start)); err != nil {
		t.Fatalf("save 1m: %v", err)
	}
	if err := s.SaveIndicatorCandles(ctx, "BTCUSDT", "15m", testCandles(3, start)); err != nil {
		t.Fatalf("save 15m: %v", err)
	}

	oneMin, err := s.GetIndicatorSeries(ctx, "BTCUSDT", "1m", 100)
	if err != nil {
		t.Fatalf("get 1m: %v", err)
	}
	fifteen, err := s.GetIndicatorSeries(ctx, "BTCUSDT", "15m", 100)
	if err != nil {
		t.Fatalf("get 15m: %v", err)
	}
	if len(oneMin) != 5 || len(fifteen) != 3 {
		t.Fatalf("lens = %d/%d, want 5/3", len(oneMin), len(fifteen))
	}
}
