package trading

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/store"
)

func TestMonitorPassClosesStoppedPositions(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.manager.ProcessSignal(ctx, buySignal("BTCUSDT", 100)) // stop 98
	f.manager.ProcessSignal(ctx, buySignal("ETHUSDT", 200)) // stop 196
	f.paper.SetPrice("BTCUSDT", 97)                         // through the stop
	f.paper.SetPrice("ETHUSDT", 201)                        // healthy

	mo := NewMonitor(f.manager, MonitorConfig{
		Interval:      time.Millisecond,
		Workers:       2,
		TaskTimeout:   time.Second,
		ShutdownGrace: time.Second,
	}, zerolog.Nop())
	mo.pool.Start()
	defer mo.pool.Stop()

	mo.runPass(ctx)

	if _, err := f.book.Get("BTCUSDT"); !apperrors.Is(err, apperrors.ErrPositionNotFound) {
		t.Fatal("stopped position survived the pass")
	}
	if _, err := f.book.Get("ETHUSDT"); err != nil {
		t.Fatalf("healthy position closed: %v", err)
	}
}

func TestMonitorPassRunsInlineWhenPoolStopped(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.manager.ProcessSignal(ctx, buySignal("BTCUSDT", 100))
	f.paper.SetPrice("BTCUSDT", 97)

	mo := NewMonitor(f.manager, MonitorConfig{
		Interval:    time.Millisecond,
		Workers:     1,
		TaskTimeout: time.Second,
	}, zerolog.Nop())

	// Pool never started: Submit fails and the task runs inline.
	mo.runPass(ctx)

	if _, err := f.book.Get("BTCUSDT"); !apperrors.Is(err, apperrors.ErrPositionNotFound) {
		t.Fatal("inline fallback did not close the stopped position")
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	f := newManagerFixture(t)

	mo := NewMonitor(f.manager, MonitorConfig{
		Interval:      time.Millisecond,
		Workers:       1,
		TaskTimeout:   time.Second,
		ShutdownGrace: time.Second,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mo.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}

func TestCheckPositionVolatilityExitUsesLiveATR(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.manager.ProcessSignal(ctx, buySignal("BTCUSDT", 100))
	f.paper.SetPrice("BTCUSDT", 101.5) // above the stop, inside the hold window

	// |101.5-100|/100 = 0.015 > 0.03 * atr(0.4) = 0.012
	f.kv.Set(store.ATRKey("BTCUSDT"), "0.4")

	if err := f.manager.checkPosition(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("checkPosition: %v", err)
	}
	if _, err := f.book.Get("BTCUSDT"); !apperrors.Is(err, apperrors.ErrPositionNotFound) {
		t.Fatal("volatility exit did not close the position")
	}

	stats := f.manager.Tracker().Stats()
	if stats.SuccessfulTrades != 1 {
		t.Errorf("SuccessfulTrades = %d, want the exit recorded as profit", stats.SuccessfulTrades)
	}
}
