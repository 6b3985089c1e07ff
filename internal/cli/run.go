package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"perp-trader/internal/trading"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation cycle and position monitor",
		Long: `Run the trading core: a periodic cycle that evaluates every configured
symbol and opens positions on directional signals, alongside the
continuous position-monitoring loop.

Both loops stop on SIGINT/SIGTERM; in-flight monitoring tasks are given
a grace period to finish.`,
		Example: `  perp-trader run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Engine == nil {
				output.Error("market data store unavailable, cannot run")
				return errMarketStoreUnavailable
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			monitor := trading.NewMonitor(app.Manager, trading.MonitorConfig{
				Interval:      app.Config.Monitor.Interval,
				Workers:       app.Config.Monitor.Workers,
				TaskTimeout:   app.Config.Monitor.TaskTimeout,
				ShutdownGrace: app.Config.Monitor.ShutdownGrace,
			}, app.Logger)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				monitor.Run(ctx)
			}()

			output.Info("trading core started: %d symbols, cycle %s, monitor %s",
				len(app.Config.Symbols), app.Config.Cycle.Interval, app.Config.Monitor.Interval)

			app.runCycle(ctx) // evaluate once at startup, then on every tick

			ticker := time.NewTicker(app.Config.Cycle.Interval)
			defer ticker.Stop()
		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case <-ticker.C:
					app.runCycle(ctx)
				}
			}

			output.Info("shutting down")
			wg.Wait()
			return nil
		},
	}
}

// runCycle refreshes market data and evaluates every configured symbol,
// feeding directional signals into the lifecycle manager. Each symbol is
// bounded by the evaluation timeout; one symbol's failure never skips the
// others, and a failed refresh just means the engine holds on stale data.
func (app *App) runCycle(ctx context.Context) {
	settings, err := app.Settings.Load()
	if err != nil {
		app.Logger.Warn().Err(err).Msg("settings unavailable, skipping cycle")
		return
	}
	timeframes := []string{settings.Timeframe, settings.LongTimeframe}

	for _, symbol := range app.Config.Symbols {
		if ctx.Err() != nil {
			return
		}
		evalCtx, cancel := context.WithTimeout(ctx, app.Config.Cycle.EvalTimeout)
		_ = app.Syncer.Sync(evalCtx, symbol, timeframes)
		sig := app.Engine.Evaluate(evalCtx, symbol)
		cancel()

		if !sig.Signal.IsDirectional() {
			continue
		}
		res := app.Manager.ProcessSignal(ctx, sig)
		if !res.Success {
			app.Logger.Warn().Str("symbol", symbol).Str("message", res.Message).
				Msg("directional signal not acted on")
		}
	}
}
