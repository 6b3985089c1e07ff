package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [symbol...]",
		Short: "Refresh indicator series from the exchange",
		Long: `Fetch raw klines for the given symbols (default: the configured symbol
list), compute indicator columns and upsert them into the market-data
store. Both the short and the long evaluation timeframes are refreshed.`,
		Example: `  perp-trader sync
  perp-trader sync BTCUSDT ETHUSDT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Syncer == nil {
				output.Error("market data store unavailable")
				return errMarketStoreUnavailable
			}

			symbols := app.Config.Symbols
			if len(args) > 0 {
				symbols = make([]string, len(args))
				for i, a := range args {
					symbols[i] = strings.ToUpper(a)
				}
			}

			settings, err := app.Settings.Load()
			if err != nil {
				output.Error("loading settings: %v", err)
				return err
			}
			timeframes := []string{settings.Timeframe, settings.LongTimeframe}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			var failed int
			for _, symbol := range symbols {
				if err := app.Syncer.Sync(ctx, symbol, timeframes); err != nil {
					output.Warning("%s: %v", symbol, err)
					failed++
					continue
				}
				output.Success("%s refreshed (%s, %s)", symbol, timeframes[0], timeframes[1])
			}
			if failed == len(symbols) {
				return errAllSymbolsFailed
			}
			return nil
		},
	}
}
