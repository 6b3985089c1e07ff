package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"perp-trader/pkg/utils"
)

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show all open positions",
		Example: `  perp-trader positions
  perp-trader positions --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			summary := app.Manager.Summary(ctx)
			if output.IsJSON() {
				return output.JSON(summary)
			}

			if summary.TotalPositions == 0 {
				output.Info("no open positions")
			} else {
				output.Bold("%d open (%d long, %d short), unrealized P&L %s",
					summary.TotalPositions, summary.LongPositions, summary.ShortPositions,
					output.Pnl(summary.TotalUnrealizedPnL, utils.FormatPrice(summary.TotalUnrealizedPnL)))

				for _, p := range summary.Positions {
					trailing := ""
					if p.TrailingStopActivated {
						trailing = "  [trailing]"
					}
					output.Printf("  %-12s %-5s entry %s  now %s  stop %s  pnl %s (%s)%s\n",
						p.Symbol, p.Side,
						utils.FormatPrice(p.EntryPrice), utils.FormatPrice(p.CurrentPrice),
						utils.FormatPrice(p.CurrentStopLoss),
						output.Pnl(p.UnrealizedPnL, utils.FormatPrice(p.UnrealizedPnL)),
						utils.FormatPercent(p.PnLPercent), trailing)
				}
			}

			if app.Exchange.Available() {
				if report, err := app.Manager.Reconcile(ctx); err == nil {
					for _, symbol := range report.Missing {
						output.Warning("%s is tracked locally but not open on the exchange", symbol)
					}
					for _, pos := range report.Unknown {
						output.Warning("%s %s qty %s on the exchange has no local record",
							pos.Symbol, pos.Side, utils.FormatQuantity(pos.Quantity))
					}
				}
			}
			return nil
		},
	}
}
