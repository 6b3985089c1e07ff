package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"perp-trader/internal/models"
	"perp-trader/pkg/utils"
)

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show performance statistics and recent signals",
		Example: `  perp-trader stats
  perp-trader stats --recent 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			payload := struct {
				models.PerformanceStats
				AccountBalance *float64 `json:"account_balance,omitempty"`
			}{PerformanceStats: app.Tracker.Stats()}

			if app.Exchange.Available() {
				if balance, err := app.Exchange.GetAccountBalance(ctx); err == nil {
					payload.AccountBalance = &balance
				}
			}

			if output.IsJSON() {
				return output.JSON(payload)
			}

			output.Bold("performance")
			output.Printf("  total signals:       %d\n", payload.TotalSignals)
			output.Printf("  successful trades:   %d\n", payload.SuccessfulTrades)
			output.Printf("  failed trades:       %d\n", payload.FailedTrades)
			output.Printf("  win rate:            %s\n", utils.FormatPercent(payload.WinRate*100))
			output.Printf("  consecutive losses:  %d\n", payload.ConsecutiveLosses)
			if payload.AccountBalance != nil {
				output.Printf("  available balance:   %s\n", utils.FormatPrice(*payload.AccountBalance))
			}

			recent, _ := cmd.Flags().GetInt("recent")
			if app.Engine != nil && recent > 0 {
				signals := app.Engine.History().Recent(recent)
				if len(signals) > 0 {
					output.Bold("recent signals")
					for _, s := range signals {
						output.Printf("  %s  %-12s %-11s %.3f  %s\n",
							s.Timestamp.Format("15:04:05"), s.Symbol, s.Signal,
							s.ConfidenceScore, s.Message)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("recent", 10, "number of recent signals to show")
	return cmd
}
