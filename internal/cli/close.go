package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"perp-trader/internal/models"
)

func newCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close [symbol]",
		Short: "Close an open position, or all of them",
		Long: `Close the open position for a symbol with a reduce-only market order.
With --all, every open position is closed best-effort: failures are
reported per symbol.`,
		Example: `  perp-trader close BTCUSDT
  perp-trader close --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			all, _ := cmd.Flags().GetBool("all")
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			if all {
				results := app.Manager.CloseAll(ctx, models.CloseManual)
				if output.IsJSON() {
					return output.JSON(results)
				}
				for _, res := range results {
					if res.Success {
						output.Success("%s", res.Message)
					} else {
						output.Error("%s", res.Message)
					}
				}
				return nil
			}

			if len(args) != 1 {
				return fmt.Errorf("a symbol or --all is required")
			}
			symbol := strings.ToUpper(args[0])

			res := app.Manager.CloseBySymbol(ctx, symbol, models.CloseManual)
			if output.IsJSON() {
				return output.JSON(res)
			}
			if !res.Success {
				output.Error("%s", res.Message)
				return fmt.Errorf("%s", res.Message)
			}
			output.Success("%s", res.Message)
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "close every open position")
	return cmd
}
