package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"perp-trader/pkg/utils"
)

var (
	errMarketStoreUnavailable = errors.New("market data store unavailable")
	errAllSymbolsFailed       = errors.New("all symbols failed to refresh")
)

func newEvaluateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <symbol>",
		Short: "Evaluate a symbol and print the resulting signal",
		Long: `Run one signal evaluation for a symbol and print the decision with its
sub-scores and risk parameters. The evaluation records against the
symbol's cooldown exactly as in the automated cycle.`,
		Example: `  perp-trader evaluate BTCUSDT
  perp-trader evaluate ETHUSDT --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Engine == nil {
				output.Error("market data store unavailable")
				return errMarketStoreUnavailable
			}

			symbol := strings.ToUpper(args[0])
			ctx, cancel := context.WithTimeout(context.Background(), app.Config.Cycle.EvalTimeout)
			defer cancel()

			sig := app.Engine.Evaluate(ctx, symbol)
			if output.IsJSON() {
				return output.JSON(sig)
			}

			output.Bold("%s  %s", sig.Symbol, sig.Signal)
			if sig.Message != "" {
				output.Printf("  reason:      %s\n", sig.Message)
			}
			if sig.Signal.IsDirectional() {
				output.Printf("  confidence:  %.3f\n", sig.ConfidenceScore)
				output.Printf("  close:       %s\n", utils.FormatPrice(sig.Metadata.ClosePrice))
				if sig.StopLossPrice != nil {
					output.Printf("  stop loss:   %s\n", utils.FormatPrice(*sig.StopLossPrice))
				}
				if sig.TakeProfitPrice != nil {
					output.Printf("  take profit: %s\n", utils.FormatPrice(*sig.TakeProfitPrice))
				}
				output.Printf("  size:        %s\n", utils.FormatQuantity(sig.PositionSize))
			}
			output.Printf("  trend:       long=%s short=%s strength=%.2f\n",
				sig.Metadata.LongTermTrend, sig.Metadata.ShortTermTrend, sig.Metadata.TrendStrength)
			output.Printf("  scores:      composite=%.3f momentum=%.3f rsi=%.2f macd=%.2f stoch=%.2f\n",
				sig.Metadata.CompositeScore, sig.Metadata.MomentumScore,
				sig.Metadata.RSIScore, sig.Metadata.MACDScore, sig.Metadata.StochScore)
			return nil
		},
	}
}
