package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change trading settings",
	}
	cmd.AddCommand(newSettingsGetCmd(app))
	cmd.AddCommand(newSettingsSetCmd(app))
	return cmd
}

func newSettingsGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "get",
		Short:   "Show the current trading settings",
		Example: `  perp-trader settings get --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			settings, err := app.Settings.Load()
			if err != nil {
				output.Error("loading settings: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(settings)
			}

			output.Bold("trading settings")
			output.Printf("  timeframes:          %s / %s\n", settings.Timeframe, settings.LongTimeframe)
			output.Printf("  auto trading:        %t\n", settings.AutoTradingEnabled)
			output.Printf("  leverage:            %d\n", settings.Leverage)
			output.Printf("  risk per trade:      %.3f\n", settings.RiskPerTrade)
			output.Printf("  account balance:     %.2f\n", settings.AccountBalance)
			output.Printf("  atr multiplier:      %.2f\n", settings.ATRMultiplier)
			output.Printf("  take profit ratio:   %.2f\n", settings.TakeProfitRatio)
			output.Printf("  signal cooldown:     %s\n", settings.MinSignalInterval)
			output.Printf("  max consec losses:   %d\n", settings.MaxConsecutiveLosses)
			output.Printf("  max position hold:   %s\n", settings.MaxPositionHold)
			output.Printf("  volatility exit:     %.3f\n", settings.VolatilityExitThreshold)
			output.Printf("  active hours:        %v\n", settings.ActiveHours)
			return nil
		},
	}
}

func newSettingsSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change trading settings",
		Long: `Change trading settings. Settings are validated as a whole before being
saved; an invalid combination leaves the stored settings untouched.`,
		Example: `  perp-trader settings set --auto-trading=true
  perp-trader settings set --leverage 5 --risk-per-trade 0.01
  perp-trader settings set --cooldown 10m --max-hold 2h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			settings, err := app.Settings.Load()
			if err != nil {
				output.Error("loading settings: %v", err)
				return err
			}

			setBool := func(name string, dst *bool) {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					parsed, err := strconv.ParseBool(v)
					if err == nil {
						*dst = parsed
					}
				}
			}
			setBool("auto-trading", &settings.AutoTradingEnabled)

			if cmd.Flags().Changed("leverage") {
				settings.Leverage, _ = cmd.Flags().GetInt("leverage")
			}
			if cmd.Flags().Changed("risk-per-trade") {
				settings.RiskPerTrade, _ = cmd.Flags().GetFloat64("risk-per-trade")
			}
			if cmd.Flags().Changed("balance") {
				settings.AccountBalance, _ = cmd.Flags().GetFloat64("balance")
			}
			if cmd.Flags().Changed("atr-multiplier") {
				settings.ATRMultiplier, _ = cmd.Flags().GetFloat64("atr-multiplier")
			}
			if cmd.Flags().Changed("take-profit-ratio") {
				settings.TakeProfitRatio, _ = cmd.Flags().GetFloat64("take-profit-ratio")
			}
			if cmd.Flags().Changed("max-losses") {
				settings.MaxConsecutiveLosses, _ = cmd.Flags().GetInt("max-losses")
			}
			if cmd.Flags().Changed("cooldown") {
				d, err := durationFlag(cmd, "cooldown")
				if err != nil {
					return err
				}
				settings.MinSignalInterval = d
			}
			if cmd.Flags().Changed("max-hold") {
				d, err := durationFlag(cmd, "max-hold")
				if err != nil {
					return err
				}
				settings.MaxPositionHold = d
			}

			if err := app.Settings.Save(settings); err != nil {
				output.Error("saving settings: %v", err)
				return err
			}
			output.Success("settings saved")
			return nil
		},
	}

	cmd.Flags().String("auto-trading", "", "enable or disable automated entries (true/false)")
	cmd.Flags().Int("leverage", 0, "futures leverage")
	cmd.Flags().Float64("risk-per-trade", 0, "risk budget per trade as a balance fraction")
	cmd.Flags().Float64("balance", 0, "account balance used for sizing")
	cmd.Flags().Float64("atr-multiplier", 0, "stop distance in ATR multiples")
	cmd.Flags().Float64("take-profit-ratio", 0, "take-profit and trailing activation ratio")
	cmd.Flags().Int("max-losses", 0, "consecutive losses before the circuit opens")
	cmd.Flags().String("cooldown", "", "minimum interval between signals (e.g. 5m)")
	cmd.Flags().String("max-hold", "", "maximum position hold time (e.g. 4h)")
	return cmd
}

func durationFlag(cmd *cobra.Command, name string) (time.Duration, error) {
	raw, _ := cmd.Flags().GetString(name)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return d, nil
}
