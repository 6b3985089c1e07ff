package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"perp-trader/internal/config"
	"perp-trader/internal/exchange"
	"perp-trader/internal/marketdata"
	"perp-trader/internal/performance"
	"perp-trader/internal/signal"
	"perp-trader/internal/store"
	"perp-trader/internal/trading"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies shared by commands.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	KV       store.KeyValueStore
	Market   store.MarketDataStore
	Exchange exchange.ExchangeClient
	Settings *config.SettingsStore
	Tracker  *performance.Tracker
	Engine   *signal.Engine
	Manager  *trading.Manager
	Syncer   *marketdata.Syncer
}

// NewRootCmd creates the root command and wires the application graph.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	marketStore, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		// Trading state written to the fallback store dies with the
		// process; commands that depend on it warn at the call site.
		logger.Warn().Err(err).Msg("database unavailable, state will not persist and evaluation will hold")
		app.KV = store.NewMemoryStore()
	} else {
		app.Market = marketStore
		app.KV = marketStore.KeyValue()
	}

	if cfg.Binance.Paper {
		var live exchange.ExchangeClient
		if cfg.Binance.APIKey != "" {
			live = exchange.NewBinanceClient(exchange.BinanceConfig{
				APIKey:    cfg.Binance.APIKey,
				APISecret: cfg.Binance.APISecret,
				Testnet:   cfg.Binance.Testnet,
			}, app.KV, logger)
		}
		app.Exchange = exchange.NewPaperExchange(config.DefaultTradingSettings().AccountBalance, live, app.KV)
		logger.Debug().Msg("paper exchange initialized")
	} else {
		app.Exchange = exchange.NewBinanceClient(exchange.BinanceConfig{
			APIKey:    cfg.Binance.APIKey,
			APISecret: cfg.Binance.APISecret,
			Testnet:   cfg.Binance.Testnet,
		}, app.KV, logger)
		logger.Debug().Bool("testnet", cfg.Binance.Testnet).Msg("binance futures client initialized")
	}

	app.Settings = config.NewSettingsStore(app.KV)
	app.Tracker = performance.NewTracker(app.KV, logger)
	if app.Market != nil {
		app.Engine = signal.NewEngine(app.Market, app.KV, app.Settings, app.Tracker, logger)
		app.Syncer = marketdata.NewSyncer(app.Exchange, app.Market, logger)
	}
	app.Manager = trading.NewManager(trading.NewPositionBook(app.KV), app.Exchange,
		app.Settings, app.Tracker, app.KV, logger)

	rootCmd := &cobra.Command{
		Use:   "perp-trader",
		Short: "Perpetual futures auto-trading core",
		Long: `perp-trader scores market conditions into directional signals and
supervises every open position with a trailing-stop ratchet, time and
volatility exits, and a consecutive-loss circuit breaker.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newSyncCmd(app))
	rootCmd.AddCommand(newEvaluateCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newCloseCmd(app))
	rootCmd.AddCommand(newSettingsCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))

	return rootCmd
}
