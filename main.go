package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"perp-trader/internal/cli"
	"perp-trader/internal/config"
	"perp-trader/internal/logging"
)

func main() {
	// .env is optional; exchange credentials may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PERP_TRADER_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(cfg.LogConfig())

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
