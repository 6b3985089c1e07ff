// Package config provides configuration management for the trading core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"perp-trader/internal/logging"
)

// Config holds all process-level application configuration. Unlike
// TradingSettings it is fixed for the lifetime of the process.
type Config struct {
	Symbols     []string      `mapstructure:"symbols"`
	DatabaseDir string        `mapstructure:"database_dir"`
	Monitor     MonitorConfig `mapstructure:"monitor"`
	Cycle       CycleConfig   `mapstructure:"cycle"`
	Binance     BinanceConfig `mapstructure:"binance"`
	Log         LogFileConfig `mapstructure:"log"`
}

// MonitorConfig bounds the concurrent position-monitoring loop.
type MonitorConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	Workers       int           `mapstructure:"workers"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// CycleConfig drives the periodic evaluate-and-enter cycle.
type CycleConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	EvalTimeout time.Duration `mapstructure:"eval_timeout"`
}

// BinanceConfig holds exchange credentials and endpoints.
type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Testnet   bool   `mapstructure:"testnet"`
	Paper     bool   `mapstructure:"paper"`
}

// LogFileConfig mirrors the logging package configuration.
type LogFileConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/perp-trader"
	}
	return filepath.Join(home, ".config", "perp-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		// Missing file is fine; defaults plus env cover a fresh install.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("symbols", []string{"BTCUSDT"})
	v.SetDefault("database_dir", configDir)
	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.workers", 8)
	v.SetDefault("monitor.task_timeout", 30*time.Second)
	v.SetDefault("monitor.shutdown_grace", 30*time.Second)
	v.SetDefault("cycle.interval", time.Minute)
	v.SetDefault("cycle.eval_timeout", 20*time.Second)
	v.SetDefault("binance.testnet", false)
	v.SetDefault("binance.paper", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)
	v.SetDefault("log.file_path", filepath.Join(configDir, "logs", "trader.log"))
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Binance.APISecret = v
	}
	if v := os.Getenv("BINANCE_TESTNET"); v == "1" || v == "true" {
		cfg.Binance.Testnet = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one trading symbol is required")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("monitor.workers must be positive")
	}
	if c.Monitor.TaskTimeout <= 0 {
		return fmt.Errorf("monitor.task_timeout must be positive")
	}
	if c.Cycle.Interval <= 0 {
		return fmt.Errorf("cycle.interval must be positive")
	}
	if !c.Binance.Paper && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
		return fmt.Errorf("binance credentials required outside paper mode")
	}
	return nil
}

// LogConfig converts the file config into the logging package's form.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Log.Level,
		Console:    c.Log.Console,
		File:       c.Log.File,
		FilePath:   c.Log.FilePath,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
	}
}

// DatabasePath returns the market-data database path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DatabaseDir, "market.db")
}
