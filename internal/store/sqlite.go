package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "perp-trader/internal/errors"
	"perp-trader/internal/models"
)

// SQLiteStore implements MarketDataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based market-data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Candles with precomputed indicator columns, keyed by symbol/timeframe.
	CREATE TABLE IF NOT EXISTS indicator_candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		ema_20 REAL NOT NULL DEFAULT 0,
		sma_50 REAL NOT NULL DEFAULT 0,
		sma_200 REAL NOT NULL DEFAULT 0,
		rsi_14 REAL NOT NULL DEFAULT 0,
		macd REAL NOT NULL DEFAULT 0,
		macd_signal REAL NOT NULL DEFAULT 0,
		macd_hist REAL NOT NULL DEFAULT 0,
		atr_14 REAL NOT NULL DEFAULT 0,
		adx_14 REAL NOT NULL DEFAULT 0,
		stoch_k REAL NOT NULL DEFAULT 0,
		stoch_d REAL NOT NULL DEFAULT 0,
		volume_sma_20 REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_candles_lookup
		ON indicator_candles(symbol, timeframe, timestamp DESC);

	-- Durable key-value state: settings, positions, performance counters.
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetIndicatorSeries returns up to limit most recent candles, oldest first.
func (s *SQLiteStore) GetIndicatorSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	query := `
		SELECT timestamp, open, high, low, close, volume,
		       ema_20, sma_50, sma_200, rsi_14,
		       macd, macd_signal, macd_hist,
		       atr_14, adx_14, stoch_k, stoch_d, volume_sma_20
		FROM indicator_candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY timestamp DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, apperrors.NewDataError("candles", symbol, "query failed", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		c := models.Candle{Symbol: symbol}
		if err := rows.Scan(
			&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.EMA20, &c.SMA50, &c.SMA200, &c.RSI14,
			&c.MACD, &c.MACDSignal, &c.MACDHist,
			&c.ATR14, &c.ADX14, &c.StochK, &c.StochD, &c.VolumeSMA20,
		); err != nil {
			return nil, apperrors.NewDataError("candles", symbol, "scan failed", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataError("candles", symbol, "iteration failed", err)
	}

	if len(candles) == 0 {
		return nil, apperrors.NewDataError("candles", symbol,
			fmt.Sprintf("no %s candles stored", timeframe), apperrors.ErrDataNotFound)
	}

	// Reverse to oldest-first for the scoring pipeline.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// SaveIndicatorCandles upserts a batch of candles inside one transaction.
func (s *SQLiteStore) SaveIndicatorCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO indicator_candles (
			symbol, timeframe, timestamp, open, high, low, close, volume,
			ema_20, sma_50, sma_200, rsi_14,
			macd, macd_signal, macd_hist,
			atr_14, adx_14, stoch_k, stoch_d, volume_sma_20
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, timeframe, timestamp) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume,
			ema_20=excluded.ema_20, sma_50=excluded.sma_50,
			sma_200=excluded.sma_200, rsi_14=excluded.rsi_14,
			macd=excluded.macd, macd_signal=excluded.macd_signal,
			macd_hist=excluded.macd_hist, atr_14=excluded.atr_14,
			adx_14=excluded.adx_14, stoch_k=excluded.stoch_k,
			stoch_d=excluded.stoch_d, volume_sma_20=excluded.volume_sma_20`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume,
			c.EMA20, c.SMA50, c.SMA200, c.RSI14,
			c.MACD, c.MACDSignal, c.MACDHist,
			c.ATR14, c.ADX14, c.StochK, c.StochD, c.VolumeSMA20,
		); err != nil {
			return fmt.Errorf("upsert candle %s: %w", c.Timestamp, err)
		}
	}

	return tx.Commit()
}

// KeyValue returns a KeyValueStore over the same database file, so trading
// state written by a running core is visible to one-shot CLI invocations
// and survives restarts. It shares the connection pool; Close on the
// market-data store closes it too.
func (s *SQLiteStore) KeyValue() *SQLiteKV {
	return &SQLiteKV{db: s.db}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
