package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"perp-trader/internal/performance"
)

// MonitorConfig bounds the monitoring loop.
type MonitorConfig struct {
	Interval      time.Duration
	Workers       int
	TaskTimeout   time.Duration
	ShutdownGrace time.Duration
}

// DefaultMonitorConfig returns the baseline monitor bounds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:      5 * time.Second,
		Workers:       8,
		TaskTimeout:   30 * time.Second,
		ShutdownGrace: 30 * time.Second,
	}
}

// Monitor runs the continuous position-monitoring loop: on every tick it
// enumerates open positions and evaluates each in parallel through a
// bounded worker pool. Task failures are isolated per symbol and never
// stop the loop; even a failed enumeration only waits for the next tick.
type Monitor struct {
	manager *Manager
	pool    *performance.WorkerPool
	config  MonitorConfig
	logger  zerolog.Logger
}

// NewMonitor creates a monitor over the given manager.
func NewMonitor(manager *Manager, config MonitorConfig, logger zerolog.Logger) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorConfig().Interval
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = DefaultMonitorConfig().TaskTimeout
	}
	return &Monitor{
		manager: manager,
		pool:    performance.NewWorkerPool(config.Workers),
		config:  config,
		logger:  logger.With().Str("component", "monitor").Logger(),
	}
}

// Run drives the loop until ctx is cancelled. On shutdown, in-flight
// per-position tasks get the configured grace period to finish so no task
// is abandoned mid-mutation of the position book.
func (mo *Monitor) Run(ctx context.Context) {
	mo.pool.Start()
	defer mo.stop()

	mo.logger.Info().
		Dur("interval", mo.config.Interval).
		Int("workers", mo.pool.Stats().Workers).
		Msg("position monitoring started")

	ticker := time.NewTicker(mo.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mo.logger.Info().Msg("position monitoring stopping")
			return
		case <-ticker.C:
			mo.runPass(ctx)
		}
	}
}

// runPass evaluates every open position once, joining all tasks before
// returning so passes never overlap.
func (mo *Monitor) runPass(ctx context.Context) {
	symbols, err := mo.manager.book.Symbols()
	if err != nil {
		// Unrecoverable for this pass only; retry on the next tick.
		mo.logger.Error().Err(err).Msg("cannot enumerate positions, retrying next interval")
		return
	}
	if len(symbols) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		symbol := symbol
		wg.Add(1)
		task := func() {
			defer wg.Done()
			taskCtx, cancel := context.WithTimeout(ctx, mo.config.TaskTimeout)
			defer cancel()
			if err := mo.manager.checkPosition(taskCtx, symbol); err != nil {
				mo.logger.Error().Str("symbol", symbol).Err(err).Msg("position check failed")
			}
		}
		if !mo.pool.Submit(task) {
			// Pool saturated or stopped; run inline rather than dropping.
			task()
		}
	}
	wg.Wait()
}

// stop shuts the pool down, abandoning the wait once the grace period ends.
func (mo *Monitor) stop() {
	done := make(chan struct{})
	go func() {
		mo.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(mo.config.ShutdownGrace):
		mo.logger.Warn().Msg("monitor shutdown grace period elapsed with tasks in flight")
	}
}
