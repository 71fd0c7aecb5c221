package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/cache"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
)

// Refresher is the part of the departure cache the refresh loop drives.
type Refresher interface {
	RefreshAll(ctx context.Context) cache.RefreshReport
}

// DepartureRefresher periodically refreshes cached stops and evicts idle ones
type DepartureRefresher struct {
	cache    Refresher
	logger   logger.Logger
	interval time.Duration

	loop
}

// NewDepartureRefresher creates a new departure refresher
func NewDepartureRefresher(c Refresher, log logger.Logger, interval time.Duration) *DepartureRefresher {
	return &DepartureRefresher{
		cache:    c,
		logger:   log.With(logger.Component("departure-refresh")),
		interval: interval,
		loop:     newLoop(),
	}
}

// Start begins the periodic refresh process
func (dr *DepartureRefresher) Start(ctx context.Context) error {
	dr.run(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(dr.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				dr.Refresh(ctx)
			case <-dr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	})
	return nil
}

// Stop stops the refresher and waits for an in-flight sweep to return
func (dr *DepartureRefresher) Stop() {
	dr.stop()
}

// Refresh runs one sweep over the cache
func (dr *DepartureRefresher) Refresh(ctx context.Context) cache.RefreshReport {
	start := time.Now()
	report := dr.cache.RefreshAll(ctx)

	if report == (cache.RefreshReport{}) {
		dr.logger.Debug("no cached stops to refresh")
		return report
	}

	fields := []logger.Field{
		logger.Int("refreshed", report.Refreshed),
		logger.Int("failed", report.Failed),
		logger.Int("evicted", report.Evicted),
		logger.Duration("took", time.Since(start)),
	}
	if report.Failed > 0 {
		dr.logger.Warn("departures refreshed with failures", fields...)
	} else {
		dr.logger.Info("departures refreshed", fields...)
	}
	return report
}
