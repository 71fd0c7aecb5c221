package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
)

// ProxySyncer restores the proxy pool from Redis on startup. Saved
// endpoints go through validation again before they are pooled.
type ProxySyncer struct {
	store   ProxyStore
	pool    *proxy.Pool
	checker proxy.Checker
	target  int
	logger  logger.Logger
}

// NewProxySyncer creates a new proxy syncer
func NewProxySyncer(store ProxyStore, pool *proxy.Pool, checker proxy.Checker, target int, log logger.Logger) *ProxySyncer {
	return &ProxySyncer{
		store:   store,
		pool:    pool,
		checker: checker,
		target:  target,
		logger:  log.With(logger.Component("proxy-sync")),
	}
}

// Sync loads the saved snapshot and adds its endpoints that still pass
// validation, up to the target size.
func (ps *ProxySyncer) Sync(ctx context.Context) error {
	ps.logger.Info("restoring proxies from redis")

	report, err := ps.pool.RefillIfLow(ctx, ps.target, snapshotSource{store: ps.store}, ps.checker)
	if err != nil {
		return fmt.Errorf("failed to restore proxies: %w", err)
	}

	if report.Candidates == 0 {
		ps.logger.Info("no proxies found in redis")
		return nil
	}

	ps.logger.Info("restored proxies from redis",
		logger.Int("saved", report.Candidates),
		logger.Int("checked", report.Checked),
		logger.Int("restored", report.Added))
	return nil
}

// snapshotSource lists the endpoints of the saved snapshot as candidates.
type snapshotSource struct {
	store ProxyStore
}

func (s snapshotSource) ListCandidates(ctx context.Context) ([]string, error) {
	snap, err := s.store.GetProxies(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Endpoints, nil
}
