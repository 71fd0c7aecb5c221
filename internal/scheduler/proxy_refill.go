package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/proxy"
)

// RefillStatus describes the most recent refill, for the infra endpoint.
type RefillStatus struct {
	LastRun    time.Time          `json:"last_run"`
	LastReport proxy.RefillReport `json:"last_report"`
	LastError  string             `json:"last_error,omitempty"`
}

// ProxyRefiller keeps the proxy pool at its standard size
type ProxyRefiller struct {
	pool          *proxy.Pool
	source        proxy.CandidateSource
	checker       proxy.Checker
	store         ProxyStore
	logger        logger.Logger
	interval      time.Duration
	standard      int
	minimum       int
	manualTrigger chan struct{}
	now           func() time.Time

	loop

	mu     sync.Mutex
	status RefillStatus
}

// NewProxyRefiller creates a new proxy refiller. store may be nil.
func NewProxyRefiller(
	pool *proxy.Pool,
	source proxy.CandidateSource,
	checker proxy.Checker,
	store ProxyStore,
	log logger.Logger,
	interval time.Duration,
	standard, minimum int,
	manualTrigger chan struct{},
) *ProxyRefiller {
	return &ProxyRefiller{
		pool:          pool,
		source:        source,
		checker:       checker,
		store:         store,
		logger:        log.With(logger.Component("proxy-refill")),
		interval:      interval,
		standard:      standard,
		minimum:       minimum,
		manualTrigger: manualTrigger,
		now:           time.Now,
		loop:          newLoop(),
	}
}

// Start begins the periodic refill process. The first refill runs right
// away in the background so startup is not held up by proxy validation.
func (pr *ProxyRefiller) Start(ctx context.Context) error {
	pr.run(ctx, func(ctx context.Context) {
		pr.refillAndLog(ctx)

		ticker := time.NewTicker(pr.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pr.refillAndLog(ctx)
			case <-pr.manualTrigger:
				pr.logger.Info("manual refill triggered")
				pr.refillAndLog(ctx)
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	})
	return nil
}

// Stop stops the refiller and waits for an in-flight refill to return
func (pr *ProxyRefiller) Stop() {
	pr.stop()
}

func (pr *ProxyRefiller) refillAndLog(ctx context.Context) {
	if err := pr.Refill(ctx); err != nil && ctx.Err() == nil {
		pr.logger.Error("failed to refill proxies", logger.Error(err))
	}
}

// Refill tops the pool up once. A failure leaves the pool as it is; the next
// tick tries again.
func (pr *ProxyRefiller) Refill(ctx context.Context) error {
	report, err := pr.pool.RefillIfLow(ctx, pr.standard, pr.source, pr.checker)
	pr.record(report, err)
	if err != nil {
		return fmt.Errorf("proxy refill: %w", err)
	}

	if report.Before >= pr.standard {
		pr.logger.Debug("proxy pool at standard size", logger.Int("size", report.Before))
		return nil
	}

	pr.logger.Info("proxies refilled",
		logger.Int("before", report.Before),
		logger.Bool("cleared", report.Cleared),
		logger.Int("candidates", report.Candidates),
		logger.Int("checked", report.Checked),
		logger.Int("added", report.Added),
		logger.Int("size", report.After))

	if report.After < pr.minimum {
		pr.logger.Warn("proxy pool below minimum after refill",
			logger.Int("size", report.After),
			logger.Int("minimum", pr.minimum))
	}

	pr.save(ctx, report.After)
	return nil
}

// save stores the pool in Redis (best effort). An empty pool drops the
// snapshot so a restart does not warm up from endpoints that all failed.
func (pr *ProxyRefiller) save(ctx context.Context, size int) {
	if pr.store == nil {
		return
	}
	if size == 0 {
		if err := pr.store.DeleteProxies(ctx); err != nil {
			pr.logger.Warn("failed to drop proxy snapshot from redis", logger.Error(err))
			return
		}
		pr.logger.Debug("proxy snapshot dropped from redis")
		return
	}
	if err := pr.store.SaveProxies(ctx, pr.pool.Snapshot(), pr.now()); err != nil {
		pr.logger.Warn("failed to save proxies to redis", logger.Error(err))
		// the in-memory pool is what matters
		return
	}
	pr.logger.Debug("proxies saved to redis")
}

func (pr *ProxyRefiller) record(report proxy.RefillReport, err error) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.status = RefillStatus{LastRun: pr.now(), LastReport: report}
	if err != nil {
		pr.status.LastError = err.Error()
	}
}

// Status returns the outcome of the most recent refill
func (pr *ProxyRefiller) Status() RefillStatus {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	return pr.status
}
