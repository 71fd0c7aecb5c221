package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
)

// DefaultWindow is how long a stop stays cached after its last on-demand request.
const DefaultWindow = 300 * time.Second

// StopFetcher retrieves live departures for a stop.
type StopFetcher interface {
	FetchStop(ctx context.Context, stopID string) ([]domain.DepartureRow, error)
}

// DepartureCache maps stop IDs to their last known departures.
//
// Reads never wait for the network on a hit; keeping entries fresh is the
// job of RefreshAll. Entries are replaced as whole values under the lock, and
// every fetch runs outside of it.
type DepartureCache struct {
	mu      sync.RWMutex
	entries map[string]domain.StopEntry

	fetcher StopFetcher
	window  time.Duration
	workers int
	now     func() time.Time
	logger  logger.Logger

	misses singleflight.Group
}

// Option tunes a DepartureCache.
type Option func(*DepartureCache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *DepartureCache) { c.now = now }
}

// WithRefreshWorkers bounds how many stops RefreshAll fetches in parallel.
func WithRefreshWorkers(n int) Option {
	return func(c *DepartureCache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewDepartureCache creates an empty cache. A zero window means DefaultWindow.
func NewDepartureCache(fetcher StopFetcher, window time.Duration, log logger.Logger, opts ...Option) *DepartureCache {
	if window <= 0 {
		window = DefaultWindow
	}
	c := &DepartureCache{
		entries: make(map[string]domain.StopEntry),
		fetcher: fetcher,
		window:  window,
		workers: 1,
		now:     time.Now,
		logger:  log.With(logger.Component("departures")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the departures for stopID.
//
// On a miss the stop is fetched synchronously and cached with both
// timestamps set to now; a failed fetch creates no entry. Concurrent misses
// on the same stop share a single fetch. On a hit the cached rows are
// returned as they are and only LastRequested moves.
func (c *DepartureCache) Get(ctx context.Context, stopID string) ([]domain.DepartureRow, error) {
	if rows, ok := c.hit(stopID); ok {
		return rows, nil
	}

	v, err, _ := c.misses.Do(stopID, func() (interface{}, error) {
		rows, err := c.fetcher.FetchStop(ctx, stopID)
		if err != nil {
			return nil, err
		}

		now := c.now()
		c.mu.Lock()
		c.entries[stopID] = domain.StopEntry{
			Rows:          rows,
			LastUpdated:   now,
			LastRequested: now,
		}
		c.mu.Unlock()

		c.logger.Info("stop added to cache", logger.String("stop", stopID), logger.Int("rows", len(rows)))
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.DepartureRow), nil
}

func (c *DepartureCache) hit(stopID string) ([]domain.DepartureRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[stopID]
	if !ok {
		return nil, false
	}
	entry.LastRequested = c.now()
	c.entries[stopID] = entry
	return entry.Rows, true
}

// RefreshReport summarizes one RefreshAll sweep.
type RefreshReport struct {
	Refreshed int
	Failed    int
	Evicted   int
}

// RefreshAll sweeps every cached stop once.
//
// A stop requested within the window is refetched; success replaces its rows
// and LastUpdated but keeps LastRequested, failure keeps the stale entry.
// A stop not requested within the window is evicted without fetching.
func (c *DepartureCache) RefreshAll(ctx context.Context) RefreshReport {
	var (
		report RefreshReport
		mu     sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, stopID := range c.Stops() {
		if gctx.Err() != nil {
			break
		}

		if c.evictIfExpired(stopID) {
			report.Evicted++
			continue
		}

		stopID := stopID // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			ok := c.refresh(gctx, stopID)
			mu.Lock()
			if ok {
				report.Refreshed++
			} else {
				report.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}

// evictIfExpired drops stopID when its last request is older than the window.
func (c *DepartureCache) evictIfExpired(stopID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[stopID]
	if !ok {
		return false
	}
	idle := c.now().Sub(entry.LastRequested)
	if idle <= c.window {
		return false
	}

	delete(c.entries, stopID)
	c.logger.Info("stop evicted", logger.String("stop", stopID), logger.Duration("idle", idle))
	return true
}

func (c *DepartureCache) refresh(ctx context.Context, stopID string) bool {
	rows, err := c.fetcher.FetchStop(ctx, stopID)
	if err != nil {
		c.logger.Warn("refresh failed, keeping previous departures",
			logger.String("stop", stopID),
			logger.Error(err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[stopID]
	if !ok {
		// evicted while we were fetching
		return true
	}
	c.entries[stopID] = domain.StopEntry{
		Rows:          rows,
		LastUpdated:   c.now(),
		LastRequested: entry.LastRequested,
	}
	c.logger.Debug("stop refreshed", logger.String("stop", stopID), logger.Int("rows", len(rows)))
	return true
}

// Peek returns the cached entry for stopID without touching it.
func (c *DepartureCache) Peek(stopID string) (domain.StopEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[stopID]
	return entry, ok
}

// Stops returns the cached stop IDs, sorted.
func (c *DepartureCache) Stops() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stops := make([]string, 0, len(c.entries))
	for id := range c.entries {
		stops = append(stops, id)
	}
	sort.Strings(stops)
	return stops
}

// Len returns the number of cached stops.
func (c *DepartureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Window returns the freshness window.
func (c *DepartureCache) Window() time.Duration {
	return c.window
}
