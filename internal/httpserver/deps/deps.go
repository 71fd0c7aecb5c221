package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
	"github.com/MrSnakeDoc/stopwatch/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

// Departures answers on-demand departure lookups.
type Departures interface {
	Get(ctx context.Context, stopID string) ([]domain.DepartureRow, error)
}

// CacheStats exposes the departure cache for status endpoints.
type CacheStats interface {
	Len() int
	Stops() []string
	Window() time.Duration
}

// PoolStats exposes the proxy pool for status endpoints.
type PoolStats interface {
	Size() int
}

// UsageStore records and reports per-stop request counts.
type UsageStore interface {
	IncrementStopUsage(ctx context.Context, stopID string, at time.Time) error
	GetStopUsage(ctx context.Context, limit int) ([]redisstore.StopUsage, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time              // for testing, defaults to time.Now
	AllowedHosts  []string                      // Host headers allowed to query departures
	AllowedCIDRS  []string                      // IPs allowed to access infra endpoints
	TrustProxy    bool                          // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst     int                           // departures requests allowed in a burst per client IP
	RatePerMin    int                           // departures requests refilled per client IP per minute
	Departures    Departures                    // on-demand lookups (the departure cache)
	Cache         CacheStats                    // departure cache introspection
	Pool          PoolStats                     // proxy pool introspection
	MinProxies    int                           // below this pool size the service reports degraded
	StdProxies    int                           // pool size the refill loop aims for
	RefillStatus  func() scheduler.RefillStatus // outcome of the last proxy refill
	RefillTrigger chan struct{}                 // channel to trigger a manual proxy refill
	Usage         UsageStore                    // nil when Redis is disabled
}
