package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
)

// Leaser hands out proxy endpoints. last reports that the endpoint is the
// pool's retained survivor.
type Leaser interface {
	Take() (addr string, last bool, err error)
}

// Fetcher retrieves departures for a stop, rotating through pooled proxies
// until one succeeds or the pool has nothing left to offer.
type Fetcher struct {
	pool     Leaser
	renderer Renderer
	baseURL  string
	timeout  time.Duration
	logger   logger.Logger
}

// NewFetcher creates a fetcher against the board at baseURL.
func NewFetcher(pool Leaser, renderer Renderer, baseURL string, timeout time.Duration, log logger.Logger) *Fetcher {
	return &Fetcher{
		pool:     pool,
		renderer: renderer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		logger:   log.With(logger.Component("fetcher")),
	}
}

// StopURL returns the board page for stopID.
func (f *Fetcher) StopURL(stopID string) string {
	return f.baseURL + "/?przystanek=" + url.QueryEscape(stopID)
}

// FetchStop returns the live departures for stopID.
//
// Transport failures are retried with the next proxy. When the proxy that
// failed was the pool's last survivor the fetch gives up with
// domain.ErrNoProxyAvailable. Any other failure is domain.ErrFetchFailed.
// There is no attempt cap; ctx bounds the loop.
func (f *Fetcher) FetchStop(ctx context.Context, stopID string) ([]domain.DepartureRow, error) {
	pageURL := f.StopURL(stopID)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch of %s abandoned after %d attempts: %w", stopID, attempt-1, err)
		}

		addr, last, err := f.pool.Take()
		if err != nil {
			if errors.Is(err, domain.ErrPoolEmpty) {
				return nil, fmt.Errorf("%w: %w", domain.ErrNoProxyAvailable, err)
			}
			return nil, err
		}

		rows, err := f.renderer.RenderAndParse(ctx, pageURL, addr, f.timeout)
		if err == nil {
			f.logger.Debug("departures fetched",
				logger.String("stop", stopID),
				logger.String("proxy", addr),
				logger.Int("attempt", attempt),
				logger.Int("rows", len(rows)))
			return rows, nil
		}

		if !errors.Is(err, domain.ErrTransport) {
			return nil, fmt.Errorf("%w: stop %s via %s: %w", domain.ErrFetchFailed, stopID, addr, err)
		}

		if last {
			f.logger.Warn("last proxy failed, giving up",
				logger.String("stop", stopID),
				logger.String("proxy", addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return nil, fmt.Errorf("%w: last proxy %s failed: %w", domain.ErrNoProxyAvailable, addr, err)
		}

		f.logger.Debug("proxy failed, retrying with another",
			logger.String("stop", stopID),
			logger.String("proxy", addr),
			logger.Int("attempt", attempt),
			logger.Error(err))
	}
}
