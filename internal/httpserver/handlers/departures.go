package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/domain"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
)

// usageTimeout bounds the best-effort usage write so Redis never slows a reply.
const usageTimeout = 250 * time.Millisecond

// Departures returns the live departures for ?stop= as a JSON array of
// [line, direction, eta] triples.
func Departures(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		stop := strings.TrimSpace(r.URL.Query().Get("stop"))
		if stop == "" {
			writeError(w, http.StatusBadRequest, "missing stop parameter")
			return
		}

		rows, err := d.Departures.Get(r.Context(), stop)
		if err != nil {
			status, msg := statusFor(err)
			d.Logger.Warn("departures lookup failed",
				logger.String("stop", stop),
				logger.Int("status", status),
				logger.Error(err))
			writeError(w, status, msg)
			return
		}

		recordUsage(r.Context(), d, stop, now())

		if rows == nil {
			rows = []domain.DepartureRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// statusFor maps lookup failures to an HTTP status and a client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoProxyAvailable):
		return http.StatusServiceUnavailable, "no working proxy available"
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, "upstream departures unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "departures lookup timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func recordUsage(ctx context.Context, d deps.Deps, stop string, at time.Time) {
	if d.Usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageTimeout)
	defer cancel()

	if err := d.Usage.IncrementStopUsage(ctx, stop, at); err != nil {
		d.Logger.Debug("failed to record stop usage",
			logger.String("stop", stop),
			logger.Error(err))
	}
}
