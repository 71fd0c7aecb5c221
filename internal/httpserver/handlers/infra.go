package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	redisstore "github.com/MrSnakeDoc/stopwatch/internal/store/redis"
)

// topStops is how many of the busiest stops /infra lists.
const topStops = 10

type componentStatus struct {
	OK          bool     `json:"ok"`
	Size        *int     `json:"size,omitempty"`
	Standard    int      `json:"standard,omitempty"`
	Minimum     int      `json:"minimum,omitempty"`
	LastRefill  string   `json:"last_refill,omitempty"`
	CachedStops []string `json:"cached_stops,omitempty"`
	Window      string   `json:"window,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
	TopStops   []redisstore.StopUsage     `json:"top_stops,omitempty"`
}

// Infra reports the state of the proxy pool, the departure cache and Redis.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"proxy_pool": poolStatus(d),
			"departures": cacheStatus(d),
			"redis":      redisStatus(ctx, d),
		}

		response := infraResponse{
			Status:     overallStatus(components),
			Components: components,
		}
		if d.Usage != nil && components["redis"].OK {
			if top, err := d.Usage.GetStopUsage(ctx, topStops); err == nil {
				response.TopStops = top
			}
		}

		writeJSON(w, http.StatusOK, response)
	}
}

func poolStatus(d deps.Deps) componentStatus {
	size := d.Pool.Size()
	st := componentStatus{
		OK:         size >= d.MinProxies,
		Size:       &size,
		Standard:   d.StdProxies,
		Minimum:    d.MinProxies,
		LastRefill: "never",
	}
	if d.RefillStatus != nil {
		last := d.RefillStatus()
		if !last.LastRun.IsZero() {
			st.LastRefill = last.LastRun.Format(time.RFC3339)
		}
		st.Error = last.LastError
	}
	return st
}

func cacheStatus(d deps.Deps) componentStatus {
	stops := d.Cache.Stops()
	n := len(stops)
	return componentStatus{
		OK:          true,
		Size:        &n,
		CachedStops: stops,
		Window:      d.Cache.Window().String(),
	}
}

func redisStatus(ctx context.Context, d deps.Deps) componentStatus {
	if d.Usage == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "no-warm-start,no-usage-stats",
		}
	}

	if err := d.Usage.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "no-warm-start,no-usage-stats",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:   true,
		Mode: "optimal",
	}
}

// overallStatus is critical without any proxy, degraded when the pool is
// under its minimum or an enabled Redis does not answer.
func overallStatus(components map[string]componentStatus) string {
	if pool := components["proxy_pool"]; pool.Size != nil && *pool.Size == 0 {
		return "critical"
	}
	if !components["proxy_pool"].OK {
		return "degraded"
	}
	if redis := components["redis"]; !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "optimal"
}
