package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/mw"
)

func init() { Register(registerDepartures) }

func registerDepartures(r chi.Router, d deps.Deps) {
	r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateBurst,
			RefillPerIPPerMin: d.RatePerMin,
			MaxEntries:        10000,
			TrustProxy:        d.TrustProxy,
			Logger:            d.Logger,
		}),
	).Get("/departures", handlers.Departures(d))
}
