package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/mw"
)

func init() { Register(registerRefill) }

func registerRefill(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Post("/proxies/refill", handlers.Refill(d))
}
