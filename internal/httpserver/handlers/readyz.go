package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool `json:"ready"`
	Proxies int  `json:"proxies"`
}

// Readyz is ready once at least one validated proxy is pooled: before that
// every cache miss would fail.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := d.Pool.Size()
		status := http.StatusOK
		if size == 0 {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: size > 0, Proxies: size})
	}
}
