package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/stopwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stopwatch/internal/logger"
)

// Refill triggers a manual proxy pool refill
func Refill(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.RefillTrigger <- struct{}{}:
			d.Logger.Info("manual proxy refill triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Refill triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("proxy refill already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Refill already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
