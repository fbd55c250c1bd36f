package handlers

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger reports whether the record backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers 200 "OK" when the backend responds to a ping and 503 otherwise.
func Health(backend Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.DebugContext(r.Context(), "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if err := backend.Ping(r.Context()); err != nil {
			log.WarnContext(r.Context(), "Backend ping failed", "error", err)
			status, body = http.StatusServiceUnavailable, "storage ping failed"
		}
		w.WriteHeader(status)
		if _, err := w.Write([]byte(body)); err != nil {
			log.ErrorContext(r.Context(), "failed to write reply", "error", err)
		}

		log.DebugContext(r.Context(), "Health checks completed", "status", status)
	}
}
