package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/api/handlers"
	"github.com/UnknownOlympus/waypoints/internal/metrics"
	"github.com/UnknownOlympus/waypoints/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// ImportTimeout bounds the time one /import_addresses request spends geocoding.
	ImportTimeout = 50 * time.Second
	// WriteTimeout is the API server write deadline. It leaves room to encode
	// the import response after ImportTimeout expires.
	WriteTimeout = ImportTimeout + 10*time.Second
)

// NewRouter wires the location API handlers with their dependencies.
// importer may be nil, in which case /import_addresses answers 501.
func NewRouter(
	locations store.Interface,
	importer handlers.AddressImporter,
	appMetrics *metrics.Metrics,
	log *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	locHandler := &handlers.LocationHandler{Store: locations, Log: log}
	importHandler := &handlers.ImportHandler{Importer: importer, Timeout: ImportTimeout, Log: log}

	mux.HandleFunc("/save_location", locHandler.Save)
	mux.HandleFunc("/get_locations", locHandler.List)
	mux.HandleFunc("/remove_location", locHandler.Remove)
	mux.HandleFunc("/clear_all", locHandler.Clear)
	mux.HandleFunc("/import_addresses", importHandler.Import)

	return requestMiddleware(mux, appMetrics, log)
}

// NewMonitoringRouter serves the health check and Prometheus metrics.
func NewMonitoringRouter(backend handlers.Pinger, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.Health(backend, log))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}
