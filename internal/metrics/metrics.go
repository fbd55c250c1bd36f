package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StoreOperations *prometheus.CounterVec
	StoreSeconds    *prometheus.HistogramVec
	StoredLocations prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	GeocodeRequests *prometheus.CounterVec
	ProviderSeconds *prometheus.HistogramVec
	ActiveGeocoders prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		StoreOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoints_store_operations_total",
			Help: "Total number of location store operations by outcome.",
		}, []string{"operation", "outcome"}),
		StoreSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoints_store_operation_duration_seconds",
			Help:    "Duration of location store operations, lock wait included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		StoredLocations: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waypoints_stored_locations",
			Help: "Number of locations in the store after the last operation.",
		}),
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoints_http_requests_total",
			Help: "Total number of handled API requests.",
		}, []string{"method", "path", "status"}),
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waypoints_geocoding_requests_total",
			Help: "Total number of geocoded addresses by status.",
		}, []string{"status"}),
		ProviderSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoints_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveGeocoders: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waypoints_geocoding_active_workers",
			Help: "Current number of workers geocoding addresses.",
		}),
	}
}
