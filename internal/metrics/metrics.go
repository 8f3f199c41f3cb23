package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfileFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_profile_fetches_total",
		Help: "Profile fetch attempts by outcome (ok, error, timeout, skipped)",
	}, []string{"outcome"})

	AuthOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_auth_operations_total",
		Help: "Session manager operations by name and outcome",
	}, []string{"operation", "outcome"})

	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_currency_conversions_total",
		Help: "Currency conversions by resolution path (identity, zero, direct, inverse, missing, invalid)",
	}, []string{"path"})

	GeolocationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_geolocation_lookups_total",
		Help: "Geolocation lookups by outcome",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})
)
