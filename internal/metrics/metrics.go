package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	TokenVerifications  *prometheus.CounterVec
	LoginEventFailures  prometheus.Counter
	UserSyncs           *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		TokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_token_verifications_total",
			Help: "Bearer token verifications by result (ok, invalid, unavailable, error).",
		}, []string{"result"}),
		LoginEventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "login_event_write_failures_total",
			Help: "Login events that could not be written.",
		}),
		UserSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_syncs_total",
			Help: "Profile upserts into the users table by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.TokenVerifications,
		m.LoginEventFailures,
		m.UserSyncs,
	)
	return m
}

// Register adds an extra collector, ignoring duplicates.
func (m *Metrics) Register(c prometheus.Collector) error {
	if err := m.registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
