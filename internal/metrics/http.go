// Package metrics exposes Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/httpx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the collectors on a private registry.
type Server struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
}

// New registers every collector for service.
func New(service string) *Server {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "claims",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claims",
			Subsystem: "orchestrator",
			Name:      "submissions_total",
			Help:      "Claim submissions by outcome and resulting risk level.",
		},
		[]string{"service", "outcome", "risk_level"},
	)
	submissionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claims",
			Subsystem: "orchestrator",
			Name:      "submission_duration_seconds",
			Help:      "End-to-end submission duration in seconds.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"service", "outcome"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "claims",
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker for an operation is open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		submissionsTotal,
		submissionDuration,
		breakerState,
	)

	return &Server{
		service:            service,
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		submissionsTotal:   submissionsTotal,
		submissionDuration: submissionDuration,
		breakerState:       breakerState,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Server) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count, latency and in-flight gauge per route.
func (m *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		rec := &httpx.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(rec, r)

		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(rec.Status)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordSubmission counts one orchestrated submission. riskLevel is empty
// for failures.
func (m *Server) RecordSubmission(outcome, riskLevel string, d time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	if riskLevel == "" {
		riskLevel = "none"
	}
	m.submissionsTotal.WithLabelValues(m.service, outcome, riskLevel).Inc()
	m.submissionDuration.WithLabelValues(m.service, outcome).Observe(d.Seconds())
}

// SetBreakerOpen tracks breaker state changes for an operation.
func (m *Server) SetBreakerOpen(operation string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}

// normalizePath folds claim ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case path == "/api/claims/history":
		return path
	case strings.HasPrefix(path, "/api/claims/"):
		return "/api/claims/{claimId}"
	default:
		return path
	}
}
