package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Handshake metrics
	HandshakesTotal        *prometheus.CounterVec
	HandshakeDuration      prometheus.Histogram
	SessionSyncFailures    prometheus.Counter
	ReconcileErrorsTotal   *prometheus.CounterVec
	InvitesAcceptedTotal   prometheus.Counter
	WorkspacesBootstrapped prometheus.Counter

	// Rendering metrics
	RenderDuration   prometheus.Histogram
	RenderCacheTotal *prometheus.CounterVec
	PublishTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamsites_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teamsites_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		HandshakesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamsites_handshake_total",
				Help: "Completed auth handshakes by outcome and credential kind",
			},
			[]string{"outcome", "kind"},
		),
		HandshakeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "teamsites_handshake_duration_seconds",
				Help:    "Wall time of a full auth handshake",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SessionSyncFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamsites_session_sync_failures_total",
				Help: "Handshakes that continued without a server-side session",
			},
		),
		ReconcileErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamsites_reconcile_errors_total",
				Help: "Non-fatal post-login reconciliation failures",
			},
			[]string{"step"},
		),
		InvitesAcceptedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamsites_invites_accepted_total",
				Help: "Pending invites stamped as accepted",
			},
		),
		WorkspacesBootstrapped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamsites_workspaces_bootstrapped_total",
				Help: "Starter team/site/content sets created at first login",
			},
		),

		RenderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "teamsites_render_duration_seconds",
				Help:    "Time spent normalizing and rendering a public page",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
			},
		),
		RenderCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamsites_render_cache_total",
				Help: "Rendered page cache lookups",
			},
			[]string{"result"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamsites_publish_total",
				Help: "Static page publications to object storage",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HandshakesTotal,
		m.HandshakeDuration,
		m.SessionSyncFailures,
		m.ReconcileErrorsTotal,
		m.InvitesAcceptedTotal,
		m.WorkspacesBootstrapped,
		m.RenderDuration,
		m.RenderCacheTotal,
		m.PublishTotal,
	)

	return m
}

// NewNopMetrics returns metrics registered against a throwaway registry.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Routes are labelled by their mux path template to keep cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
