package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	orchestrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigepren_orchestrations_total",
			Help: "Multi-document creations by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	segmentWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigepren_segment_writes_total",
			Help: "Clinical segment writes by segment and operation",
		},
		[]string{"segment", "operation"},
	)

	appointmentConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sigepren_appointment_conflicts_total",
			Help: "Appointments rejected because of a provider schedule overlap",
		},
	)

	dashboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigepren_dashboard_cache_total",
			Help: "Dashboard summary cache lookups by result",
		},
		[]string{"result"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sigepren_audit_entries_total",
			Help: "Total number of audit entries recorded",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count, latency and in-flight requests. The
// path label is the route template, which keeps cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = apperr.StatusOf(err)
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// --- Business metric helpers ---

// RecordOrchestration records the outcome of a transactional creation flow.
func RecordOrchestration(flow string, err error) {
	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	orchestrationsTotal.WithLabelValues(flow, outcome).Inc()
}

func RecordSegmentWrite(segment, operation string) {
	segmentWritesTotal.WithLabelValues(segment, operation).Inc()
}

func RecordAppointmentConflict() {
	appointmentConflicts.Inc()
}

// RecordDashboardCache records a cache "hit", "miss" or "error".
func RecordDashboardCache(result string) {
	dashboardCache.WithLabelValues(result).Inc()
}

func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}
