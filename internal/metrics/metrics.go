package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the ledger and HTTP collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PointsTotal       *prometheus.CounterVec
	BalanceLookups    *prometheus.CounterVec
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// New creates the collectors and registers them on registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total award and redeem operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger operation duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PointsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_points_total",
				Help: "Total points awarded or redeemed.",
			},
			[]string{"operation"},
		),
		BalanceLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_balance_lookups_total",
				Help: "Total balance lookups.",
			},
			[]string{"status"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.PointsTotal,
		m.BalanceLookups,
		m.RequestCount,
		m.RequestDuration,
	)
	return m
}

// ObserveOperation records one award or redeem attempt.
func (m *Metrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddPoints records points moved by a committed operation.
func (m *Metrics) AddPoints(operation string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.PointsTotal.WithLabelValues(operation).Add(float64(points))
}

// IncBalanceLookup records a balance read.
func (m *Metrics) IncBalanceLookup(status string) {
	if m == nil {
		return
	}
	m.BalanceLookups.WithLabelValues(status).Inc()
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RequestCount.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
