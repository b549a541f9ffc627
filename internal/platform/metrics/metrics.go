package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the portal server.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PrescriptionsIssued    prometheus.Counter
	IssuanceRejectedTotal  *prometheus.CounterVec
	VerificationsTotal     *prometheus.CounterVec
	AppointmentsBooked     prometheus.Counter
	DBPoolAcquiredConns    prometheus.GaugeFunc
	DBPoolTotalConns       prometheus.GaugeFunc
}

// New creates a Metrics instance backed by its own registry so tests can
// instantiate it repeatedly without duplicate registration panics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PrescriptionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "portal_prescriptions_issued_total",
			Help: "Total number of prescriptions successfully issued.",
		}),
		IssuanceRejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_prescription_issuance_rejected_total",
			Help: "Prescription issuance attempts rejected, by reason.",
		}, []string{"reason"}),
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_verifications_total",
			Help: "Anonymous verification lookups, by outcome (found or not_found).",
		}, []string{"outcome"}),
		AppointmentsBooked: factory.NewCounter(prometheus.CounterOpts{
			Name: "portal_appointments_booked_total",
			Help: "Total number of appointments booked.",
		}),
	}
}

// RegisterPoolStats wires pgx pool gauges. Call once after the pool is up.
func (m *Metrics) RegisterPoolStats(acquired, total func() int32) {
	m.DBPoolAcquiredConns = promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "portal_db_pool_acquired_conns",
		Help: "Connections currently acquired from the pgx pool.",
	}, func() float64 { return float64(acquired()) })
	m.DBPoolTotalConns = promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "portal_db_pool_total_conns",
		Help: "Total connections held by the pgx pool.",
	}, func() float64 { return float64(total()) })
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware records request counts and latency per route. The route label
// uses the echo route pattern, not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}

			m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
