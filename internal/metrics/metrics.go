// Package metrics holds the Prometheus instruments of the booking service.
// All instruments are created against a caller supplied registerer so that
// tests can use a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Purchase outcomes used as the "result" label.
const (
	ResultOK        = "ok"
	ResultOccupied  = "occupied"
	ResultRejected  = "rejected"
	ResultTransient = "transient"
	ResultError     = "error"
)

// Metrics groups the service instruments.
type Metrics struct {
	purchases   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	lockWait    prometheus.Histogram
	reserve     prometheus.Histogram
	expired     prometheus.Counter
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the instruments with reg.  When reg is also a Gatherer
// (a *prometheus.Registry) Handler serves it; otherwise Handler serves the
// default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		purchases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Ticket purchase attempts by result",
		}, []string{"result"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_transitions_total",
			Help: "Ticket status changes by target status",
		}, []string{"status"}),
		lockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "seat_lock_wait_seconds",
			Help:    "Time spent acquiring a seat lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		reserve: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_reserve_seconds",
			Help:    "Duration of the ledger check-and-insert",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		expired: f.NewCounter(prometheus.CounterOpts{
			Name: "ticket_reservations_expired_total",
			Help: "Reservations cancelled by the expiry sweep",
		}),
		httpReqs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Purchase counts one purchase attempt.  Safe on a nil receiver, like every
// recording method below.
func (m *Metrics) Purchase(result string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(result).Inc()
}

// Transition counts one status change.
func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// LockWait observes how long a seat lock took to acquire.
func (m *Metrics) LockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// Reserve observes the ledger insert duration.
func (m *Metrics) Reserve(d time.Duration) {
	if m == nil {
		return
	}
	m.reserve.Observe(d.Seconds())
}

// Expired counts reservations cancelled by the sweeper.
func (m *Metrics) Expired(n int) {
	if m == nil {
		return
	}
	m.expired.Add(float64(n))
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if m == nil {
				return err
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
