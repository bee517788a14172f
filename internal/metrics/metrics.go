// Package metrics exposes Prometheus counters for ingress and delivery.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cazlyncNotifier/internal/notification"
)

var (
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_deliveries_total",
		Help: "Delivery outcomes by channel and status.",
	}, []string{"channel", "status"})

	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_events_received_total",
		Help: "Change events received on ingress by kind and result.",
	}, []string{"kind", "result"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})
)

// ObserveOutcome counts one settled delivery. It is safe for concurrent use
// and fits notification.Dispatcher.Observer.
func ObserveOutcome(p notification.Payload, o notification.Outcome) {
	deliveries.WithLabelValues(string(p.Channel()), string(o.Status)).Inc()
}

// ObserveEvent counts one ingress decision: accepted, duplicate or rejected.
func ObserveEvent(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	eventsReceived.WithLabelValues(kind, result).Inc()
}

// Middleware records request latency by route pattern.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		httpDuration.WithLabelValues(c.Path(), c.Request().Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}
