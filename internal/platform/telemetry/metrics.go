// Package telemetry exposes prometheus metrics for the validation engine:
// request-level HTTP metrics via echo middleware plus domain counters the
// handlers record directly.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every instrument the engine records. Construct once with
// a dedicated registry and share; client_golang instruments are safe for
// concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	validations       *prometheus.CounterVec
	interactions      *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	validationSeconds prometheus.Histogram
	catalogSize       prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxguard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rxguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxguard",
			Name:      "validations_total",
			Help:      "Prescription validations by derived status.",
		}, []string{"status"}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxguard",
			Name:      "interactions_detected_total",
			Help:      "Drug-drug interactions detected, by severity.",
		}, []string{"severity"}),
		webhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxguard",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery outcomes.",
		}, []string{"status"}),
		validationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rxguard",
			Name:      "validation_duration_seconds",
			Help:      "Validation pipeline duration.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .2, .5, 1},
		}),
		catalogSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rxguard",
			Name:      "catalog_medications",
			Help:      "Medications currently loaded in the catalog.",
		}),
	}
}

// RecordValidation counts one validation outcome and its pipeline duration.
func (m *Metrics) RecordValidation(status string, duration time.Duration) {
	m.validations.WithLabelValues(status).Inc()
	m.validationSeconds.Observe(duration.Seconds())
}

// RecordInteraction counts one detected interaction.
func (m *Metrics) RecordInteraction(severity string) {
	m.interactions.WithLabelValues(severity).Inc()
}

// RecordWebhookDelivery counts one finished delivery.
func (m *Metrics) RecordWebhookDelivery(status string) {
	m.webhookDeliveries.WithLabelValues(status).Inc()
}

// SetCatalogSize updates the loaded-medication gauge.
func (m *Metrics) SetCatalogSize(n int) {
	m.catalogSize.Set(float64(n))
}

// Handler serves the prometheus exposition endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

// Middleware records per-request counters and latency. Route path is used
// instead of the raw URL so ids do not explode label cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
