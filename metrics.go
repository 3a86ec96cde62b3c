package memoclaw

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle:
// attempts, retries, payment re-sends and terminal errors. It is safe for
// concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal        *prometheus.CounterVec
	paymentRetriesTotal *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
}

// NewMetricsCollector creates a collector registered on the default
// Prometheus registry.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector registered on a custom
// registry, for callers that isolate metric namespaces.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoclaw_requests_total",
				Help: "Total number of logical requests by method, endpoint and status code.",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memoclaw_request_duration_seconds",
				Help:    "Logical request duration including retries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "memoclaw_requests_in_flight",
				Help: "Number of logical requests currently in flight.",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoclaw_retries_total",
				Help: "Total number of retry attempts by method and endpoint.",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		paymentRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoclaw_payment_retries_total",
				Help: "Total number of x402 payment re-sends.",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoclaw_errors_total",
				Help: "Total number of terminal errors by kind.",
			},
			[]string{"kind", "method", "endpoint"},
		),
	}
}

// RecordRequest records a completed logical request.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	mc.requestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	mc.requestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart marks a logical request as in flight.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a logical request as no longer in flight.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRetry records one retry attempt (zero-indexed).
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordPaymentRetry records one payment-augmented re-send.
func (mc *MetricsCollector) RecordPaymentRetry(method, endpoint string) {
	mc.paymentRetriesTotal.WithLabelValues(method, endpoint).Inc()
}

// RecordError records a terminal error by kind.
func (mc *MetricsCollector) RecordError(kind ErrorKind, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(kind.String(), method, endpoint).Inc()
}
