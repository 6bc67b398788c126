package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Transaction metrics
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	DuplicateRequests   prometheus.Counter

	// Refund metrics
	RefundsTotal   *prometheus.CounterVec
	RefundRejected *prometheus.CounterVec

	// Webhook metrics
	WebhookDeliveries    *prometheus.CounterVec
	WebhookRetries       prometheus.Counter
	WebhookDeliveryTime  *prometheus.HistogramVec
	WebhookInflightGauge prometheus.Gauge
	DispatcherBatchSize  prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transactions by settlement outcome",
			},
			[]string{"status"},
		),
		TransactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Payment processing duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		DuplicateRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_requests_total",
				Help:      "Total number of payment submissions resolved as duplicates",
			},
		),
		RefundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Total number of refunds by settlement outcome",
			},
			[]string{"status"},
		),
		RefundRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_rejected_total",
				Help:      "Total number of refund requests rejected before settlement",
			},
			[]string{"reason"},
		),
		WebhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Total number of webhook delivery attempts by result",
			},
			[]string{"result"},
		),
		WebhookRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_retries_total",
				Help:      "Total number of webhook deliveries re-armed for retry",
			},
		),
		WebhookDeliveryTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "webhook_delivery_duration_seconds",
				Help:      "Webhook delivery attempt duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		WebhookInflightGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "webhook_events_in_flight",
				Help:      "Number of webhook events currently being delivered",
			},
		),
		DispatcherBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatcher_batch_size",
				Help:      "Number of due events claimed per dispatcher sweep",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.TransactionsTotal,
		m.TransactionDuration,
		m.DuplicateRequests,
		m.RefundsTotal,
		m.RefundRejected,
		m.WebhookDeliveries,
		m.WebhookRetries,
		m.WebhookDeliveryTime,
		m.WebhookInflightGauge,
		m.DispatcherBatchSize,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerRequests,
	)

	return m
}
