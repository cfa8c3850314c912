// Package observability exposes prometheus metrics for gateway traffic and
// batch/refund outcomes.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing, so tests can pass nil.
type Metrics struct {
	paymentAttempts *prometheus.CounterVec
	batchSkips      *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		paymentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_attempts_total",
			Help: "Batch payment attempts by final status.",
		}, []string{"status"}),
		batchSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_batch_skips_total",
			Help: "Batch attempts withheld by a pre-flight guard, by reason.",
		}, []string{"reason"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_refunds_total",
			Help: "Refund attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Gateway round trips by operation and outcome.",
		}, []string{"operation", "outcome"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway round trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.paymentAttempts, m.batchSkips, m.refunds, m.gatewayRequests, m.gatewayLatency)
	return m
}

// PaymentAttempted records a batch attempt outcome.
func (m *Metrics) PaymentAttempted(status string) {
	if m == nil {
		return
	}
	m.paymentAttempts.WithLabelValues(status).Inc()
}

// BatchSkipped records a guard skip.
func (m *Metrics) BatchSkipped(reason string) {
	if m == nil {
		return
	}
	m.batchSkips.WithLabelValues(reason).Inc()
}

// RefundProcessed records a refund outcome for a strategy.
func (m *Metrics) RefundProcessed(strategy, outcome string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(strategy, outcome).Inc()
}

// GatewayRequest records one gateway round trip.
func (m *Metrics) GatewayRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(operation, outcome).Inc()
	m.gatewayLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}
