package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout and webhook outcomes.
type PaymentMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutFailure  *prometheus.CounterVec
	webhookOutcome   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout finalization in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	checkoutFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Failed checkout attempts.",
	}, []string{"method", "reason"})
	webhookOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_outcome",
		Help: "Webhook deliveries by handler and outcome.",
	}, []string{"handler", "outcome"})
	reg.MustRegister(checkoutDuration, checkoutFailure, webhookOutcome)
	return &PaymentMetrics{
		checkoutDuration: checkoutDuration,
		checkoutFailure:  checkoutFailure,
		webhookOutcome:   webhookOutcome,
	}
}

// ObserveCheckoutDuration records the duration for the given payment method.
func (p *PaymentMetrics) ObserveCheckoutDuration(method string, duration time.Duration) {
	if p == nil || p.checkoutDuration == nil {
		return
	}
	p.checkoutDuration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncCheckoutFailure increments the failure counter for a method/reason pair.
func (p *PaymentMetrics) IncCheckoutFailure(method, reason string) {
	if p == nil || p.checkoutFailure == nil {
		return
	}
	p.checkoutFailure.WithLabelValues(normalizeLabel(method), normalizeLabel(reason)).Inc()
}

// IncWebhookOutcome increments the webhook counter for a handler/outcome pair.
func (p *PaymentMetrics) IncWebhookOutcome(handler, outcome string) {
	if p == nil || p.webhookOutcome == nil {
		return
	}
	p.webhookOutcome.WithLabelValues(normalizeLabel(handler), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
