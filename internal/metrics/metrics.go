package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PaymentsInitialized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initialized_total",
			Help: "Payment initialization attempts by outcome",
		},
		[]string{"outcome"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook events by outcome",
		},
		[]string{"outcome"},
	)

	PaymentsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_expired_total",
			Help: "Payments expired by the reconciliation sweep",
		},
	)

	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of outbound gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func Register() {
	prometheus.MustRegister(PaymentsInitialized)
	prometheus.MustRegister(WebhookEvents)
	prometheus.MustRegister(PaymentsExpired)
	prometheus.MustRegister(GatewayDuration)
}
