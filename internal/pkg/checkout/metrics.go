package checkout

import "github.com/prometheus/client_golang/prometheus"

var (
	CheckoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursefox_checkout_sessions_total",
			Help: "Checkout session creation attempts by result",
		},
		[]string{"result"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursefox_webhook_events_total",
			Help: "Webhook deliveries by event type and result",
		},
		[]string{"type", "result"},
	)

	Finalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursefox_finalize_total",
			Help: "Finalize calls by trigger and whether they completed the purchase",
		},
		[]string{"source", "transition"},
	)
)

// RegisterMetrics registers the checkout collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CheckoutSessions, WebhookEvents, Finalizations)
}
