package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// WebhookDeliveries counts provider deliveries by guard decision.
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Provider webhook deliveries by outcome",
		},
		[]string{"action", "reason"},
	)

	// WebhookRejections counts deliveries rejected before reaching the store.
	WebhookRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "webhook",
			Name:      "rejections_total",
			Help:      "Provider webhook deliveries rejected by kind",
		},
		[]string{"kind"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Order change notifications by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	NotifyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "notify",
			Name:      "queue_depth",
			Help:      "Notifications waiting for a dispatcher worker",
		},
	)

	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Open websocket subscriptions to order updates",
		},
	)
)

func init() {
	Registry.MustRegister(WebhookDeliveries, WebhookRejections, Notifications, NotifyQueueDepth, LiveSubscribers)
}
