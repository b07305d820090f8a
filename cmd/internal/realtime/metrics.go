package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the gateway's Prometheus instrumentation.
type Metrics struct {
	Connections    prometheus.Gauge
	Subscriptions  prometheus.Gauge
	MessagesIn     prometheus.Counter
	MessagesOut    prometheus.Counter
	RelayPublished prometheus.Counter
	RelayDelivered prometheus.Counter
	SlowConsumers  prometheus.Counter
}

// NewMetrics registers the gateway collectors on reg.
// A nil reg uses the default registerer (tests pass a private registry).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_ws_connections",
			Help: "Open websocket connections on this instance.",
		}),
		Subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "ripple_relay_subscriptions",
			Help: "Room channels this instance is subscribed to.",
		}),
		MessagesIn: f.NewCounter(prometheus.CounterOpts{
			Name: "ripple_messages_received_total",
			Help: "Chat messages accepted from local clients.",
		}),
		MessagesOut: f.NewCounter(prometheus.CounterOpts{
			Name: "ripple_messages_delivered_total",
			Help: "Frames enqueued to local clients during fan-out.",
		}),
		RelayPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "ripple_relay_published_total",
			Help: "Messages published to the relay.",
		}),
		RelayDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "ripple_relay_delivered_total",
			Help: "Messages received from the relay.",
		}),
		SlowConsumers: f.NewCounter(prometheus.CounterOpts{
			Name: "ripple_slow_consumer_disconnects_total",
			Help: "Connections dropped because their send queue was full.",
		}),
	}
}
