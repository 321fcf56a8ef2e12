package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry Metrics
var (
	// ActiveConnections tracks the current number of registered client connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Current number of registered client connections",
		},
	)

	// SubscriptionsCurrent tracks the current total number of feed subscriptions
	SubscriptionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_subscriptions_current",
			Help: "Current total number of feed subscriptions across all connections",
		},
	)
)

// Dispatcher Metrics
var (
	// PublishesTotal tracks feed value publishes accepted by the dispatcher
	PublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_publishes_total",
			Help: "Total feed value publishes accepted by the dispatcher",
		},
	)

	// MessagesSentTotal tracks outbound messages by message type
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_sent_total",
			Help: "Total outbound messages delivered to clients by type",
		},
		[]string{"type"},
	)

	// DeliveryFailuresTotal tracks sends that failed and pruned the connection
	DeliveryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_delivery_failures_total",
			Help: "Total failed deliveries that caused a connection to be pruned",
		},
	)
)

// Transport Metrics
var (
	// InboundFramesTotal tracks inbound client frames by type ("invalid" for rejects)
	InboundFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_inbound_frames_total",
			Help: "Total inbound client frames by message type",
		},
		[]string{"type"},
	)

	// WebSocketSendDuration tracks WebSocket message send latency in seconds
	WebSocketSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// WebSocketPingFailures tracks keepalive pings that failed to send
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket keepalive ping failures",
		},
	)

	// SlowClientsEvicted tracks clients dropped because their send buffer filled up
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_evicted_total",
			Help: "Total clients evicted because their send buffer was full",
		},
	)

	// RateLimitedFramesTotal tracks inbound frames dropped by the per-connection limiter
	RateLimitedFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_rate_limited_frames_total",
			Help: "Total inbound frames dropped by the per-connection rate limiter",
		},
	)
)
