package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bbb_active_connections",
			Help: "Currently open realtime connections",
		},
	)

	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bbb_auth_failures_total",
			Help: "Rejected connection attempts",
		},
	)

	// Event metrics
	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bbb_events_handled_total",
			Help: "Inbound events processed, by event name",
		},
		[]string{"event"},
	)

	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bbb_event_errors_total",
			Help: "Error events emitted, by error code",
		},
		[]string{"code"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bbb_messages_sent_total",
			Help: "Messages stored and fanned out, by type",
		},
		[]string{"type"}, // "text", "drawing" or "image"
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bbb_rate_limit_hits_total",
			Help: "Sends rejected by the per-user rate gate",
		},
	)
)
