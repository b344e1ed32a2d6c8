package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_messages_sent_total",
			Help: "Send attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "stream_failed", "rejected", "init_failed"
	)

	StreamChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiva_stream_chunks_total",
			Help: "Reply chunks applied to the live view",
		},
	)

	StaleChunksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aiva_stale_chunks_dropped_total",
			Help: "Chunks discarded because their chat was no longer active",
		},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_storage_errors_total",
			Help: "Swallowed durable store failures",
		},
		[]string{"op"}, // "load", "save"
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_notifications_total",
			Help: "Notices shown to the user",
		},
		[]string{"kind"},
	)

	IdentityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_identity_transitions_total",
			Help: "Accepted identity events",
		},
		[]string{"event", "from", "to"},
	)

	ExchangeSessionsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_exchange_sessions_opened_total",
			Help: "Backend chat sessions opened",
		},
		[]string{"result"}, // "ok", "error"
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiva_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
