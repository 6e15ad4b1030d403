package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	postsCreatedTotal   *prometheus.CounterVec
	likesToggledTotal   *prometheus.CounterVec
	messagesSentTotal   *prometheus.CounterVec
	chatConnectionsOpen prometheus.Gauge
	matchRequestsTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nobody_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nobody_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		postsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nobody_posts_created_total",
			Help: "Total number of feed posts created.",
		}, []string{"city"})

		likesToggledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nobody_likes_toggled_total",
			Help: "Total number of like toggles, labelled by resulting state.",
		}, []string{"state"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nobody_chat_messages_sent_total",
			Help: "Total number of chat messages persisted and broadcast.",
		}, []string{"room_type"})

		chatConnectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nobody_chat_connections_open",
			Help: "Number of websocket chat connections currently open.",
		})

		matchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nobody_match_requests_total",
			Help: "Total matchmaking calls, labelled by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			postsCreatedTotal,
			likesToggledTotal,
			messagesSentTotal,
			chatConnectionsOpen,
			matchRequestsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// PostsCreated exposes the counter for created posts.
func PostsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return postsCreatedTotal
}

// LikesToggled exposes the counter for like toggles.
func LikesToggled() *prometheus.CounterVec {
	RegisterMetrics()
	return likesToggledTotal
}

// ChatMessagesSent exposes the counter for chat messages.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// ChatConnections exposes the gauge of open websocket connections.
func ChatConnections() prometheus.Gauge {
	RegisterMetrics()
	return chatConnectionsOpen
}

// MatchRequests exposes the counter for matchmaking outcomes.
func MatchRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return matchRequestsTotal
}
